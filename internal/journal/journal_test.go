package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

func testRecord(n int) fleetapi.RequestRecord {
	return fleetapi.RequestRecord{
		RequestID: fmt.Sprintf("req-%04d", n),
		Method:    "GET",
		URL:       "http://api.fleetwave.test/v1/devices",
		Status:    fleetapi.StatusComplete,
		Attempts:  1,
		Duration:  12 * time.Millisecond,
		Payload:   []byte(`{"items":[]}`),
	}
}

func writeJournal(t *testing.T, path string, n int) {
	t.Helper()
	w, err := NewWriter(path, 1)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		require.NoError(t, w.Record(context.Background(), testRecord(i)))
	}
	require.NoError(t, w.Close())
}

func TestWriterChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	writeJournal(t, path, 3)

	entries, err := Open(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	prevHash := ""
	for i, e := range entries {
		assert.Equal(t, i+1, e.Seq)
		assert.Equal(t, prevHash, e.PrevHash, "entry %d", i+1)
		computed, err := entryHash(e)
		require.NoError(t, err)
		assert.Equal(t, computed, e.Hash, "entry %d", i+1)
		assert.Equal(t, "complete", e.Outcome)
		assert.Equal(t, int64(12), e.DurationMs)
		prevHash = e.Hash
	}

	n, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWriterBodyDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	w, err := NewWriter(path, 1)
	require.NoError(t, err)

	payload := []byte(`{"items":[{"id":"dev-1"}]}`)
	rec := testRecord(1)
	rec.Payload = payload
	require.NoError(t, w.Record(context.Background(), rec))
	require.NoError(t, w.Close())

	entries, err := Open(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	sum := sha256.Sum256(payload)
	assert.Equal(t, hex.EncodeToString(sum[:]), entries[0].BodyDigest)
}

func TestWriterResumesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	writeJournal(t, path, 2)

	// A new writer continues where the old chain stopped.
	w, err := NewWriter(path, 1)
	require.NoError(t, err)
	require.NoError(t, w.Record(context.Background(), testRecord(3)))
	require.NoError(t, w.Close())

	entries, err := Open(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 3, entries[2].Seq)
	assert.Equal(t, entries[1].Hash, entries[2].PrevHash)

	n, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestWriterRejectsDamagedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	writeJournal(t, path, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = NewWriter(path, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify")
}

func TestWriterBuffering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	w, err := NewWriter(path, 3)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Record(context.Background(), testRecord(1)))
	require.NoError(t, w.Record(context.Background(), testRecord(2)))

	// Below the flush interval nothing hits the disk yet.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, content)

	require.NoError(t, w.Record(context.Background(), testRecord(3)))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}

func TestVerifyDetectsAlteredEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	writeJournal(t, path, 3)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)

	// Rewrite history on the second entry.
	lines[1] = strings.Replace(lines[1], `"GET"`, `"DELETE"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))

	n, err := VerifyFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "altered")
	assert.Equal(t, 1, n)
}

func TestVerifyDetectsRemovedEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	writeJournal(t, path, 3)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)

	// Drop the middle entry; the chain must report the splice.
	spliced := lines[0] + "\n" + lines[2] + "\n"
	require.NoError(t, os.WriteFile(path, []byte(spliced), 0600))

	_, err = VerifyFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "chain broken")
}

func TestExportAndOpen(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "requests.jrnl")
	dst := filepath.Join(dir, "requests.zjrnl")
	writeJournal(t, src, 4)

	require.NoError(t, Export(src, dst))

	// The export is a snappy framed stream, not plain NDJSON.
	header, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, isSnappyFramed(header))

	plain, err := Open(src)
	require.NoError(t, err)
	exported, err := Open(dst)
	require.NoError(t, err)
	assert.Equal(t, plain, exported)

	// Verification works on the compressed form directly.
	n, err := VerifyFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.jrnl"))
	require.Error(t, err)
}

func TestVerifyEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.jrnl")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	n, err := VerifyFile(path)
	require.NoError(t, err)
	assert.Zero(t, n)
}
