// Package journal records executed API requests in a tamper-evident log.
// Entries form a sha256 hash chain over their canonical JSON form, so any
// edit, removal, or reordering of past entries is detectable. The journal is
// NDJSON on disk; exports are snappy-framed copies.
package journal

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/anand-gl/jsoncanonicalizer"
	jsonitor "github.com/json-iterator/go"

	"github.com/fleetwave/fleetwave/internal/fleetapi"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// Entry is one journaled request. Hash covers the canonical JSON form of the
// entry with the hash field cleared; PrevHash links it to the entry before
// it. The payload itself is not stored, only its digest.
type Entry struct {
	Seq        int       `json:"seq"`
	RequestID  string    `json:"requestId"`
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Outcome    string    `json:"outcome"`
	Code       string    `json:"code,omitempty"`
	HTTPStatus int       `json:"httpStatus,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
	Pages      int       `json:"pages,omitempty"`
	DurationMs int64     `json:"durationMs"`
	BodyDigest string    `json:"bodyDigest,omitempty"`
	PrevHash   string    `json:"prevHash"`
	Hash       string    `json:"hash,omitempty"`
}

// entryHash computes the chain hash of an entry: sha256 over the canonical
// JSON form with the hash field cleared. Canonicalization makes the hash
// independent of key order and encoding details.
func entryHash(e Entry) (string, error) {
	e.Hash = ""
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize entry: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Writer appends entries to a journal file, maintaining the hash chain.
// Reopening an existing journal continues its chain.
type Writer struct {
	file          *os.File
	path          string
	flushInterval int

	mu       sync.Mutex
	buffer   []Entry
	prevHash string
	seq      int
	closed   bool
}

// NewWriter opens the journal at path for appending, creating it if needed.
// Entries are buffered and written out every flushInterval entries; an
// interval of 1 writes through immediately, which is what a short-lived CLI
// process wants. Returns an error when the existing journal tail cannot be
// parsed, since appending to a damaged chain would mask the damage.
func NewWriter(path string, flushInterval int) (*Writer, error) {
	if flushInterval < 1 {
		flushInterval = 1
	}

	seq, prevHash, err := tailState(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Writer{
		file:          f,
		path:          path,
		flushInterval: flushInterval,
		buffer:        make([]Entry, 0, flushInterval),
		prevHash:      prevHash,
		seq:           seq,
	}, nil
}

// tailState reads the last entry of an existing journal so a new writer can
// continue its chain. A missing file starts a fresh chain.
func tailState(path string) (int, string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, "", nil
		}
		return 0, "", err
	}
	defer f.Close()

	scanner := newJournalScanner(f)
	var last []byte
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return 0, "", fmt.Errorf("failed to read journal: %w", err)
	}
	if last == nil {
		return 0, "", nil
	}

	var e Entry
	if err := json.Unmarshal(last, &e); err != nil {
		return 0, "", fmt.Errorf("journal tail is not a valid entry; run verify: %w", err)
	}
	return e.Seq, e.Hash, nil
}

// Path returns the journal file path.
func (w *Writer) Path() string {
	return w.path
}

// Record appends a journal entry for an executed request. Implements the
// executor's Recorder.
func (w *Writer) Record(_ context.Context, rec fleetapi.RequestRecord) error {
	e := Entry{
		RequestID:  rec.RequestID,
		Time:       time.Now().UTC(),
		Method:     rec.Method,
		URL:        rec.URL,
		Outcome:    string(rec.Status),
		Code:       rec.Code,
		HTTPStatus: rec.HTTPStatus,
		Attempts:   rec.Attempts,
		Pages:      rec.Pages,
		DurationMs: rec.Duration.Milliseconds(),
	}
	if len(rec.Payload) > 0 {
		sum := sha256.Sum256(rec.Payload)
		e.BodyDigest = hex.EncodeToString(sum[:])
	}
	return w.add(e)
}

var _ fleetapi.Recorder = &Writer{}

// add links the entry into the chain and buffers it for writing.
func (w *Writer) add(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("journal is closed")
	}

	w.seq++
	e.Seq = w.seq
	e.PrevHash = w.prevHash

	hash, err := entryHash(e)
	if err != nil {
		w.seq--
		return err
	}
	e.Hash = hash
	w.prevHash = hash

	w.buffer = append(w.buffer, e)
	if len(w.buffer) >= w.flushInterval {
		return w.flushLocked()
	}
	return nil
}

// flushLocked writes buffered entries to the journal file.
// Must be called with the mutex held.
func (w *Writer) flushLocked() error {
	for _, e := range w.buffer {
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if _, err := w.file.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	w.buffer = w.buffer[:0]
	return nil
}

// Flush writes all buffered entries to the journal file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Close flushes remaining entries and closes the journal file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if err := w.flushLocked(); err != nil {
		return err
	}
	err := w.file.Close()
	w.closed = true
	return err
}

// newJournalScanner returns a line scanner sized for journal entries, which
// can exceed bufio's default token limit when URLs run long.
func newJournalScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	const maxScanTokenSize = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxScanTokenSize)
	return scanner
}
