package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
)

// snappyMagic is the header of a snappy framed stream.
var snappyMagic = []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}

// isSnappyFramed checks for the standard snappy framed stream header.
func isSnappyFramed(data []byte) bool {
	return len(data) >= len(snappyMagic) && bytes.HasPrefix(data, snappyMagic)
}

// Verify walks a journal stream and checks every entry: the hash must match
// the entry's canonical form, the chain must be unbroken, and sequence
// numbers must be contiguous. Returns the number of verified entries. The
// error names the first line that fails.
func Verify(r io.Reader) (int, error) {
	scanner := newJournalScanner(r)

	line := 0
	entries := 0
	prevHash := ""
	prevSeq := 0

	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return entries, fmt.Errorf("line %d: invalid entry: %w", line, err)
		}

		computed, err := entryHash(e)
		if err != nil {
			return entries, fmt.Errorf("line %d: %w", line, err)
		}
		if e.Hash != computed {
			return entries, fmt.Errorf("line %d: entry has been altered (hash mismatch)", line)
		}
		if e.PrevHash != prevHash {
			return entries, fmt.Errorf("line %d: hash chain broken", line)
		}
		if e.Seq != prevSeq+1 {
			return entries, fmt.Errorf("line %d: sequence gap: expected %d, found %d", line, prevSeq+1, e.Seq)
		}

		prevHash = e.Hash
		prevSeq = e.Seq
		entries++
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// VerifyFile verifies a journal file, transparently decompressing snappy
// exports.
func VerifyFile(path string) (int, error) {
	r, closeFn, err := openReader(path)
	if err != nil {
		return 0, err
	}
	defer closeFn()
	return Verify(r)
}

// Open reads all entries of a journal file, plain or exported.
func Open(path string) ([]Entry, error) {
	r, closeFn, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var entries []Entry
	scanner := newJournalScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: invalid entry: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// openReader opens a journal file and returns a reader that yields NDJSON,
// decompressing when the file is a snappy export.
func openReader(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	header := make([]byte, len(snappyMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()
		return nil, nil, err
	}

	var r io.Reader = io.MultiReader(bytes.NewReader(header[:n]), f)
	if isSnappyFramed(header[:n]) {
		r = snappy.NewReader(r)
	}
	return r, func() { f.Close() }, nil
}

// Export writes a snappy-compressed copy of the journal, suitable for
// attaching to a support case. The source file is left untouched.
func Export(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}

	snappyWriter := snappy.NewBufferedWriter(out)
	if _, err := io.Copy(snappyWriter, in); err != nil {
		out.Close()
		return fmt.Errorf("compression failed: %w", err)
	}
	if err := snappyWriter.Close(); err != nil {
		out.Close()
		return fmt.Errorf("snappy close failed: %w", err)
	}
	return out.Close()
}
