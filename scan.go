package srcview

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"time"
)

// DefaultBlockSize is the tar framing unit.
const DefaultBlockSize = 512

// headerFields is the number of numeric fields that follow a member path.
// In order: mode, uid, gid, size, mtime, checksum, type flag.
const headerFields = 7

const (
	fieldSize  = 3
	fieldMtime = 4
)

// seek is the outcome of a bounded byte search in the scan buffer.
type seek int

const (
	seekFound   seek = iota
	seekTooLong      // no match within the limit
	seekEnded        // the stream ended first
)

// Scanner reads archive entries from a decompressed tar stream.
//
// The first block's leading NUL-terminated string is taken as the base
// prefix. Every later occurrence of that prefix in the stream is treated as
// the start of a header: a NUL-terminated path followed by seven
// NUL-terminated octal fields. Input is consumed one block at a time and
// only the unconsumed tail is buffered.
//
// Scanning stops at the first empty read. A header cut off by the end of
// the stream is dropped and reported by Truncated; read errors other than
// io.EOF are kept for Err. Neither is fatal.
//
// Successive calls to Scan step through the entries in stream order.
type Scanner struct {
	r         io.Reader
	blockSize int
	chunk     []byte
	buf       []byte
	base      []byte

	started   bool
	done      bool
	eof       bool
	truncated bool
	err       error
	entry     Entry
}

// NewScanner returns a Scanner reading from r in reads of blockSize bytes.
// A blockSize <= 0 uses DefaultBlockSize.
func NewScanner(r io.Reader, blockSize int) *Scanner {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Scanner{
		r:         r,
		blockSize: blockSize,
		chunk:     make([]byte, blockSize),
	}
}

// Scan advances to the next entry, which is then available through Entry.
// It returns false when the stream is exhausted.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	if !s.started {
		s.started = true
		if !s.readBase() {
			s.done = true
			return false
		}
	}

	for {
		if !s.findBase() {
			s.done = true
			return false
		}
		entry, n, res := s.parseHeader()
		switch res {
		case seekFound:
			s.entry = entry
			s.discard(n)
			return true
		case seekTooLong:
			// Not a header: the prefix occurred inside member content.
			s.discard(len(s.base))
		case seekEnded:
			s.truncated = true
			s.done = true
			return false
		}
	}
}

// Entry returns the most recent entry produced by Scan.
func (s *Scanner) Entry() Entry {
	return s.entry
}

// Base returns the base prefix, or "" before the first call to Scan or when
// the stream had none.
func (s *Scanner) Base() string {
	return string(s.base)
}

// Truncated reports whether the stream ended in the middle of a header.
func (s *Scanner) Truncated() bool {
	return s.truncated
}

// Err returns the first non-EOF read error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// readBase fills the first block and extracts the base prefix from it.
func (s *Scanner) readBase() bool {
	for len(s.buf) < s.blockSize {
		if !s.fill() {
			break
		}
	}
	first := s.buf
	if len(first) > s.blockSize {
		first = first[:s.blockSize]
	}
	end := bytes.IndexByte(first, 0)
	if end <= 0 {
		return false
	}
	s.base = bytes.Clone(first[:end])
	return true
}

// findBase positions the buffer at the next occurrence of the base prefix,
// reading more input until one is found or the stream ends.
func (s *Scanner) findBase() bool {
	for {
		if i := bytes.Index(s.buf, s.base); i >= 0 {
			s.discard(i)
			return true
		}
		// Only the last len(base)-1 bytes can still begin a match.
		if keep := len(s.base) - 1; len(s.buf) > keep {
			s.discard(len(s.buf) - keep)
		}
		if !s.fill() {
			return false
		}
	}
}

// parseHeader reads the path and numeric fields starting at buf[0].
// It returns the entry and the number of bytes consumed.
func (s *Scanner) parseHeader() (Entry, int, seek) {
	end, res := s.indexFrom(0, isNUL)
	if res != seekFound {
		return Entry{}, 0, res
	}
	path := string(s.buf[:end])

	var fields [headerFields]int64
	i := end
	for n := range fields {
		start, res := s.indexFrom(i, isNotNUL)
		if res != seekFound {
			return Entry{}, 0, res
		}
		stop, res := s.indexFrom(start, isNUL)
		if res != seekFound {
			return Entry{}, 0, res
		}
		fields[n] = parseOctal(s.buf[start:stop])
		i = stop
	}

	return Entry{
		Path:    path,
		ModTime: time.Unix(fields[fieldMtime], 0),
		Size:    fields[fieldSize],
	}, i, seekFound
}

// indexFrom returns the index of the first byte at or after i that satisfies
// match, reading more input as needed. At most one block is searched.
func (s *Scanner) indexFrom(i int, match func(byte) bool) (int, seek) {
	limit := i + s.blockSize
	for {
		for ; i < len(s.buf); i++ {
			if i >= limit {
				return i, seekTooLong
			}
			if match(s.buf[i]) {
				return i, seekFound
			}
		}
		if !s.fill() {
			return i, seekEnded
		}
	}
}

// fill appends one read from the underlying reader to the buffer.
// It returns false once a read produces no bytes.
func (s *Scanner) fill() bool {
	if s.eof {
		return false
	}
	n, err := s.r.Read(s.chunk)
	if n > 0 {
		s.buf = append(s.buf, s.chunk[:n]...)
	}
	if err != nil {
		if !errors.Is(err, io.EOF) && s.err == nil {
			s.err = err
		}
		s.eof = true
	}
	if n == 0 {
		s.eof = true
		return false
	}
	return true
}

// discard drops the first n buffered bytes, reusing the backing array.
func (s *Scanner) discard(n int) {
	s.buf = append(s.buf[:0], s.buf[n:]...)
}

func isNUL(b byte) bool    { return b == 0 }
func isNotNUL(b byte) bool { return b != 0 }

// parseOctal interprets the octal digits in b. Other bytes, such as the
// trailing space some writers put after a checksum, are ignored.
func parseOctal(b []byte) int64 {
	var v int64
	for _, c := range b {
		if c < '0' || c > '7' {
			continue
		}
		if v > (1<<62)>>3 {
			return v
		}
		v = v<<3 | int64(c-'0')
	}
	return v
}

// ScanEntries reads every entry from r and returns them sorted by path.
// A stream that cannot be read yields no entries; a truncated stream yields
// the entries parsed before the cut.
func ScanEntries(r io.Reader, blockSize int) []Entry {
	entries, _ := scanAll(NewScanner(r, blockSize))
	return entries
}

// scanAll drains s and sorts the result. Ascending path order places every
// directory before its descendants.
func scanAll(s *Scanner) ([]Entry, string) {
	var entries []Entry
	for s.Scan() {
		entries = append(entries, s.Entry())
	}
	slices.SortFunc(entries, compareEntries)
	return entries, s.Base()
}

// ReadBase returns the base prefix of the stream in r: the path of its
// first entry. It reads at most one block.
func ReadBase(r io.Reader, blockSize int) string {
	s := NewScanner(r, blockSize)
	if !s.readBase() {
		return ""
	}
	return s.Base()
}
