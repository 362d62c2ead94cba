// Package testutil builds tar fixtures and in-memory archive sources.
package testutil

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Epoch is a fixed timestamp fixtures are built around.
var Epoch = time.Unix(1_000_000_000, 0)

// TarEntry describes one member of a fixture archive. A Path ending in "/"
// is written as a directory.
type TarEntry struct {
	Path    string
	ModTime time.Time
	Body    string
}

// Dir returns a directory entry modified at Epoch plus offset seconds.
func Dir(path string, offset int64) TarEntry {
	return TarEntry{Path: path, ModTime: Epoch.Add(time.Duration(offset) * time.Second)}
}

// File returns a file entry modified at Epoch plus offset seconds.
func File(path string, offset int64, body string) TarEntry {
	return TarEntry{Path: path, ModTime: Epoch.Add(time.Duration(offset) * time.Second), Body: body}
}

// BuildTar writes entries, in order, as an uncompressed USTAR archive.
func BuildTar(tb testing.TB, entries []TarEntry) []byte {
	tb.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Path,
			ModTime: e.ModTime.Truncate(time.Second),
			Format:  tar.FormatUSTAR,
		}
		if strings.HasSuffix(e.Path, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Mode = 0o644
			hdr.Size = int64(len(e.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tb.Fatalf("write header %s: %v", e.Path, err)
		}
		if hdr.Size > 0 {
			if _, err := io.WriteString(tw, e.Body); err != nil {
				tb.Fatalf("write body %s: %v", e.Path, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		tb.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

// Gzip compresses data.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		tb.Fatalf("zstd writer: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// WriteFile writes data to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MemSource serves the same bytes on every Open.
type MemSource struct {
	data  []byte
	opens atomic.Int64
}

// NewMemSource returns a source backed by data.
func NewMemSource(data []byte) *MemSource {
	return &MemSource{data: data}
}

// Open returns a reader over the backing bytes.
func (m *MemSource) Open(context.Context) (io.ReadCloser, error) {
	m.opens.Add(1)
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// Opens reports how many times Open was called.
func (m *MemSource) Opens() int64 {
	return m.opens.Load()
}

// ErrUnavailable is returned by FailingSource.
var ErrUnavailable = errors.New("archive unavailable")

// FailingSource fails every Open.
type FailingSource struct{}

// Open always returns ErrUnavailable.
func (FailingSource) Open(context.Context) (io.ReadCloser, error) {
	return nil, ErrUnavailable
}

// ReaderSource wraps each Open's reader with a transform, such as
// iotest.OneByteReader.
type ReaderSource struct {
	Data []byte
	Wrap func(io.Reader) io.Reader
}

// Open returns the wrapped reader.
func (r ReaderSource) Open(context.Context) (io.ReadCloser, error) {
	var rd io.Reader = bytes.NewReader(r.Data)
	if r.Wrap != nil {
		rd = r.Wrap(rd)
	}
	return io.NopCloser(rd), nil
}

// Project returns the entries of a small source tree used across tests:
//
//	proj/              dir
//	proj/Makefile      30s, 3 bytes
//	proj/src/          dir
//	proj/src/a.c       50s, 2000 bytes
//	proj/src/b.h       20s, 1 byte
//	proj/docs/         dir
//	proj/docs/logo.png 10s, 4 bytes
//
// Directory times are older than their contents.
func Project() []TarEntry {
	return []TarEntry{
		Dir("proj/", 0),
		File("proj/Makefile", 30, "all"),
		Dir("proj/src/", 1),
		File("proj/src/a.c", 50, strings.Repeat("x", 2000)),
		File("proj/src/b.h", 20, "y"),
		Dir("proj/docs/", 2),
		File("proj/docs/logo.png", 10, "\x89PNG"),
	}
}

// DotRooted returns the layout tar writes for "tar -cf x.tar .": every
// path, including the base, starts with "./".
func DotRooted() []TarEntry {
	return []TarEntry{
		Dir("./", 0),
		File("./README", 40, "hello"),
		File("./empty.txt", 5, ""),
		Dir("./src/", 1),
		File("./src/main.c", 30, "int main;"),
	}
}
