// Package source provides archive byte sources: a local compressed file
// decoded in process, and external decompression and extraction commands.
package source

import (
	"context"
	"errors"
	"io"
	"os"
)

// File decompresses a local archive in process.
// It satisfies srcview.Source.
type File struct {
	path             string
	compression      Compression
	maxDecoderMemory uint64
}

// FileOption configures a File.
type FileOption func(*File)

// WithCompression overrides compression detection from the file name.
func WithCompression(c Compression) FileOption {
	return func(f *File) {
		f.compression = c
	}
}

// WithMaxDecoderMemory limits the memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) FileOption {
	return func(f *File) {
		f.maxDecoderMemory = limit
	}
}

// NewFile creates a File source for the archive at path. The file is not
// opened until Open is called.
func NewFile(path string, opts ...FileOption) (*File, error) {
	if path == "" {
		return nil, errors.New("archive path is empty")
	}
	f := &File{
		path:             path,
		maxDecoderMemory: DefaultMaxDecoderMemory,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.compression == CompressionAuto {
		f.compression = DetectCompression(path)
	}
	return f, nil
}

// Path returns the archive path.
func (f *File) Path() string {
	return f.path
}

// Compression returns the compression in effect.
func (f *File) Compression() Compression {
	return f.compression
}

// Open returns the decompressed archive stream.
func (f *File) Open(_ context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	dec, err := Decompress(fh, f.compression, f.maxDecoderMemory)
	if err != nil {
		fh.Close()
		return nil, err
	}
	return &stackedReadCloser{ReadCloser: dec, under: fh}, nil
}

// stackedReadCloser closes a decoder and then the stream beneath it.
type stackedReadCloser struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedReadCloser) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.under.Close())
}
