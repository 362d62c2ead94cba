package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the transport compression of an archive.
type Compression uint8

const (
	CompressionAuto Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionAuto:
		return "auto"
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression maps a configuration value to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return CompressionAuto, nil
	case "none", "tar":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return CompressionAuto, fmt.Errorf("unknown compression %q", s)
	}
}

// DetectCompression infers the compression from an archive file name.
// Unrecognised names are assumed to be gzip, the usual source tarball.
func DetectCompression(name string) Compression {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return CompressionZstd
	case strings.HasSuffix(name, ".tar"):
		return CompressionNone
	default:
		return CompressionGzip
	}
}

// DefaultMaxDecoderMemory bounds zstd window allocation.
const DefaultMaxDecoderMemory = 256 << 20

// Decompress wraps r with a decoder for c. Closing the result releases the
// decoder but not r. CompressionAuto is treated as gzip.
func Decompress(r io.Reader, c Compression, maxDecoderMemory uint64) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionZstd:
		opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
		if maxDecoderMemory > 0 {
			opts = append(opts, zstd.WithDecoderMaxMemory(maxDecoderMemory))
		}
		dec, err := zstd.NewReader(r, opts...)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return zr, nil
	}
}
