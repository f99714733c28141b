package sheetsql

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression wrapper of a source file
// or an export target.
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionBZ2 represents bzip2 compression (decompression only)
	CompressionBZ2
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// String returns the string representation of CompressionType.
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionBZ2:
		return "bz2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension including the leading dot, or an
// empty string for CompressionNone.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return ".gz"
	case CompressionBZ2:
		return ".bz2"
	case CompressionXZ:
		return ".xz"
	case CompressionZSTD:
		return ".zst"
	default:
		return ""
	}
}

// ParseCompressionType converts a user-facing name such as "gz" or
// "zstd" to a CompressionType.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gz", "gzip":
		return CompressionGZ, nil
	case "bz2", "bzip2":
		return CompressionBZ2, nil
	case "xz":
		return CompressionXZ, nil
	case "zst", "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression type: %s", s)
	}
}

// detectCompression splits a file name into its compression wrapper and
// the remaining name. Matching is case-insensitive.
func detectCompression(name string) (CompressionType, string) {
	lower := strings.ToLower(name)
	for _, c := range []CompressionType{CompressionGZ, CompressionBZ2, CompressionXZ, CompressionZSTD} {
		if strings.HasSuffix(lower, c.Extension()) {
			return c, name[:len(name)-len(c.Extension())]
		}
	}
	return CompressionNone, name
}

// newReader wraps r with the matching decompressor.
func (c CompressionType) newReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGZ:
		return gzip.NewReader(r)
	case CompressionBZ2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case CompressionZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

// newWriter wraps w with the matching compressor. bzip2 has no writer
// in the standard library, so it is rejected for export.
func (c CompressionType) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionGZ:
		return gzip.NewWriter(w), nil
	case CompressionBZ2:
		return nil, errors.New("bzip2 compression is not supported for writing")
	case CompressionXZ:
		return xz.NewWriter(w)
	case CompressionZSTD:
		return zstd.NewWriter(w)
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
