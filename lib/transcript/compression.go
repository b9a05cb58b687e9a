// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream compression of an archive. The
// value is stored in the archive header; changing the numbers breaks
// existing archives.
type Compression uint8

const (
	// CompressionNone stores the CBOR payload as is.
	CompressionNone Compression = 0

	// CompressionLZ4 uses the LZ4 frame format. Fastest to write.
	CompressionLZ4 Compression = 1

	// CompressionZstd uses zstd at the default level. Transcripts are
	// text, and zstd gives the better ratio.
	CompressionZstd Compression = 2
)

// String returns the name used in configuration.
func (compression Compression) String() string {
	switch compression {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", compression)
	}
}

// ParseCompression parses a configuration name. The empty string
// selects zstd.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// nopWriteCloser lets an uncompressed stream share the close path of
// the compressed ones without closing the underlying file.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressor wraps w in the given compression. Close flushes the
// compressed stream but leaves w open.
func compressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil

	case CompressionLZ4:
		return lz4.NewWriter(w), nil

	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return encoder, nil

	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}

// decompressor wraps r to undo the given compression. Close releases
// decoder resources but leaves r open.
func decompressor(r io.Reader, compression Compression) (io.ReadCloser, error) {
	switch compression {
	case CompressionNone:
		return io.NopCloser(r), nil

	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return decoder.IOReadCloser(), nil

	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}
