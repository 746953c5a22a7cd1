// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies the compression algorithm used for a stored payload.
// Tags are persisted in the object table (one integer column each).
// These values are storage-format constants — changing them breaks
// every database written with the old values.
type Tag uint8

const (
	// None indicates uncompressed data. Selected when the payload is
	// incompressible (media, ciphertext, already-compressed archives)
	// and compression would only add CPU cost.
	None Tag = 0

	// LZ4 indicates LZ4 block compression. Fast default for binary
	// data with moderate redundancy.
	LZ4 Tag = 1

	// Zstd indicates zstd at the default level. Better ratios for
	// text-like payloads (JSON, logs, source trees).
	Zstd Tag = 2
)

// String returns the human-readable name of a tag.
func (t Tag) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseTag parses a tag from its string representation.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress compresses data with the algorithm identified by tag. For
// None, the input is returned unchanged (no copy).
func Compress(data []byte, tag Tag) ([]byte, error) {
	switch tag {
	case None:
		return data, nil
	case LZ4:
		return compressLZ4(data)
	case Zstd:
		return compressZstd(data)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// Decompress decompresses data that was compressed with the given tag.
// rawSize must match the original length exactly — a mismatch returns
// an error, which the storage layer treats as object corruption.
func Decompress(compressed []byte, tag Tag, rawSize int) ([]byte, error) {
	switch tag {
	case None:
		if len(compressed) != rawSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match expected %d",
				len(compressed), rawSize)
		}
		return compressed, nil
	case LZ4:
		return decompressLZ4(compressed, rawSize)
	case Zstd:
		return decompressZstd(compressed, rawSize)
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock returns 0 when it determines the data is
	// incompressible. Also reject output that is not actually smaller
	// than the input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}

	return destination[:written], nil
}

func decompressLZ4(compressed []byte, rawSize int) ([]byte, error) {
	destination := make([]byte, rawSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != rawSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawSize)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, rawSize int) ([]byte, error) {
	destination := make([]byte, 0, rawSize)
	result, err := zstdDecoder.DecodeAll(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != rawSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawSize)
	}
	return result, nil
}

// errIncompressible is returned by compression functions when the
// compressed output is not smaller than the input. The caller should
// fall back to None.
var errIncompressible = fmt.Errorf("data is incompressible")

// IsIncompressible reports whether the error indicates that data could
// not be compressed smaller than its original size.
func IsIncompressible(err error) bool {
	return err == errIncompressible
}

// Select probes data and picks a compression algorithm. It compresses
// with zstd and checks the ratio: above 1.5x zstd is selected, between
// 1.1x and 1.5x LZ4 (faster with acceptable ratio), below 1.1x the
// data is considered incompressible.
//
// Select depends only on the payload bytes. Deduplication requires
// byte-identical payloads to produce byte-identical stored blobs, so
// the selection must not vary with any out-of-band hint.
func Select(data []byte) Tag {
	if len(data) == 0 {
		return None
	}

	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))

	switch {
	case ratio >= 1.5:
		return Zstd
	case ratio >= 1.1:
		return LZ4
	default:
		return None
	}
}

// Auto compresses data with the algorithm chosen by [Select]. Returns
// the compressed bytes and the tag actually used; incompressible data
// comes back unchanged under None.
func Auto(data []byte) ([]byte, Tag, error) {
	tag := Select(data)

	compressed, err := Compress(data, tag)
	if err != nil {
		if IsIncompressible(err) {
			return data, None, nil
		}
		return nil, 0, err
	}

	return compressed, tag, nil
}
