// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

func TestAutoRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"text", []byte(strings.Repeat("the quick brown fox jumps over the lazy dog\n", 200))},
		{"json-ish", []byte(strings.Repeat(`{"key":"value","count":42}`, 100))},
		{"single byte", []byte{7}},
		{"binary pattern", bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 500)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			compressed, tag, err := Auto(tc.data)
			if err != nil {
				t.Fatalf("Auto: %v", err)
			}

			decompressed, err := Decompress(compressed, tag, len(tc.data))
			if err != nil {
				t.Fatalf("Decompress (%s): %v", tag, err)
			}
			if !bytes.Equal(decompressed, tc.data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(decompressed), len(tc.data))
			}
		})
	}
}

func TestAutoDeterministic(t *testing.T) {
	data := []byte(strings.Repeat("determinism matters for dedup\n", 50))

	first, firstTag, err := Auto(data)
	if err != nil {
		t.Fatalf("Auto (first): %v", err)
	}
	second, secondTag, err := Auto(data)
	if err != nil {
		t.Fatalf("Auto (second): %v", err)
	}

	if firstTag != secondTag {
		t.Errorf("tags differ across runs: %s vs %s", firstTag, secondTag)
	}
	if !bytes.Equal(first, second) {
		t.Error("compressed output differs across runs for identical input")
	}
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	// Random bytes do not compress; Auto must return them unchanged.
	random := make([]byte, 4096)
	rng := rand.New(rand.NewSource(1))
	rng.Read(random)

	compressed, tag, err := Auto(random)
	if err != nil {
		t.Fatalf("Auto: %v", err)
	}
	if tag != None {
		t.Errorf("tag = %s, want none for random data", tag)
	}
	if !bytes.Equal(compressed, random) {
		t.Error("incompressible data was modified")
	}
}

func TestSelectPrefersZstdForText(t *testing.T) {
	text := []byte(strings.Repeat("structured log line with repeated fields\n", 300))
	if tag := Select(text); tag != Zstd {
		t.Errorf("Select(text) = %s, want zstd", tag)
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	data := []byte(strings.Repeat("abcdef", 100))
	compressed, tag, err := Auto(data)
	if err != nil {
		t.Fatalf("Auto: %v", err)
	}
	if tag == None {
		t.Skip("data unexpectedly incompressible")
	}

	if _, err := Decompress(compressed, tag, len(data)+1); err == nil {
		t.Error("Decompress with wrong rawSize succeeded, want error")
	}
}

func TestDecompressCorruptBlob(t *testing.T) {
	data := []byte(strings.Repeat("corruption check ", 100))
	compressed, tag, err := Auto(data)
	if err != nil {
		t.Fatalf("Auto: %v", err)
	}
	if tag == None {
		t.Skip("data unexpectedly incompressible")
	}

	corrupted := make([]byte, len(compressed))
	copy(corrupted, compressed)
	corrupted[len(corrupted)/2] ^= 0xFF

	if _, err := Decompress(corrupted, tag, len(data)); err == nil {
		t.Error("Decompress of corrupted blob succeeded, want error")
	}
}

func TestTagStringRoundTrip(t *testing.T) {
	for _, tag := range []Tag{None, LZ4, Zstd} {
		parsed, err := ParseTag(tag.String())
		if err != nil {
			t.Errorf("ParseTag(%q): %v", tag.String(), err)
			continue
		}
		if parsed != tag {
			t.Errorf("ParseTag(%q) = %d, want %d", tag.String(), parsed, tag)
		}
	}

	if _, err := ParseTag("brotli"); err == nil {
		t.Error("ParseTag of unknown name succeeded, want error")
	}
}
