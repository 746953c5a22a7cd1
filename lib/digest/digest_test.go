// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"strings"
	"testing"
)

func TestObjectDeterministic(t *testing.T) {
	a := Object([]byte("hello"))
	b := Object([]byte("hello"))
	if a != b {
		t.Errorf("same input produced different digests: %s vs %s", Format(a), Format(b))
	}

	c := Object([]byte("hello!"))
	if a == c {
		t.Error("different inputs produced the same digest")
	}
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("/users/alice/profile")
	if Object(data) == LatticeKey(data) {
		t.Error("object and lattice domains produced the same digest for identical input")
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	d := Object([]byte("round trip"))
	formatted := Format(d)

	if len(formatted) != 64 {
		t.Fatalf("formatted digest is %d chars, want 64", len(formatted))
	}
	if formatted != strings.ToLower(formatted) {
		t.Errorf("formatted digest is not lowercase hex: %s", formatted)
	}

	parsed, err := Parse(formatted)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != d {
		t.Errorf("round trip mismatch: %s != %s", Format(parsed), formatted)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "abcdef"},
		{"not hex", strings.Repeat("zz", 32)},
		{"too long", strings.Repeat("ab", 33)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.input); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tc.input)
			}
		})
	}
}
