// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import "fmt"

// AddressKind selects one of the four independent addressing schemes.
// Each kind has its own index table; all four reference the shared
// object pool.
type AddressKind uint8

const (
	// KindPath addresses content by a slash-delimited hierarchical
	// string, e.g. "/users/alice/profile".
	KindPath AddressKind = iota + 1

	// KindHash addresses content by its own digest (identity
	// mapping). The address value is the 64-character hex digest.
	KindHash

	// KindCoordinate addresses content by a lattice point index plus
	// a sub-bucket, rendered "<point>/<sub-bucket>".
	KindCoordinate

	// KindTime addresses content by an ISO-8601 bucket truncated to
	// the minute, e.g. "2026-08-28T14:05".
	KindTime
)

// String returns the lowercase name of the kind.
func (k AddressKind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindHash:
		return "hash"
	case KindCoordinate:
		return "coordinate"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses an address kind from its string name.
func ParseKind(name string) (AddressKind, error) {
	switch name {
	case "path":
		return KindPath, nil
	case "hash":
		return KindHash, nil
	case "coordinate":
		return KindCoordinate, nil
	case "time":
		return KindTime, nil
	default:
		return 0, fmt.Errorf("unknown address kind: %q", name)
	}
}

// Kinds lists every address kind, in table order. Used by reference
// counting, garbage collection, and the health summary, which must all
// cover every index.
func Kinds() []AddressKind {
	return []AddressKind{KindPath, KindHash, KindCoordinate, KindTime}
}

// table returns the index table name for the kind. The returned string
// is interpolated into SQL, so it must come from this fixed set, never
// from caller input.
func (k AddressKind) table() (string, error) {
	switch k {
	case KindPath:
		return "addr_path", nil
	case KindHash:
		return "addr_hash", nil
	case KindCoordinate:
		return "addr_coord", nil
	case KindTime:
		return "addr_time", nil
	default:
		return "", fmt.Errorf("unknown address kind: %d", uint8(k))
	}
}
