// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest. All content identities in the
// storage engine (object digests, lattice key digests) are this size.
type Digest [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures that the same input bytes produce different
// digests in different contexts, preventing cross-domain collisions.
type domainKey [32]byte

// Domain separation keys. These are fixed constants — changing them
// invalidates every digest already persisted in that domain. The byte
// values are the ASCII encoding of the domain name, zero-padded to 32
// bytes, so the keys are inspectable in hex dumps without losing any
// cryptographic property (BLAKE3 keyed mode treats the key as an
// opaque 32-byte value).
var (
	objectDomainKey = domainKey{
		's', 'p', 'h', 'e', 'r', 'e', 'o', 's', '.', 'o', 'b', 'j', 'e', 'c', 't', 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	latticeDomainKey = domainKey{
		's', 'p', 'h', 'e', 'r', 'e', 'o', 's', '.', 'l', 'a', 't', 't', 'i', 'c', 'e',
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Object computes the object-domain digest of the given bytes. This is
// the content identity stored in the object table and referenced by
// every address entry. It is always computed over the compressed
// payload, so it doubles as an integrity check on the stored blob.
func Object(data []byte) Digest {
	return keyedHash(objectDomainKey, data)
}

// LatticeKey computes the lattice-domain digest of a coordinate key.
// The lattice mapper reduces this digest to a point index and
// sub-bucket; the separate domain keeps lattice placement independent
// of object identity for the same bytes.
func LatticeKey(key []byte) Digest {
	return keyedHash(latticeDomainKey, key)
}

// Format returns the hex-encoded string representation of a digest.
// This is the canonical form used in the database, logs, and CLI
// output.
func Format(d Digest) string {
	return hex.EncodeToString(d[:])
}

// Parse parses a 64-character hex string into a Digest.
func Parse(hexString string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != 32 {
		return d, fmt.Errorf("digest is %d bytes, want 32", len(decoded))
	}
	copy(d[:], decoded)
	return d, nil
}

// keyedHash computes the BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Digest {
	// NewKeyed requires exactly 32 bytes, which domainKey guarantees.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
