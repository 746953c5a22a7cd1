// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic CBOR encoding for the engine's
// metadata records.
//
// Object metadata (content type, original name, caller annotations) is
// persisted as a CBOR blob in the object table. Core Deterministic
// Encoding guarantees that re-encoding the same logical record yields
// identical bytes, so metadata never introduces spurious differences
// between otherwise identical objects. Consumers import only this
// package, not fxamacker/cbor directly.
package codec
