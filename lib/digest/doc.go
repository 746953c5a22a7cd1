// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides the BLAKE3 content digests used throughout
// the storage engine.
//
// Two hash domains exist: the object domain (content identity of a
// stored payload, computed over its compressed bytes) and the lattice
// domain (placement of an arbitrary key on the coordinate lattice).
// Domain separation means the same input bytes never collide across
// the two uses.
package digest
