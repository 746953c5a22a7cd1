// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package storage implements the unified content store: one
// deduplicated object pool in a single SQLite file, reachable through
// four independent addressing schemes (path, hash, coordinate, time).
//
// Objects are compressed, digested over the compressed bytes, and
// inserted once per digest; every address entry is a (address →
// digest) binding in its kind's index table. Storing the same payload
// under ten addresses costs one object row and ten bindings. Deleting
// an address never touches object bytes; GC reclaims objects once no
// index references them.
//
// All writes run in IMMEDIATE transactions, so a store is atomic
// across the object pool and the index, and GC's reference scan
// cannot race a concurrent store into deleting a just-referenced
// object. Lock contention beyond the configured busy timeout surfaces
// as ErrBusy for the caller to retry.
//
// Coordinate addressing places keys on a fixed spherical lattice (see
// package lattice); the lattice point count is pinned in the database
// and verified on every open.
package storage
