// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

// Package lattice implements the fixed sphere lattice that backs
// coordinate addressing.
//
// A lattice is a set of fixed unit vectors (108 by default) generated
// once by a spherical Fibonacci spiral. Keys are placed on the lattice
// by reducing a keyed digest modulo the point count; the remaining
// digest bits become a sub-bucket so that many keys can share one
// point without colliding. The lattice is a stable coordinate
// namespace and grouping key, not render geometry.
package lattice
