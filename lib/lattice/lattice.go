// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sphereos-foundation/sphereos/lib/digest"
)

// DefaultPointCount is the historical lattice size. Databases written
// by earlier deployments all use 108 points, so this is the default
// for interoperability; the count itself is configurable.
const DefaultPointCount = 108

// Point is one fixed unit vector on the sphere.
type Point struct {
	X, Y, Z float64
}

// Lattice is an immutable set of fixed points on the unit sphere,
// generated once at construction. All coordinate operations work over
// point indexes 0..Count()-1; the geometry is never recomputed.
type Lattice struct {
	points []Point
}

// New builds a lattice of n points placed by a spherical Fibonacci
// spiral: points are spaced along the vertical axis with a golden-angle
// rotation between consecutive points, which distributes them close to
// uniformly over the sphere. n must be at least 1.
func New(n int) (*Lattice, error) {
	if n < 1 {
		return nil, fmt.Errorf("lattice: point count %d, want at least 1", n)
	}

	// 2π(1 − 1/φ), the golden angle.
	goldenAngle := math.Pi * (3.0 - math.Sqrt(5.0))

	points := make([]Point, n)
	for i := range points {
		// Midpoint offset avoids placing points exactly at the poles.
		y := 1.0 - 2.0*(float64(i)+0.5)/float64(n)
		radius := math.Sqrt(1.0 - y*y)
		theta := goldenAngle * float64(i)

		points[i] = Point{
			X: radius * math.Cos(theta),
			Y: y,
			Z: radius * math.Sin(theta),
		}
	}

	return &Lattice{points: points}, nil
}

// MustNew is New for static configuration known to be valid. Panics on
// error.
func MustNew(n int) *Lattice {
	l, err := New(n)
	if err != nil {
		panic(err.Error())
	}
	return l
}

// Count returns the number of lattice points.
func (l *Lattice) Count() int {
	return len(l.points)
}

// PointAt returns the unit vector for a point index.
func (l *Lattice) PointAt(index int) (Point, error) {
	if index < 0 || index >= len(l.points) {
		return Point{}, fmt.Errorf("lattice: point index %d out of range [0,%d)", index, len(l.points))
	}
	return l.points[index], nil
}

// CoordinateFor deterministically assigns a key to a lattice point.
// The key's lattice-domain digest is reduced modulo the point count to
// select the point (the digest's avalanche property gives a near
// uniform distribution); the remaining digest bytes, hex-encoded, form
// the sub-bucket that disambiguates multiple keys on the same point.
//
// The same key always yields the same (point, subBucket) pair for a
// given point count.
func (l *Lattice) CoordinateFor(key []byte) (point int, subBucket string) {
	d := digest.LatticeKey(key)

	// The first four digest bytes, big-endian, select the point. This
	// matches the historical reduction int(hex_digest[:8], 16) % n.
	point = int(binary.BigEndian.Uint32(d[:4]) % uint32(len(l.points)))
	subBucket = hex.EncodeToString(d[4:])
	return point, subBucket
}

// AngularDistance returns the great-circle angle in radians between
// two lattice points.
func (l *Lattice) AngularDistance(a, b int) (float64, error) {
	pointA, err := l.PointAt(a)
	if err != nil {
		return 0, err
	}
	pointB, err := l.PointAt(b)
	if err != nil {
		return 0, err
	}

	dot := pointA.X*pointB.X + pointA.Y*pointB.Y + pointA.Z*pointB.Z

	// Floating point can push the dot product fractionally outside
	// [-1, 1], which would make Acos return NaN.
	if dot > 1.0 {
		dot = 1.0
	}
	if dot < -1.0 {
		dot = -1.0
	}
	return math.Acos(dot), nil
}

// Nearest returns up to n point indexes ordered by ascending angular
// distance from the given point. The origin point itself is first
// (distance zero). Ties are broken by ascending point index.
func (l *Lattice) Nearest(origin, n int) ([]int, error) {
	if _, err := l.PointAt(origin); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n > len(l.points) {
		n = len(l.points)
	}

	type candidate struct {
		index    int
		distance float64
	}

	candidates := make([]candidate, len(l.points))
	for i := range l.points {
		d, err := l.AngularDistance(origin, i)
		if err != nil {
			return nil, err
		}
		candidates[i] = candidate{index: i, distance: d}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].distance != candidates[b].distance {
			return candidates[a].distance < candidates[b].distance
		}
		return candidates[a].index < candidates[b].index
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = candidates[i].index
	}
	return result, nil
}

// FormatAddress renders a coordinate address from a point index and
// sub-bucket: "<zero-padded point>/<sub-bucket>". Zero padding keeps
// lexicographic ordering aligned with point index ordering for up to
// 1000 points.
func FormatAddress(point int, subBucket string) string {
	return fmt.Sprintf("%03d/%s", point, subBucket)
}

// ParseAddress splits a coordinate address back into its point index
// and sub-bucket.
func ParseAddress(address string) (point int, subBucket string, err error) {
	pointPart, bucketPart, found := strings.Cut(address, "/")
	if !found || pointPart == "" || bucketPart == "" {
		return 0, "", fmt.Errorf("lattice: malformed coordinate address %q", address)
	}
	point, err = strconv.Atoi(pointPart)
	if err != nil || point < 0 {
		return 0, "", fmt.Errorf("lattice: malformed coordinate address %q", address)
	}
	return point, bucketPart, nil
}
