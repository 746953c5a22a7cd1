// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"fmt"
	"math"
	"testing"
)

func TestNewRejectsZeroPoints(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) succeeded, want error")
	}
	if _, err := New(-5); err == nil {
		t.Error("New(-5) succeeded, want error")
	}
}

func TestPointsAreUnitVectors(t *testing.T) {
	l := MustNew(DefaultPointCount)

	for i := 0; i < l.Count(); i++ {
		p, err := l.PointAt(i)
		if err != nil {
			t.Fatalf("PointAt(%d): %v", i, err)
		}
		norm := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		if math.Abs(norm-1.0) > 1e-9 {
			t.Errorf("point %d has norm %g, want 1.0", i, norm)
		}
	}
}

func TestPointAtRange(t *testing.T) {
	l := MustNew(DefaultPointCount)
	if _, err := l.PointAt(-1); err == nil {
		t.Error("PointAt(-1) succeeded, want error")
	}
	if _, err := l.PointAt(DefaultPointCount); err == nil {
		t.Errorf("PointAt(%d) succeeded, want error", DefaultPointCount)
	}
}

func TestCoordinateForDeterministic(t *testing.T) {
	l := MustNew(DefaultPointCount)

	key := []byte("/users/alice/profile")
	point1, bucket1 := l.CoordinateFor(key)
	point2, bucket2 := l.CoordinateFor(key)

	if point1 != point2 || bucket1 != bucket2 {
		t.Errorf("CoordinateFor not deterministic: (%d,%s) vs (%d,%s)",
			point1, bucket1, point2, bucket2)
	}
	if point1 < 0 || point1 >= DefaultPointCount {
		t.Errorf("point %d out of range [0,%d)", point1, DefaultPointCount)
	}
	if len(bucket1) != 56 { // 28 remaining digest bytes, hex-encoded
		t.Errorf("sub-bucket is %d chars, want 56", len(bucket1))
	}
}

func TestCoordinateForDistribution(t *testing.T) {
	// Chi-square test: point indexes for distinct keys should approach
	// a uniform distribution over the lattice. With 108 cells (107
	// degrees of freedom) the 0.999 quantile is about 165; a healthy
	// digest-based reduction sits far below that.
	l := MustNew(DefaultPointCount)

	const samples = 108 * 200
	counts := make([]int, DefaultPointCount)
	for i := 0; i < samples; i++ {
		point, _ := l.CoordinateFor([]byte(fmt.Sprintf("key-%d", i)))
		counts[point]++
	}

	expected := float64(samples) / float64(DefaultPointCount)
	chiSquare := 0.0
	for _, observed := range counts {
		diff := float64(observed) - expected
		chiSquare += diff * diff / expected
	}

	if chiSquare > 165.0 {
		t.Errorf("chi-square statistic %.1f exceeds 165 (107 dof, p=0.999); distribution is not uniform", chiSquare)
	}
}

func TestCoordinateForConfigurableCount(t *testing.T) {
	small := MustNew(12)
	for i := 0; i < 100; i++ {
		point, _ := small.CoordinateFor([]byte(fmt.Sprintf("key-%d", i)))
		if point < 0 || point >= 12 {
			t.Fatalf("point %d out of range [0,12)", point)
		}
	}
}

func TestAngularDistance(t *testing.T) {
	l := MustNew(DefaultPointCount)

	// Distance to self is zero.
	d, err := l.AngularDistance(5, 5)
	if err != nil {
		t.Fatalf("AngularDistance: %v", err)
	}
	if d != 0 {
		t.Errorf("self-distance = %g, want 0", d)
	}

	// Symmetric.
	ab, _ := l.AngularDistance(3, 80)
	ba, _ := l.AngularDistance(80, 3)
	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("asymmetric distances: %g vs %g", ab, ba)
	}

	// Bounded by π.
	for i := 0; i < l.Count(); i++ {
		d, _ := l.AngularDistance(0, i)
		if d < 0 || d > math.Pi+1e-9 {
			t.Errorf("distance(0,%d) = %g outside [0,π]", i, d)
		}
	}
}

func TestNearestOrdering(t *testing.T) {
	l := MustNew(DefaultPointCount)

	nearest, err := l.Nearest(42, 10)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(nearest) != 10 {
		t.Fatalf("got %d results, want 10", len(nearest))
	}
	if nearest[0] != 42 {
		t.Errorf("first result = %d, want the origin point 42", nearest[0])
	}

	// Distances must be non-decreasing.
	previous := -1.0
	for _, index := range nearest {
		d, _ := l.AngularDistance(42, index)
		if d < previous {
			t.Errorf("results not sorted by distance: %g after %g", d, previous)
		}
		previous = d
	}
}

func TestNearestClampsCount(t *testing.T) {
	l := MustNew(12)
	nearest, err := l.Nearest(0, 100)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(nearest) != 12 {
		t.Errorf("got %d results, want 12 (entire lattice)", len(nearest))
	}
}

func TestAddressRoundTrip(t *testing.T) {
	l := MustNew(DefaultPointCount)
	point, bucket := l.CoordinateFor([]byte("round-trip"))

	address := FormatAddress(point, bucket)
	parsedPoint, parsedBucket, err := ParseAddress(address)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", address, err)
	}
	if parsedPoint != point || parsedBucket != bucket {
		t.Errorf("round trip: got (%d,%s), want (%d,%s)", parsedPoint, parsedBucket, point, bucket)
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	for _, input := range []string{"", "42", "/bucket", "42/", "x/bucket", "-1/bucket"} {
		if _, _, err := ParseAddress(input); err == nil {
			t.Errorf("ParseAddress(%q) succeeded, want error", input)
		}
	}
}
