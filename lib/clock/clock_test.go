// Copyright 2026 The SphereOS Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now = %v, want %v", got, start)
	}

	fake.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := fake.Now(); !got.Equal(want) {
		t.Errorf("Now after Advance = %v, want %v", got, want)
	}
}

func TestFakeSet(t *testing.T) {
	fake := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	target := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)

	fake.Set(target)
	if got := fake.Now(); !got.Equal(target) {
		t.Errorf("Now after Set = %v, want %v", got, target)
	}
}

func TestRealAdvances(t *testing.T) {
	real := Real()
	first := real.Now()
	second := real.Now()
	if second.Before(first) {
		t.Errorf("real clock moved backwards: %v then %v", first, second)
	}
}
