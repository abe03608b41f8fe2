// math/math_test.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"testing"
)

func TestNMDistance2LL(t *testing.T) {
	p := MakePoint2LL(42.361145, -71.057083)
	if d := NMDistance2LL(p, p); d != 0 {
		t.Errorf("distance from a point to itself: got %g, expected 0", d)
	}

	// One degree of longitude at the equator.
	a, b := MakePoint2LL(0, 0), MakePoint2LL(0, 1)
	if d := NMDistance2LL(a, b); Abs(d-60.04) > 0.05 {
		t.Errorf("1 degree of longitude at the equator: got %g, expected ~60.04", d)
	}

	// Symmetry.
	c := MakePoint2LL(40.641766, -73.780968)
	dd := MakePoint2LL(33.942791, -118.410042)
	if d0, d1 := NMDistance2LL(c, dd), NMDistance2LL(dd, c); Abs(d0-d1) > 1e-3 {
		t.Errorf("distance is not symmetric: %g vs %g", d0, d1)
	}
}

func TestBearing2LL(t *testing.T) {
	// Due east along the equator.
	if b := Bearing2LL(MakePoint2LL(0, 0), MakePoint2LL(0, 1)); Abs(b-90) > 0.01 {
		t.Errorf("bearing due east: got %g, expected 90", b)
	}
	// Due north.
	if b := Bearing2LL(MakePoint2LL(0, 0), MakePoint2LL(1, 0)); b > 0.01 && b < 359.99 {
		t.Errorf("bearing due north: got %g, expected 0", b)
	}
	// Due west wraps to 270.
	if b := Bearing2LL(MakePoint2LL(0, 0), MakePoint2LL(0, -1)); Abs(b-270) > 0.01 {
		t.Errorf("bearing due west: got %g, expected 270", b)
	}
}

func TestCrossTrackDistance2LL(t *testing.T) {
	// Flying east along the equator; a point north of track is left of
	// course and so has negative cross-track distance.
	start := MakePoint2LL(0, 0)
	north := MakePoint2LL(0.1, 0.5)
	if xt := CrossTrackDistance2LL(start, 90, north); xt >= 0 {
		t.Errorf("point left of course: got cross-track %g, expected negative", xt)
	}
	south := MakePoint2LL(-0.1, 0.5)
	if xt := CrossTrackDistance2LL(start, 90, south); xt <= 0 {
		t.Errorf("point right of course: got cross-track %g, expected positive", xt)
	}

	// On course: deviation ~0.
	on := MakePoint2LL(0, 0.5)
	if xt := CrossTrackDistance2LL(start, 90, on); Abs(xt) > 0.01 {
		t.Errorf("point on course: got cross-track %g, expected ~0", xt)
	}

	// 0.1 degree of latitude is 6 nm.
	if xt := CrossTrackDistance2LL(start, 90, south); Abs(xt-6) > 0.05 {
		t.Errorf("cross-track magnitude: got %g, expected ~6", xt)
	}
}

func TestNormalize(t *testing.T) {
	for _, c := range []struct{ in, out float32 }{
		{0, 0}, {360, 0}, {-10, 350}, {725, 5}, {180, 180},
	} {
		if h := NormalizeHeading(c.in); Abs(h-c.out) > 1e-4 {
			t.Errorf("NormalizeHeading(%g): got %g, expected %g", c.in, h, c.out)
		}
	}

	for _, c := range []struct{ in, out float32 }{
		{0, 0}, {190, -170}, {-190, 170}, {180, 180}, {-180, -180}, {540, 180},
	} {
		if a := NormalizeAngle(c.in); Abs(a-c.out) > 1e-4 {
			t.Errorf("NormalizeAngle(%g): got %g, expected %g", c.in, a, c.out)
		}
	}
}

func TestMagneticConversion(t *testing.T) {
	// Positive variation is east: magnetic = true - variation.
	if m := TrueToMagnetic(100, 10); Abs(m-90) > 1e-4 {
		t.Errorf("TrueToMagnetic(100, 10): got %g, expected 90", m)
	}
	if tr := MagneticToTrue(90, 10); Abs(tr-100) > 1e-4 {
		t.Errorf("MagneticToTrue(90, 10): got %g, expected 100", tr)
	}
	// Round trip with west variation.
	if rt := MagneticToTrue(TrueToMagnetic(37, -13), -13); Abs(rt-37) > 1e-3 {
		t.Errorf("round trip with west variation: got %g, expected 37", rt)
	}
}

func TestHeadingDifference(t *testing.T) {
	if d := HeadingDifference(350, 10); Abs(d-20) > 1e-4 {
		t.Errorf("HeadingDifference(350, 10): got %g, expected 20", d)
	}
	if d := HeadingDifference(90, 270); Abs(d-180) > 1e-4 {
		t.Errorf("HeadingDifference(90, 270): got %g, expected 180", d)
	}
}
