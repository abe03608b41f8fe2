// math/heading.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// NormalizeHeading reduces a heading to [0,360).
func NormalizeHeading(h float32) float32 {
	if h < 0 {
		return 360 - NormalizeHeading(-h)
	}
	return Mod(h, 360)
}

// NormalizeAngle reduces an angle to [-180,180]; useful for signed turn
// and track-error computations where direction matters.
func NormalizeAngle(a float32) float32 {
	a = Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a < -180 {
		a += 360
	}
	return a
}

// HeadingDifference returns the minimum difference between two
// headings. (i.e., the result is always in the range [0,180].)
func HeadingDifference(a float32, b float32) float32 {
	var d float32
	if a > b {
		d = a - b
	} else {
		d = b - a
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

func OppositeHeading(h float32) float32 {
	return NormalizeHeading(h + 180)
}

// TrueToMagnetic converts a true bearing to magnetic using the given
// magnetic variation; the convention is that east variation is positive.
func TrueToMagnetic(trueBearing, variation float32) float32 {
	return NormalizeHeading(trueBearing - variation)
}

// MagneticToTrue is the inverse of TrueToMagnetic.
func MagneticToTrue(magneticBearing, variation float32) float32 {
	return NormalizeHeading(magneticBearing + variation)
}
