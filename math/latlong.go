// math/latlong.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
	gomath "math"
)

// EarthRadiusNM is the mean Earth radius in nautical miles used by all of
// the great-circle computations.
const EarthRadiusNM = 3440.065

const NauticalMilesToFeet = 6076.12
const FeetToNauticalMiles = 1 / NauticalMilesToFeet

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float32

func MakePoint2LL(latitude, longitude float32) Point2LL {
	return Point2LL{longitude, latitude}
}

func (p Point2LL) Longitude() float32 {
	return p[0]
}

func (p Point2LL) Latitude() float32 {
	return p[1]
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

// IsZero reports whether the point is exactly (0,0). A zero point is
// treated throughout as "no position fix" rather than as a valid fix at
// the intersection of the equator and the prime meridian.
func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// NMDistance2LL returns the great-circle distance in nautical miles
// between two provided lat-long coordinates, via the haversine formula.
func NMDistance2LL(a Point2LL, b Point2LL) float32 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	rad := func(d float32) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(a[1]), rad(a[0])
	lat2, lon2 := rad(b[1]), rad(b[0])
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))

	return float32(EarthRadiusNM * c)
}

// Bearing2LL returns the great-circle initial bearing in degrees [0,360)
// from the first point to the second.
func Bearing2LL(from Point2LL, to Point2LL) float32 {
	rad := func(d float32) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(from[1]), rad(from[0])
	lat2, lon2 := rad(to[1]), rad(to[0])
	dlon := lon2 - lon1

	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	theta := gomath.Atan2(y, x)

	return NormalizeHeading(float32(theta * 180 / gomath.Pi))
}

// CrossTrackDistance2LL returns the signed perpendicular distance in
// nautical miles from point p to the great circle that passes through
// start with the given initial course (degrees true). Negative values are
// left of course, positive right.
func CrossTrackDistance2LL(start Point2LL, course float32, p Point2LL) float32 {
	d13 := NMDistance2LL(start, p) / EarthRadiusNM
	theta13 := Radians(Bearing2LL(start, p))
	theta12 := Radians(course)

	xt := gomath.Asin(gomath.Sin(float64(d13)) * gomath.Sin(float64(theta13-theta12)))
	return float32(xt) * EarthRadiusNM
}
