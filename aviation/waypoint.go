// aviation/waypoint.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"log/slog"

	"github.com/simwidget/gpsnav/math"
)

///////////////////////////////////////////////////////////////////////////
// AltitudeConstraint

type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintAt
	ConstraintAtOrAbove
	ConstraintAtOrBelow
	ConstraintBetween
)

func (k ConstraintKind) String() string {
	return []string{"none", "at", "at_or_above", "at_or_below", "between"}[k]
}

// AltitudeConstraint is an ARINC-424-style altitude-constraint descriptor
// on a waypoint. Primary is the constraint altitude in feet; Secondary is
// only meaningful for ConstraintBetween, where Primary is the lower bound
// and Secondary the upper.
type AltitudeConstraint struct {
	Kind      ConstraintKind `json:"kind"`
	Primary   float32        `json:"primary,omitempty"`
	Secondary float32        `json:"secondary,omitempty"`
}

// TargetAltitude returns the altitude VNAV should aim for. For a BETWEEN
// constraint this is the lower bound, on the reasoning that the aircraft
// is descending toward the waypoint.
func (c AltitudeConstraint) TargetAltitude() float32 {
	return c.Primary
}

// Deviation returns the signed vertical deviation in feet of the given
// altitude from the constraint: positive above, negative below, zero when
// the constraint is satisfied.
func (c AltitudeConstraint) Deviation(altitude float32) float32 {
	switch c.Kind {
	case ConstraintAt:
		return altitude - c.Primary
	case ConstraintAtOrAbove:
		return min(0, altitude-c.Primary)
	case ConstraintAtOrBelow:
		return max(0, altitude-c.Primary)
	case ConstraintBetween:
		if altitude < c.Primary {
			return altitude - c.Primary
		} else if altitude > c.Secondary {
			return altitude - c.Secondary
		}
		return 0
	default:
		return 0
	}
}

// Encoded returns the constraint in the compact form used for display,
// e.g. "5000+" for "at or above 5000".
func (c AltitudeConstraint) Encoded() string {
	switch c.Kind {
	case ConstraintAt:
		return fmt.Sprintf("%.0f", c.Primary)
	case ConstraintAtOrAbove:
		return fmt.Sprintf("%.0f+", c.Primary)
	case ConstraintAtOrBelow:
		return fmt.Sprintf("%.0f-", c.Primary)
	case ConstraintBetween:
		return fmt.Sprintf("%.0f-%.0f", c.Primary, c.Secondary)
	default:
		return ""
	}
}

///////////////////////////////////////////////////////////////////////////
// Waypoint

// Waypoint is a single entry in a flight plan. Idents are unique within a
// plan but not globally.
type Waypoint struct {
	Ident      string             `json:"ident"`
	Location   math.Point2LL      `json:"location"`
	Constraint AltitudeConstraint `json:"constraint,omitzero"`
	Leg        LegType            `json:"leg,omitempty"`
	Procedure  ProcedureClass     `json:"procedure,omitempty"`
	Passed     bool               `json:"passed,omitempty"`

	// DistanceFromPrev caches the great-circle distance in nm from the
	// preceding waypoint in the plan; it is recomputed on structural
	// edits. Negative means unknown (first waypoint, or an unresolved
	// location).
	DistanceFromPrev float32 `json:"distance_from_prev"`
}

func (wp Waypoint) HasConstraint() bool {
	return wp.Constraint.Kind != ConstraintNone
}

func (wp Waypoint) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("ident", wp.Ident)}
	if wp.Constraint.Kind != ConstraintNone {
		attrs = append(attrs, slog.String("constraint", wp.Constraint.Encoded()))
	}
	if wp.Leg != LegNone {
		attrs = append(attrs, slog.String("leg", wp.Leg.String()))
	}
	if wp.Procedure != ProcNone {
		attrs = append(attrs, slog.String("procedure", wp.Procedure.String()))
	}
	if wp.Passed {
		attrs = append(attrs, slog.Bool("passed", true))
	}
	return slog.GroupValue(attrs...)
}

// LegGeometry is the read-only view of the active leg that the CDI, VNAV,
// and approach components consume; they never reach into the plan's
// internals.
type LegGeometry struct {
	To         math.Point2LL
	ToIdent    string
	From       math.Point2LL
	HasFrom    bool
	Distance   float32 // cached leg length in nm; negative if unknown
	Constraint AltitudeConstraint
	Leg        LegType
}
