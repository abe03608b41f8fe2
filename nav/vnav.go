// nav/vnav.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"github.com/simwidget/gpsnav/math"
	"github.com/simwidget/gpsnav/util"
)

// Ground speed assumed for time-to-waypoint when the telemetry doesn't
// supply one.
const defaultVNAVGroundSpeed = 120 // kt

// VNAVGuidance is the vertical guidance derived from the active
// waypoint's altitude constraint. Deviation is signed: positive above the
// constraint, negative below.
type VNAVGuidance struct {
	TargetAltitude        float32 // ft
	VerticalDeviation     float32 // ft
	RequiredVerticalSpeed float32 // fpm
	RestrictionText       string
}

// updateVNAV derives vertical guidance from the active waypoint's
// altitude constraint; without a constraint there is no vertical guidance
// at all. Must be called with the mutex held.
func (n *Nav) updateVNAV(t Telemetry) {
	n.vnav = nil
	if !n.hasActive || !n.active.PlanIndexed {
		return
	}
	wp, ok := n.Plan.ActiveWaypoint()
	if !ok || !wp.HasConstraint() || wp.Location.IsZero() {
		return
	}

	target := wp.Constraint.TargetAltitude()

	gs := util.Select(t.GroundSpeed > 0, t.GroundSpeed, defaultVNAVGroundSpeed)
	dist := math.NMDistance2LL(t.Position, wp.Location)
	timeMinutes := dist / gs * 60

	var requiredVS float32
	if timeMinutes > 0 {
		requiredVS = -(t.Altitude - target) / timeMinutes
	}

	n.vnav = &VNAVGuidance{
		TargetAltitude:        target,
		VerticalDeviation:     wp.Constraint.Deviation(t.Altitude),
		RequiredVerticalSpeed: requiredVS,
		RestrictionText:       wp.Constraint.Encoded(),
	}
}

// VNAVGuidance returns the vertical guidance from the most recent update,
// or nil when the active waypoint carries no altitude constraint.
func (n *Nav) VNAVGuidance() *VNAVGuidance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vnav
}
