// nav/cdi.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"github.com/simwidget/gpsnav/math"
)

// CDIMode is the phase-dependent sensitivity of the deviation indicator.
type CDIMode int

const (
	ModeEnroute CDIMode = iota
	ModeTerminal
	ModeApproach
)

func (m CDIMode) String() string {
	return []string{"ENR", "TERM", "APR"}[m]
}

// FullScaleDeflection returns the cross-track error in nm that pegs the
// needle in this mode.
func (m CDIMode) FullScaleDeflection() float32 {
	return [...]float32{5, 1, 0.3}[m]
}

const cdiNeedleScale = 127

// CDIGuidance is the per-tick lateral guidance snapshot. DesiredTrack and
// the OBS course are published in degrees magnetic; cross-track error is
// signed, positive right of course.
type CDIGuidance struct {
	Valid              bool
	DesiredTrack       float32
	CrossTrackError    float32 // nm
	Needle             int     // [-127, 127]
	DistanceToWaypoint float32 // nm
	To                 bool    // TO/FROM flag; meaningful with OBS active
	Mode               CDIMode
}

// updateCDI computes desired track and cross-track deviation against the
// active leg, or against the OBS course when the pilot has overridden it.
// Must be called with the mutex held.
func (n *Nav) updateCDI(t Telemetry) {
	if !n.hasActive || n.active.Location.IsZero() {
		n.cdi = CDIGuidance{}
		return
	}

	var desired, xtk float32 // degrees true, nm
	to := true

	switch {
	case n.obs.Active:
		// Deviation from the great circle through the waypoint on the
		// pilot-selected course.
		desired = n.obs.course
		xtk = math.CrossTrackDistance2LL(n.active.Location, desired, t.Position)
		to = math.HeadingDifference(math.Bearing2LL(t.Position, n.active.Location), desired) < 90

	case n.active.PlanIndexed:
		if leg, ok := n.Plan.ActiveLeg(); ok && leg.HasFrom {
			desired = math.Bearing2LL(leg.From, leg.To)
			xtk = math.CrossTrackDistance2LL(leg.From, desired, t.Position)
			break
		}
		fallthrough

	default:
		// Direct-to (or first waypoint): the desired track is the direct
		// bearing, so there is no cross-track error by construction.
		desired = math.Bearing2LL(t.Position, n.active.Location)
		xtk = 0
	}

	n.lastDesiredTrack = desired
	n.haveDesiredTrack = true

	mode := n.cdiMode(t.Position)
	fsd := mode.FullScaleDeflection()

	n.cdi = CDIGuidance{
		Valid:              true,
		DesiredTrack:       math.TrueToMagnetic(desired, t.MagneticVariation),
		CrossTrackError:    xtk,
		Needle:             int(math.Clamp(math.Round(xtk/fsd*cdiNeedleScale), -cdiNeedleScale, cdiNeedleScale)),
		DistanceToWaypoint: math.NMDistance2LL(t.Position, n.active.Location),
		To:                 to,
		Mode:               mode,
	}
}

// cdiMode picks the CDI sensitivity from the remaining along-route
// distance: approach scaling inside 2 nm of the destination with an
// approach loaded, terminal inside 30 nm, enroute otherwise.
func (n *Nav) cdiMode(pos math.Point2LL) CDIMode {
	remaining := n.Plan.DistanceRemaining(pos)
	if remaining < 0 && n.hasActive && !n.active.PlanIndexed {
		// Off-plan direct-to: scale on the direct distance.
		remaining = math.NMDistance2LL(pos, n.active.Location)
	}

	switch {
	case remaining < 0:
		return ModeEnroute
	case n.Plan.Approach != nil && remaining <= 2:
		return ModeApproach
	case remaining <= 30:
		return ModeTerminal
	default:
		return ModeEnroute
	}
}
