// nav/approach.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"log/slog"
	"time"

	"github.com/simwidget/gpsnav/aviation"
	"github.com/simwidget/gpsnav/math"
)

// ApproachPhase tracks progression through an instrument approach.
type ApproachPhase int

const (
	PhaseNone ApproachPhase = iota
	PhaseTerminal
	PhaseApproach // armed
	PhaseFAF
	PhaseMAP
	PhaseMissed
)

func (p ApproachPhase) String() string {
	return []string{"", "TERM", "APR", "FAF", "MAP", "MISSED"}[p]
}

// Altitude gain above the running minimum since the missed approach point
// that triggers the missed-approach transition.
const missedApproachClimb = 200 // ft

// approachState is the approach phase machine's private state. The
// FAF/MAP indices are resolved once per approach load; both are -1 when
// no approach is loaded.
type approachState struct {
	phase        ApproachPhase
	missedActive bool

	fafIndex int
	mapIndex int

	// Running minimum altitude since entering PhaseMAP; the missed
	// approach trigger is a climb of more than missedApproachClimb above
	// it.
	mapMinAltitude  float32
	haveMinAltitude bool
}

func (a *approachState) reset() {
	*a = approachState{fafIndex: -1, mapIndex: -1}
}

// identifyFixes resolves the FAF and MAP plan indices for a loaded
// approach: the MAP is the last approach-tagged waypoint; the FAF is the
// latest approach waypoint before it that carries both an altitude
// constraint and a course- or track-to-fix leg. If no waypoint qualifies,
// fall back to two thirds of the way through the approach segment.
func (a *approachState) identifyFixes(plan *aviation.FlightPlan) {
	a.fafIndex, a.mapIndex = -1, -1

	first := -1
	for i, wp := range plan.Waypoints {
		if wp.Procedure == aviation.ProcApproach {
			if first < 0 {
				first = i
			}
			a.mapIndex = i
		}
	}
	if a.mapIndex < 0 {
		return
	}

	for i := a.mapIndex; i >= first; i-- {
		wp := plan.Waypoints[i]
		if wp.Procedure != aviation.ProcApproach || !wp.HasConstraint() {
			continue
		}
		if wp.Leg == aviation.LegCourseToFix || wp.Leg == aviation.LegTrackToFix {
			a.fafIndex = i
			break
		}
	}
	if a.fafIndex < 0 {
		a.fafIndex = first + int(0.66*float32(a.mapIndex-first))
	}
}

// invalidateIndices re-resolves the FAF/MAP after a structural plan edit.
func (a *approachState) invalidateIndices(plan *aviation.FlightPlan) {
	if plan.Approach == nil {
		a.reset()
	} else {
		a.identifyFixes(plan)
	}
}

// updateApproach advances the approach phase machine. Before the FAF the
// phase follows the distance to the FAF fix (and can fall back to
// terminal or inactive as it grows); from the FAF on it follows the
// active index, so it can never skip the FAF on the way to the MAP. Must
// be called with the mutex held.
func (n *Nav) updateApproach(t Telemetry, now time.Time) {
	a := &n.approach
	if n.Plan.Approach == nil || a.fafIndex < 0 || a.mapIndex < 0 {
		a.phase = PhaseNone
		return
	}
	if a.phase == PhaseMissed {
		return
	}

	prev := a.phase
	idx := n.Plan.ActiveIndex

	switch {
	case idx >= a.mapIndex:
		a.phase = PhaseMAP

	case idx >= a.fafIndex:
		a.phase = PhaseFAF

	default:
		fafLoc := n.Plan.Waypoints[a.fafIndex].Location
		if fafLoc.IsZero() {
			return
		}
		switch d := math.NMDistance2LL(t.Position, fafLoc); {
		case d <= 2:
			a.phase = PhaseApproach
		case d <= 30:
			a.phase = PhaseTerminal
		default:
			a.phase = PhaseNone
		}
	}

	if a.phase != prev {
		n.enterApproachPhase(a.phase, now)
	}

	if a.phase == PhaseMAP {
		n.checkMissedApproach(t, now)
	}
}

// enterApproachPhase fires the side effects of a phase transition. Must
// be called with the mutex held.
func (n *Nav) enterApproachPhase(phase ApproachPhase, now time.Time) {
	n.eventStream.Post(Event{Type: ApproachPhaseEvent, Phase: phase})
	n.lg.Info("approach phase", slog.String("phase", phase.String()))

	switch phase {
	case PhaseFAF:
		// Crossing into the final segment of a localizer-based approach:
		// ask the host to tune the localizer and to drive the CDI from
		// the radio instead of GPS.
		if apr := n.Plan.Approach; apr.Type.IsLocalizerBased() {
			if apr.ILSFrequency > 0 {
				n.eventStream.Post(Event{Type: TuneRadioEvent, Frequency: apr.ILSFrequency,
					ToIdent: apr.ILSIdent})
			}
			n.eventStream.Post(Event{Type: CDISourceEvent, Source: CDISourceNAV})
		}

	case PhaseMAP:
		n.approach.haveMinAltitude = false
	}
}

// checkMissedApproach watches for a climb past the missed approach point:
// once the altitude rises more than 200 ft above the running minimum
// recorded since entering PhaseMAP, the pilot has gone around. Must be
// called with the mutex held.
func (n *Nav) checkMissedApproach(t Telemetry, now time.Time) {
	a := &n.approach
	if !a.haveMinAltitude || t.Altitude < a.mapMinAltitude {
		a.mapMinAltitude = t.Altitude
		a.haveMinAltitude = true
		return
	}
	if t.Altitude <= a.mapMinAltitude+missedApproachClimb {
		return
	}

	a.phase = PhaseMissed
	a.missedActive = true

	// Back to GPS guidance for the published missed approach procedure,
	// and force the sequencer onto its first leg.
	n.eventStream.Post(Event{Type: CDISourceEvent, Source: CDISourceGPS})
	n.advanceWaypoint(now)
	n.eventStream.Post(Event{Type: MissedApproachEvent})
	n.eventStream.Post(Event{Type: ApproachPhaseEvent, Phase: PhaseMissed})
	n.lg.Info("missed approach", slog.Float64("altitude", float64(t.Altitude)),
		slog.Float64("minimum", float64(a.mapMinAltitude)))
}

///////////////////////////////////////////////////////////////////////////

// ApproachStatus is the published approach-progress snapshot.
type ApproachStatus struct {
	Phase    ApproachPhase
	FAFIdent string
	MAPIdent string
	Missed   bool
}

// approachStatus must be called with the mutex held.
func (n *Nav) approachStatus() ApproachStatus {
	s := ApproachStatus{Phase: n.approach.phase, Missed: n.approach.missedActive}
	if i := n.approach.fafIndex; i >= 0 && i < len(n.Plan.Waypoints) {
		s.FAFIdent = n.Plan.Waypoints[i].Ident
	}
	if i := n.approach.mapIndex; i >= 0 && i < len(n.Plan.Waypoints) {
		s.MAPIdent = n.Plan.Waypoints[i].Ident
	}
	return s
}

// ApproachStatus returns the approach-progress snapshot from the most
// recent update.
func (n *Nav) ApproachStatus() ApproachStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.approachStatus()
}
