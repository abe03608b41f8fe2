// nav/lateral.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"log/slog"
	"time"

	"github.com/simwidget/gpsnav/math"
)

const (
	// Minimum interval between successive waypoint advances; a second
	// advance inside this window is assumed to be threshold jitter.
	sequenceDebounce = 3000 * time.Millisecond

	// Ground speed below which we assume the aircraft is taxiing (or the
	// feed is garbage) and never sequence.
	minSequenceGS = 15 // kt

	// Ground speed above which turn anticipation is worth computing.
	minTurnAnticipationGS = 30 // kt
)

// updateSequencing decides whether the active waypoint has been passed
// and, if so, advances to the next one. The test is distance against a
// leg-proportional threshold, widened by turn anticipation for sharp
// turns, and gated on track error so that passing abeam a fix on a
// parallel track doesn't sequence. Must be called with the mutex held.
func (n *Nav) updateSequencing(t Telemetry, now time.Time) {
	if n.obs.Suspended {
		return
	}
	// Off-plan direct-to: there is no next leg to sequence onto.
	if !n.hasActive || !n.active.PlanIndexed {
		return
	}
	if len(n.Plan.Waypoints) < 2 || n.Plan.ActiveIndex >= len(n.Plan.Waypoints)-1 {
		return
	}
	if now.Sub(n.lastSequenceTime) < sequenceDebounce {
		return
	}

	wp, ok := n.Plan.ActiveWaypoint()
	if !ok || wp.Location.IsZero() {
		return
	}

	dist := math.NMDistance2LL(t.Position, wp.Location)

	legDist := wp.DistanceFromPrev
	if legDist < 0 {
		legDist = 5
	}
	threshold := min(float32(0.5), legDist*0.10)

	// Turn anticipation: sequence early along the inside of a sharp turn
	// so we roll out established on the next leg instead of overshooting.
	if t.GroundSpeed > minTurnAnticipationGS {
		if next, ok := n.Plan.NextWaypoint(); ok && !next.Location.IsZero() {
			inbound := math.Bearing2LL(t.Position, wp.Location)
			outbound := math.Bearing2LL(wp.Location, next.Location)
			turnAngle := math.Abs(math.NormalizeAngle(outbound - inbound))

			if turnAngle > 10 {
				// Turn radius for a ~25 degree bank at this speed.
				radius := math.Sqr(t.GroundSpeed) / 52.5
				lead := radius * math.Tan(math.Radians(turnAngle/2))
				threshold = min(threshold+lead, 2.0)
			}
		}
	}

	if dist > threshold || t.GroundSpeed <= minSequenceGS {
		return
	}
	// Track-error gate: don't sequence while pointed away from the fix,
	// unless we're essentially on top of it.
	trackError := math.HeadingDifference(t.Track, math.Bearing2LL(t.Position, wp.Location))
	if trackError >= 120 && dist >= 0.2 {
		return
	}

	n.advanceWaypoint(now)
}

// advanceWaypoint marks the active waypoint passed, makes the next one
// active, and notifies the host. Must be called with the mutex held.
func (n *Nav) advanceWaypoint(now time.Time) {
	passed, ok := n.Plan.ActiveWaypoint()
	if !ok {
		return
	}
	n.Plan.Waypoints[n.Plan.ActiveIndex].Passed = true

	if n.Plan.ActiveIndex+1 < len(n.Plan.Waypoints) {
		n.Plan.ActiveIndex++
		n.snapshotActive()
	} else {
		// Arrival: nothing further to navigate to.
		n.hasActive = false
		n.active = ActiveWaypoint{}
	}
	n.lastSequenceTime = now

	n.eventStream.Post(Event{Type: WaypointSequencedEvent, FromIdent: passed.Ident,
		ToIdent: n.active.Ident})
	n.eventStream.Post(Event{Type: PlayChimeEvent})
	n.lg.Info("sequenced waypoint", slog.String("from", passed.Ident),
		slog.String("to", n.active.Ident))
}
