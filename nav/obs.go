// nav/obs.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"log/slog"

	"github.com/simwidget/gpsnav/math"
)

type TurnDirection int

const (
	TurnRight TurnDirection = iota
	TurnLeft
)

func (t TurnDirection) String() string {
	return []string{"right", "left"}[t]
}

// HoldEntry is the holding-pattern entry classification, following the
// standard 70/110 degree entry-sector convention.
type HoldEntry int

const (
	EntryNone HoldEntry = iota
	EntryDirect
	EntryTeardrop
	EntryParallel
)

func (e HoldEntry) String() string {
	return []string{"", "direct", "teardrop", "parallel"}[e]
}

// obsState is the manual course override. While Active, the pilot's
// selected course replaces the leg's desired track in the CDI computation
// and Suspended disables auto-sequencing entirely.
type obsState struct {
	Active    bool
	Suspended bool
	course    float32 // degrees true

	HoldingPattern bool
	LegTimeSeconds float32
	TurnDirection  TurnDirection
	Entry          HoldEntry
}

// OBSStatus is the published view of the OBS/hold state; the course is in
// degrees magnetic.
type OBSStatus struct {
	Active         bool
	Course         float32
	Suspended      bool
	HoldingPattern bool
	LegTimeSeconds float32
	TurnDirection  TurnDirection
	Entry          HoldEntry
}

// SetOBS toggles the manual course override. Enabling it captures the
// current bearing to the active waypoint as the override course (falling
// back to the last desired track, then the heading, when no bearing is
// available) and suspends auto-sequencing.
func (n *Nav) SetOBS(enable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !enable {
		n.obs = obsState{}
		n.lg.Info("OBS disabled")
		return
	}
	if n.obs.Active {
		return
	}

	var course float32
	switch {
	case n.hasActive && n.haveTelemetry && n.lastTelemetry.HasFix() && !n.active.Location.IsZero():
		course = math.Bearing2LL(n.lastTelemetry.Position, n.active.Location)
	case n.haveDesiredTrack:
		course = n.lastDesiredTrack
	case n.haveTelemetry:
		course = n.lastTelemetry.Heading
	}

	n.obs.Active = true
	n.obs.Suspended = true
	n.obs.course = course
	n.classifyHoldEntry()
	n.lg.Info("OBS enabled", slog.Float64("course", float64(course)))
}

// SetOBSCourse sets the override course, given in degrees magnetic as
// dialed by the pilot.
func (n *Nav) SetOBSCourse(magnetic float32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var variation float32
	if n.haveTelemetry {
		variation = n.lastTelemetry.MagneticVariation
	}
	n.obs.course = math.MagneticToTrue(magnetic, variation)
	n.classifyHoldEntry()
}

// SetHold configures a holding pattern at the active waypoint with the
// OBS course as the inbound course. The entry classification is
// recomputed here and whenever the course changes.
func (n *Nav) SetHold(enable bool, dir TurnDirection, legTimeSeconds float32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.obs.HoldingPattern = enable
	n.obs.TurnDirection = dir
	n.obs.LegTimeSeconds = legTimeSeconds
	n.classifyHoldEntry()
}

// classifyHoldEntry determines the entry procedure from the aircraft's
// current track relative to the inbound course: the relative bearing,
// sign-flipped for right-hand holds, falls in [0,110) for a direct entry,
// [110,180] for a teardrop, and is otherwise a parallel entry. Must be
// called with the mutex held.
func (n *Nav) classifyHoldEntry() {
	if !n.obs.HoldingPattern || !n.haveTelemetry {
		n.obs.Entry = EntryNone
		return
	}

	rel := math.NormalizeAngle(n.lastTelemetry.Track - n.obs.course)
	if n.obs.TurnDirection == TurnRight {
		rel = -rel
	}

	switch {
	case rel >= 0 && rel < 110:
		n.obs.Entry = EntryDirect
	case rel >= 110 && rel < 180:
		n.obs.Entry = EntryTeardrop
	default:
		n.obs.Entry = EntryParallel
	}
}

// OBSStatus returns the published OBS/hold state.
func (n *Nav) OBSStatus() OBSStatus {
	n.mu.Lock()
	defer n.mu.Unlock()

	var variation float32
	if n.haveTelemetry {
		variation = n.lastTelemetry.MagneticVariation
	}
	return OBSStatus{
		Active:         n.obs.Active,
		Course:         math.TrueToMagnetic(n.obs.course, variation),
		Suspended:      n.obs.Suspended,
		HoldingPattern: n.obs.HoldingPattern,
		LegTimeSeconds: n.obs.LegTimeSeconds,
		TurnDirection:  n.obs.TurnDirection,
		Entry:          n.obs.Entry,
	}
}
