// aviation/plan.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"slices"

	"github.com/simwidget/gpsnav/math"
	"github.com/simwidget/gpsnav/util"

	"github.com/brunoga/deep"
)

// FlightPlan is the ordered route the navigator flies; order is the
// route. It is the single source of truth that the sequencing engine,
// CDI, and VNAV read; only the sequencing engine and explicit edit
// operations mutate it. The plan itself is not internally locked: the
// owning Nav serializes all access under its own mutex.
type FlightPlan struct {
	Waypoints   []Waypoint
	Source      PlanSource
	ActiveIndex int

	SID      *Procedure
	STAR     *Procedure
	Approach *Procedure
}

func NewFlightPlan() *FlightPlan {
	return &FlightPlan{Source: SourceSynced}
}

// Load replaces the plan's route wholesale, recomputing the cached leg
// distances and resetting sequencing progress.
func (fp *FlightPlan) Load(wps []Waypoint, src PlanSource) {
	fp.Waypoints = util.DuplicateSlice(wps)
	fp.Source = src
	fp.ActiveIndex = 0
	fp.SID, fp.STAR, fp.Approach = nil, nil, nil
	for i := range fp.Waypoints {
		fp.Waypoints[i].Passed = false
		fp.recomputeDistance(i)
	}
}

// recomputeDistance refreshes the cached distance-from-previous for the
// i'th waypoint only; structural edits call this for the affected
// waypoint and its new neighbors rather than rescanning the whole plan.
func (fp *FlightPlan) recomputeDistance(i int) {
	if i < 0 || i >= len(fp.Waypoints) {
		return
	}
	wp := &fp.Waypoints[i]
	if i == 0 {
		wp.DistanceFromPrev = -1
		return
	}
	prev := fp.Waypoints[i-1]
	if prev.Location.IsZero() || wp.Location.IsZero() {
		wp.DistanceFromPrev = -1
		return
	}
	wp.DistanceFromPrev = math.NMDistance2LL(prev.Location, wp.Location)
}

func (fp *FlightPlan) clampActive() {
	if len(fp.Waypoints) == 0 {
		fp.ActiveIndex = 0
	} else {
		fp.ActiveIndex = math.Clamp(fp.ActiveIndex, 0, len(fp.Waypoints)-1)
	}
}

// InsertWaypoint inserts wp at the given index, clamped to [0, len]. If
// the insertion point is at or before the active waypoint, the active
// index shifts so that it keeps pointing at the same logical waypoint.
func (fp *FlightPlan) InsertWaypoint(wp Waypoint, at int) {
	at = math.Clamp(at, 0, len(fp.Waypoints))
	hadWaypoints := len(fp.Waypoints) > 0

	fp.Waypoints = util.InsertSliceElement(fp.Waypoints, at, wp)
	fp.recomputeDistance(at)
	fp.recomputeDistance(at + 1)

	if hadWaypoints && at <= fp.ActiveIndex {
		fp.ActiveIndex++
	}
	fp.clampActive()
}

// DeleteWaypoint removes the waypoint at the given index; out-of-range
// indices are clamped rather than being an error, since pilot-facing
// equipment must shrug off a bad keystroke.
func (fp *FlightPlan) DeleteWaypoint(i int) {
	if len(fp.Waypoints) == 0 {
		return
	}
	i = math.Clamp(i, 0, len(fp.Waypoints)-1)

	fp.Waypoints = util.DeleteSliceElement(fp.Waypoints, i)
	fp.recomputeDistance(i)

	if i < fp.ActiveIndex {
		fp.ActiveIndex--
	}
	fp.clampActive()
}

// MoveWaypoint swaps the waypoint at from with its neighbor in the given
// direction (-1 toward the start, +1 toward the end). Moves off either
// end are ignored.
func (fp *FlightPlan) MoveWaypoint(from int, direction int) {
	to := from + direction
	if from < 0 || from >= len(fp.Waypoints) || to < 0 || to >= len(fp.Waypoints) {
		return
	}
	fp.Waypoints[from], fp.Waypoints[to] = fp.Waypoints[to], fp.Waypoints[from]

	lo := min(from, to)
	fp.recomputeDistance(lo)
	fp.recomputeDistance(lo + 1)
	fp.recomputeDistance(lo + 2)
}

// Invert reverses the route. A direction change invalidates any
// sequencing progress, so the active index returns to the first waypoint
// and passed flags are cleared.
func (fp *FlightPlan) Invert() {
	slices.Reverse(fp.Waypoints)
	fp.ActiveIndex = 0
	for i := range fp.Waypoints {
		fp.Waypoints[i].Passed = false
		fp.recomputeDistance(i)
	}
}

func (fp *FlightPlan) Clear() {
	fp.Waypoints = nil
	fp.ActiveIndex = 0
	fp.SID, fp.STAR, fp.Approach = nil, nil, nil
}

// LoadProcedure inserts a contiguous run of procedure waypoints into the
// route: a SID goes after the first waypoint, a STAR before the last, and
// an approach is appended. Loading any procedure marks the plan as
// manually modified so background refreshes stop replacing it.
func (fp *FlightPlan) LoadProcedure(proc Procedure, wps []Waypoint) {
	// Replace any previously-loaded procedure of the same class.
	fp.RemoveProcedure(proc.Class)

	var at int
	switch proc.Class {
	case ProcSID:
		at = math.Clamp(1, 0, len(fp.Waypoints))
	case ProcSTAR:
		at = math.Clamp(len(fp.Waypoints)-1, 0, len(fp.Waypoints))
	default: // approach
		at = len(fp.Waypoints)
	}

	if proc.Class == ProcApproach {
		proc.Type = ClassifyApproachType(proc.Name)
	}

	for i, wp := range wps {
		wp.Procedure = proc.Class
		wp.Passed = false
		fp.Waypoints = util.InsertSliceElement(fp.Waypoints, at+i, wp)
	}
	// One contiguous run: refresh the run and the waypoint after it.
	for i := at; i <= at+len(wps) && i < len(fp.Waypoints); i++ {
		fp.recomputeDistance(i)
	}

	if len(fp.Waypoints) > len(wps) && at <= fp.ActiveIndex {
		fp.ActiveIndex += len(wps)
	}
	fp.clampActive()

	switch proc.Class {
	case ProcSID:
		fp.SID = &proc
	case ProcSTAR:
		fp.STAR = &proc
	case ProcApproach:
		fp.Approach = &proc
	}
	fp.Source = SourceManual
}

// RemoveProcedure deletes all waypoints tagged with the given procedure
// class along with its metadata.
func (fp *FlightPlan) RemoveProcedure(class ProcedureClass) {
	for i := len(fp.Waypoints) - 1; i >= 0; i-- {
		if fp.Waypoints[i].Procedure == class {
			fp.Waypoints = util.DeleteSliceElement(fp.Waypoints, i)
			if i < fp.ActiveIndex {
				fp.ActiveIndex--
			}
			fp.recomputeDistance(i)
		}
	}
	fp.clampActive()

	switch class {
	case ProcSID:
		fp.SID = nil
	case ProcSTAR:
		fp.STAR = nil
	case ProcApproach:
		fp.Approach = nil
	}
}

///////////////////////////////////////////////////////////////////////////
// read-only accessors

func (fp *FlightPlan) ActiveWaypoint() (Waypoint, bool) {
	if len(fp.Waypoints) == 0 {
		return Waypoint{}, false
	}
	return fp.Waypoints[fp.ActiveIndex], true
}

func (fp *FlightPlan) NextWaypoint() (Waypoint, bool) {
	if fp.ActiveIndex+1 >= len(fp.Waypoints) {
		return Waypoint{}, false
	}
	return fp.Waypoints[fp.ActiveIndex+1], true
}

// ActiveLeg returns the geometry of the active leg. The CDI, VNAV, and
// approach components consume only this value type.
func (fp *FlightPlan) ActiveLeg() (LegGeometry, bool) {
	wp, ok := fp.ActiveWaypoint()
	if !ok {
		return LegGeometry{}, false
	}

	leg := LegGeometry{
		To:         wp.Location,
		ToIdent:    wp.Ident,
		Distance:   wp.DistanceFromPrev,
		Constraint: wp.Constraint,
		Leg:        wp.Leg,
	}
	if fp.ActiveIndex > 0 {
		if prev := fp.Waypoints[fp.ActiveIndex-1]; !prev.Location.IsZero() {
			leg.From = prev.Location
			leg.HasFrom = true
		}
	}
	return leg, true
}

// DistanceRemaining returns the along-route distance in nm from the given
// position to the end of the plan: direct to the active waypoint, then
// the cached leg distances beyond it. Returns a negative value when no
// estimate is available.
func (fp *FlightPlan) DistanceRemaining(pos math.Point2LL) float32 {
	wp, ok := fp.ActiveWaypoint()
	if !ok || pos.IsZero() || wp.Location.IsZero() {
		return -1
	}

	d := math.NMDistance2LL(pos, wp.Location)
	for i := fp.ActiveIndex + 1; i < len(fp.Waypoints); i++ {
		if leg := fp.Waypoints[i].DistanceFromPrev; leg > 0 {
			d += leg
		}
	}
	return d
}

// SetActiveIndex selects the active waypoint directly, clamped into
// range.
func (fp *FlightPlan) SetActiveIndex(i int) {
	fp.ActiveIndex = i
	fp.clampActive()
}

// FindWaypoint returns the index of the first waypoint with the given
// ident, or -1.
func (fp *FlightPlan) FindWaypoint(ident string) int {
	return slices.IndexFunc(fp.Waypoints, func(wp Waypoint) bool { return wp.Ident == ident })
}

// Snapshot returns a deep copy of the plan for handing to other
// goroutines (e.g. the HTTP snapshot API).
func (fp *FlightPlan) Snapshot() *FlightPlan {
	snap := deep.MustCopy(*fp)
	return &snap
}
