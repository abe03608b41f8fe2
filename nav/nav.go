// nav/nav.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/simwidget/gpsnav/aviation"
	"github.com/simwidget/gpsnav/log"
	"github.com/simwidget/gpsnav/math"
)

var (
	ErrNoFlightPlan = errors.New("no flight plan loaded")
	ErrFixNotFound  = errors.New("fix not found")
)

// Telemetry is the per-tick aircraft state supplied by the external
// data-acquisition layer. Angles are degrees true; the magnetic variation
// (east positive) is carried along so that published guidance can be
// converted for display.
type Telemetry struct {
	Position          math.Point2LL
	Altitude          float32 // feet MSL
	Heading           float32 // degrees true
	Track             float32 // degrees true
	GroundSpeed       float32 // knots
	VerticalSpeed     float32 // fpm
	MagneticVariation float32 // degrees, east positive
}

// HasFix reports whether the telemetry carries a usable position. A zero
// lat-long is "no fix", not a point in the Gulf of Guinea.
func (t Telemetry) HasFix() bool {
	return !t.Position.IsZero()
}

// ActiveWaypoint is the lightweight snapshot of the waypoint currently
// being navigated to. It is distinct from the plan's indexed entry:
// direct-to targets need not exist in the plan at all, in which case
// PlanIndexed is false and the sequencer leaves the plan alone.
type ActiveWaypoint struct {
	Ident       string
	Location    math.Point2LL
	PlanIndexed bool
}

///////////////////////////////////////////////////////////////////////////
// Nav

// Nav is the navigation and flight-plan sequencing engine: it owns the
// active flight plan and, on each telemetry tick, runs the lateral
// sequencer, the CDI/deviation calculator, the approach phase machine,
// and VNAV, in that order. All state is guarded by a single mutex since
// sequencing, guidance, and plan edits all read-modify-write the same
// active index and waypoint array.
type Nav struct {
	mu sync.Mutex

	Plan *aviation.FlightPlan

	active    ActiveWaypoint
	hasActive bool

	lastSequenceTime time.Time

	lastTelemetry Telemetry
	haveTelemetry bool

	lastDesiredTrack float32 // degrees true
	haveDesiredTrack bool

	obs      obsState
	approach approachState

	cdi  CDIGuidance
	vnav *VNAVGuidance

	locator     aviation.Locator
	eventStream *EventStream
	lg          *log.Logger
}

func New(locator aviation.Locator, es *EventStream, lg *log.Logger) *Nav {
	n := &Nav{
		Plan:        aviation.NewFlightPlan(),
		locator:     locator,
		eventStream: es,
		lg:          lg,
	}
	n.approach.reset()
	return n
}

// Update runs one navigation tick with the given telemetry. The returned
// Guidance snapshot is also available afterward via Guidance(). Garbage
// telemetry (no position fix) leaves the navigation state untouched and
// returns the previous guidance with Valid cleared.
func (n *Nav) Update(t Telemetry, now time.Time) Guidance {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !t.HasFix() {
		n.cdi.Valid = false
		return n.guidance()
	}
	n.lastTelemetry = t
	n.haveTelemetry = true

	n.updateSequencing(t, now)
	n.updateCDI(t)
	n.updateApproach(t, now)
	n.updateVNAV(t)

	return n.guidance()
}

// Guidance bundles the per-tick outputs for rendering: lateral deviation,
// approach status, and vertical guidance.
type Guidance struct {
	CDI      CDIGuidance
	Approach ApproachStatus
	VNAV     *VNAVGuidance // nil when the active waypoint has no constraint
}

func (n *Nav) guidance() Guidance {
	return Guidance{
		CDI:      n.cdi,
		Approach: n.approachStatus(),
		VNAV:     n.vnav,
	}
}

// Guidance returns the outputs of the most recent Update.
func (n *Nav) Guidance() Guidance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.guidance()
}

///////////////////////////////////////////////////////////////////////////
// flight plan operations

// LoadPlan replaces the flight plan wholesale and restarts navigation
// from its first waypoint.
func (n *Nav) LoadPlan(wps []aviation.Waypoint, src aviation.PlanSource) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Plan.Load(wps, src)
	n.approach.reset()
	n.obs = obsState{}
	n.snapshotActive()
	n.lg.Info("loaded flight plan", slog.Int("waypoints", len(wps)),
		slog.String("source", string(src)))
}

// ApplySyncedPlan applies a background-refresh plan, but only while the
// current plan's provenance still allows it: once the pilot has edited
// the plan or loaded one explicitly, refreshes are suppressed.
func (n *Nav) ApplySyncedPlan(wps []aviation.Waypoint, src aviation.PlanSource) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Plan.Source != aviation.SourceSynced && n.Plan.Source != src {
		return false
	}
	n.Plan.Load(wps, src)
	n.approach.reset()
	n.snapshotActive()
	n.eventStream.Post(Event{Type: PlanRefreshedEvent})
	return true
}

func (n *Nav) InsertWaypoint(wp aviation.Waypoint, at int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Plan.InsertWaypoint(wp, at)
	n.Plan.Source = aviation.SourceManual
	n.approach.invalidateIndices(n.Plan)
	n.snapshotActive()
}

func (n *Nav) DeleteWaypoint(i int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Plan.DeleteWaypoint(i)
	n.Plan.Source = aviation.SourceManual
	n.approach.invalidateIndices(n.Plan)
	n.snapshotActive()
}

func (n *Nav) MoveWaypoint(from, direction int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Plan.MoveWaypoint(from, direction)
	n.Plan.Source = aviation.SourceManual
	n.approach.invalidateIndices(n.Plan)
	n.snapshotActive()
}

func (n *Nav) InvertPlan() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Plan.Invert()
	n.Plan.Source = aviation.SourceManual
	n.approach.reset()
	n.snapshotActive()
}

func (n *Nav) ClearPlan() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Plan.Clear()
	n.approach.reset()
	n.hasActive = false
	n.active = ActiveWaypoint{}
}

// SetActiveWaypoint selects the waypoint at the given plan index as the
// active one, abandoning any off-plan direct-to.
func (n *Nav) SetActiveWaypoint(i int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.Plan.Waypoints) == 0 {
		return ErrNoFlightPlan
	}
	n.Plan.SetActiveIndex(i)
	n.snapshotActive()
	return nil
}

// snapshotActive refreshes the active-waypoint snapshot from the plan's
// indexed entry. Must be called with the mutex held, after any operation
// that may have changed the active index.
func (n *Nav) snapshotActive() {
	if wp, ok := n.Plan.ActiveWaypoint(); ok {
		n.active = ActiveWaypoint{Ident: wp.Ident, Location: wp.Location, PlanIndexed: true}
		n.hasActive = true
	} else {
		n.active = ActiveWaypoint{}
		n.hasActive = false
	}
}

// DirectTo makes the named fix the active waypoint. A fix already in the
// plan is activated in place (sequencing then continues down the plan); an
// off-plan fix is resolved through the locator and flown to directly, with
// auto-sequencing idle until the pilot re-selects a plan waypoint.
func (n *Nav) DirectTo(ident string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if i := n.Plan.FindWaypoint(ident); i >= 0 {
		n.Plan.SetActiveIndex(i)
		n.snapshotActive()
	} else {
		fix, ok := n.locator.Locate(ident)
		if !ok {
			return ErrFixNotFound
		}
		n.active = ActiveWaypoint{Ident: fix.Ident, Location: fix.Location}
		n.hasActive = true
	}

	n.eventStream.Post(Event{Type: DirectToEvent, ToIdent: n.active.Ident})
	n.lg.Info("direct-to", slog.String("ident", n.active.Ident),
		slog.Bool("in_plan", n.active.PlanIndexed))
	return nil
}

// ActiveWaypoint returns the current active-waypoint snapshot.
func (n *Nav) ActiveWaypoint() (ActiveWaypoint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active, n.hasActive
}

// PlanSnapshot returns a deep copy of the flight plan for handing to
// other goroutines.
func (n *Nav) PlanSnapshot() *aviation.FlightPlan {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Plan.Snapshot()
}

///////////////////////////////////////////////////////////////////////////
// procedures

// LoadProcedure splices a SID, STAR, or approach into the plan. For an
// approach, the FAF and MAP are identified immediately and, if the
// approach is localizer-based but its frequency is unknown, resolution is
// kicked off in the background; navigation never waits on it.
func (n *Nav) LoadProcedure(proc aviation.Procedure, wps []aviation.Waypoint) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Plan.LoadProcedure(proc, wps)
	n.snapshotActive()

	if proc.Class == aviation.ProcApproach {
		n.approach.reset()
		n.approach.identifyFixes(n.Plan)
		n.lg.Info("loaded approach", slog.String("name", proc.Name),
			slog.String("type", n.Plan.Approach.Type.String()),
			slog.Int("faf", n.approach.fafIndex), slog.Int("map", n.approach.mapIndex))

		if n.Plan.Approach.Type.IsLocalizerBased() && n.Plan.Approach.ILSFrequency == 0 &&
			n.Plan.Approach.ILSIdent != "" {
			go n.resolveILSFrequency(n.Plan.Approach.ILSIdent)
		}
	}
}

func (n *Nav) RemoveProcedure(class aviation.ProcedureClass) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Plan.RemoveProcedure(class)
	if class == aviation.ProcApproach {
		n.approach.reset()
	}
	n.snapshotActive()
}

// resolveILSFrequency looks up the localizer frequency for the loaded
// approach and applies the result asynchronously. On failure the
// auto-tune feature is simply skipped.
func (n *Nav) resolveILSFrequency(ident string) {
	fix, ok := n.locator.Locate(ident)
	if !ok || fix.Frequency == 0 {
		n.lg.Debugf("%s: unable to resolve localizer frequency", ident)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	// The approach may have been removed or replaced while we were
	// looking it up.
	if n.Plan.Approach != nil && n.Plan.Approach.ILSIdent == ident {
		n.Plan.Approach.ILSFrequency = fix.Frequency
		n.lg.Infof("%s: resolved localizer frequency %.2f", ident, fix.Frequency)
	}
}
