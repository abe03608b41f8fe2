// nav/nav_test.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"strings"
	"testing"
	"time"

	"github.com/simwidget/gpsnav/aviation"
	"github.com/simwidget/gpsnav/math"
)

type testLocator map[string]aviation.Fix

func (t testLocator) Locate(ident string) (aviation.Fix, bool) {
	fix, ok := t[strings.ToUpper(ident)]
	return fix, ok
}

// eqWaypoint returns a waypoint on the equator at the given longitude;
// spacing waypoints along the equator makes leg distances easy to reason
// about (0.1 degrees of longitude is ~6 nm). Longitude 0 is avoided
// since a (0,0) location reads as "unresolved".
func eqWaypoint(ident string, lon float32) aviation.Waypoint {
	return aviation.Waypoint{Ident: ident, Location: math.MakePoint2LL(0, lon)}
}

func newTestNav(loc testLocator) (*Nav, *EventsSubscription) {
	es := NewEventStream(nil)
	sub := es.Subscribe()
	return New(loc, es, nil), sub
}

func eventsOfType(events []Event, t EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestSequencingAdvanceAndDebounce(t *testing.T) {
	n, sub := newTestNav(nil)
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 0.2),
		eqWaypoint("C", 0.3),
	}, aviation.SourceManual)

	now := time.Now()
	// 0.3 nm west of A, tracking east toward it: inside the threshold,
	// fast enough, pointed at the fix.
	tick := Telemetry{
		Position:    math.MakePoint2LL(0, 0.095),
		Track:       90,
		Heading:     90,
		GroundSpeed: 100,
	}
	n.Update(tick, now)

	if n.Plan.ActiveIndex != 1 {
		t.Fatalf("active index after tick: got %d, expected 1", n.Plan.ActiveIndex)
	}
	if !n.Plan.Waypoints[0].Passed {
		t.Errorf("passed waypoint should be flagged")
	}
	if active, ok := n.ActiveWaypoint(); !ok || active.Ident != "B" {
		t.Errorf("active waypoint: got %+v, expected B", active)
	}

	seq := eventsOfType(sub.Get(), WaypointSequencedEvent)
	if len(seq) != 1 || seq[0].FromIdent != "A" || seq[0].ToIdent != "B" {
		t.Errorf("sequencing events: got %+v, expected one A->B", seq)
	}

	// A second tick inside the debounce window, positioned to otherwise
	// advance past B, must not advance.
	tick.Position = math.MakePoint2LL(0, 0.195)
	n.Update(tick, now.Add(time.Second))
	if n.Plan.ActiveIndex != 1 {
		t.Errorf("debounce: active index advanced to %d inside 3000 ms", n.Plan.ActiveIndex)
	}

	// The same tick after the debounce expires does advance.
	n.Update(tick, now.Add(4*time.Second))
	if n.Plan.ActiveIndex != 2 {
		t.Errorf("post-debounce: active index got %d, expected 2", n.Plan.ActiveIndex)
	}
}

func TestSequencingTrackErrorGate(t *testing.T) {
	n, _ := newTestNav(nil)
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 0.2),
	}, aviation.SourceManual)

	// 0.3 nm west of A but tracking west, away from it: the track-error
	// gate must hold sequencing off.
	tick := Telemetry{
		Position:    math.MakePoint2LL(0, 0.095),
		Track:       270,
		GroundSpeed: 100,
	}
	n.Update(tick, time.Now())
	if n.Plan.ActiveIndex != 0 {
		t.Errorf("sequenced while tracking away from the fix")
	}

	// Directly over the fix the gate is overridden regardless of track.
	tick.Position = math.MakePoint2LL(0, 0.101) // ~0.06 nm
	n.Update(tick, time.Now())
	if n.Plan.ActiveIndex != 1 {
		t.Errorf("close-proximity override should sequence regardless of track")
	}
}

func TestTurnAnticipationCap(t *testing.T) {
	n, _ := newTestNav(nil)
	// A 90 degree turn at B: eastbound, then northbound.
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 1.1),
		{Ident: "C", Location: math.MakePoint2LL(1, 1.1)},
	}, aviation.SourceManual)
	n.SetActiveWaypoint(1)

	// At 120 kt the raw lead distance is 120^2/52.5 * tan(45) = ~274 nm;
	// the threshold must instead be capped at 2.0 nm. 2.5 nm out is
	// beyond the cap (no sequence), 1.9 nm is inside it.
	tick := Telemetry{
		Position:    math.MakePoint2LL(0, 1.1-2.5/60.04),
		Track:       90,
		GroundSpeed: 120,
	}
	n.Update(tick, time.Now())
	if n.Plan.ActiveIndex != 1 {
		t.Fatalf("sequenced at 2.5 nm; turn anticipation cap not applied")
	}

	tick.Position = math.MakePoint2LL(0, 1.1-1.9/60.04)
	n.Update(tick, time.Now().Add(5*time.Second))
	if n.Plan.ActiveIndex != 2 {
		t.Errorf("turn anticipation should sequence 1.9 nm before a 90 degree turn")
	}
}

func TestCDIScalingModes(t *testing.T) {
	n, _ := newTestNav(nil)
	n.LoadPlan([]aviation.Waypoint{eqWaypoint("A", 0.1)}, aviation.SourceManual)
	n.LoadProcedure(aviation.Procedure{Name: "RNAV RWY 09", Class: aviation.ProcApproach},
		[]aviation.Waypoint{eqWaypoint("RW09", 1.1)})
	n.SetActiveWaypoint(1)

	for _, c := range []struct {
		distance float32 // nm to destination
		mode     CDIMode
		fsd      float32
	}{
		{1.5, ModeApproach, 0.3},
		{12, ModeTerminal, 1},
		{40, ModeEnroute, 5},
	} {
		tick := Telemetry{
			Position:    math.MakePoint2LL(0, 1.1-c.distance/60.04),
			Track:       90,
			GroundSpeed: 10, // below the sequencing gate
		}
		g := n.Update(tick, time.Now())
		if g.CDI.Mode != c.mode {
			t.Errorf("%g nm out: mode %s, expected %s", c.distance, g.CDI.Mode, c.mode)
		}
		if g.CDI.Mode.FullScaleDeflection() != c.fsd {
			t.Errorf("%g nm out: full scale %g, expected %g",
				c.distance, g.CDI.Mode.FullScaleDeflection(), c.fsd)
		}
	}
}

func TestCDICrossTrackNeedle(t *testing.T) {
	n, _ := newTestNav(nil)
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 1.1),
	}, aviation.SourceManual)
	n.SetActiveWaypoint(1)

	// On the leg centerline: centered needle, desired track east.
	g := n.Update(Telemetry{Position: math.MakePoint2LL(0, 0.6), Track: 90, GroundSpeed: 10},
		time.Now())
	if !g.CDI.Valid || g.CDI.Needle != 0 {
		t.Errorf("on centerline: needle %d, expected 0", g.CDI.Needle)
	}
	if math.HeadingDifference(g.CDI.DesiredTrack, 90) > 0.5 {
		t.Errorf("desired track %g, expected ~90", g.CDI.DesiredTrack)
	}

	// North of an eastbound leg is left of course; the needle deflects
	// and its sign matches the cross-track error.
	g = n.Update(Telemetry{Position: math.MakePoint2LL(0.05, 0.6), Track: 90, GroundSpeed: 10},
		time.Now())
	if g.CDI.CrossTrackError >= 0 {
		t.Errorf("north of eastbound course: cross-track %g, expected negative",
			g.CDI.CrossTrackError)
	}
	if g.CDI.Needle >= 0 {
		t.Errorf("needle %d, expected negative", g.CDI.Needle)
	}

	// Way off course the needle pegs at full deflection.
	g = n.Update(Telemetry{Position: math.MakePoint2LL(1, 0.6), Track: 90, GroundSpeed: 10},
		time.Now())
	if g.CDI.Needle != -127 {
		t.Errorf("pegged needle: got %d, expected -127", g.CDI.Needle)
	}
}

func TestVNAVGuidance(t *testing.T) {
	n, _ := newTestNav(nil)
	wp := eqWaypoint("A", 0.6)
	wp.Constraint = aviation.AltitudeConstraint{Kind: aviation.ConstraintAtOrAbove, Primary: 5000}
	n.LoadPlan([]aviation.Waypoint{eqWaypoint("START", 0.1), wp}, aviation.SourceManual)
	n.SetActiveWaypoint(1)

	// 30 nm out from the constrained waypoint.
	tick := Telemetry{Position: math.MakePoint2LL(0, 0.1), Track: 90, GroundSpeed: 10, Altitude: 4000}
	g := n.Update(tick, time.Now())
	if g.VNAV == nil {
		t.Fatalf("expected VNAV guidance for a constrained waypoint")
	}
	if g.VNAV.VerticalDeviation != -1000 {
		t.Errorf("below at-or-above 5000 at 4000: deviation %g, expected -1000", g.VNAV.VerticalDeviation)
	}

	tick.Altitude = 6000
	g = n.Update(tick, time.Now())
	if g.VNAV.VerticalDeviation != 0 {
		t.Errorf("above at-or-above 5000 at 6000: deviation %g, expected 0", g.VNAV.VerticalDeviation)
	}

	// Required vertical speed: 1000 ft to lose over 30 nm at 120 kt is
	// 15 minutes, so about -67 fpm.
	tick.GroundSpeed = 120
	g = n.Update(tick, time.Now())
	want := float32(-1000.0 / 15)
	if math.Abs(g.VNAV.RequiredVerticalSpeed-want) > 2 {
		t.Errorf("required VS: got %g, expected ~%g", g.VNAV.RequiredVerticalSpeed, want)
	}

	// No constraint, no vertical guidance.
	n.SetActiveWaypoint(0)
	if g = n.Update(tick, time.Now()); g.VNAV != nil {
		t.Errorf("unconstrained waypoint should have nil VNAV guidance")
	}
}

func loadApproachPlan(n *Nav) {
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.3),
		eqWaypoint("B", 0.65),
	}, aviation.SourceManual)

	faf := eqWaypoint("FAF09", 1)
	faf.Constraint = aviation.AltitudeConstraint{Kind: aviation.ConstraintAtOrAbove, Primary: 1800}
	faf.Leg = aviation.LegCourseToFix
	n.LoadProcedure(aviation.Procedure{Name: "ILS RWY 09", Class: aviation.ProcApproach, ILSIdent: "IABC"},
		[]aviation.Waypoint{
			eqWaypoint("C", 0.98),
			faf,
			eqWaypoint("D", 1.02),
			eqWaypoint("RW09", 1.05),
		})
}

func TestApproachPhaseProgression(t *testing.T) {
	n, sub := newTestNav(testLocator{})
	loadApproachPlan(n)

	if st := n.ApproachStatus(); st.FAFIdent != "FAF09" || st.MAPIdent != "RW09" {
		t.Fatalf("fix identification: got FAF %q MAP %q, expected FAF09/RW09", st.FAFIdent, st.MAPIdent)
	}

	// Walk the plan; the phase must pass through FAF at index 3 before
	// MAP at index 5 and never skip it.
	want := []ApproachPhase{PhaseNone, PhaseTerminal, PhaseApproach, PhaseFAF, PhaseFAF, PhaseMAP}
	now := time.Now()
	for i, wantPhase := range want {
		n.SetActiveWaypoint(i)
		tick := Telemetry{
			Position:    n.Plan.Waypoints[i].Location,
			Track:       90,
			GroundSpeed: 10,
			Altitude:    2000,
		}
		g := n.Update(tick, now.Add(time.Duration(i)*10*time.Second))
		if g.Approach.Phase != wantPhase {
			t.Errorf("index %d: phase %q, expected %q", i, g.Approach.Phase, wantPhase)
		}
	}

	// Entering the final segment of an ILS switches the CDI source away
	// from GPS.
	cdiEvents := eventsOfType(sub.Get(), CDISourceEvent)
	if len(cdiEvents) != 1 || cdiEvents[0].Source != CDISourceNAV {
		t.Errorf("CDI source events: got %+v, expected one switch to NAV", cdiEvents)
	}
}

func TestApproachFixesTrackPlanEdits(t *testing.T) {
	n, _ := newTestNav(testLocator{})
	loadApproachPlan(n)

	// Inserting ahead of the approach shifts every approach waypoint by
	// one; the FAF/MAP identification must follow.
	n.InsertWaypoint(eqWaypoint("EARLY", 0.1), 0)
	if st := n.ApproachStatus(); st.FAFIdent != "FAF09" || st.MAPIdent != "RW09" {
		t.Fatalf("after insert: got FAF %q MAP %q, expected FAF09/RW09", st.FAFIdent, st.MAPIdent)
	}

	// At the pre-FAF waypoint (C, now index 3) the phase is armed, not
	// FAF: the old index 3 is a waypoint early.
	n.SetActiveWaypoint(3)
	g := n.Update(Telemetry{
		Position:    n.Plan.Waypoints[3].Location,
		Track:       90,
		GroundSpeed: 10,
		Altitude:    2000,
	}, time.Now())
	if g.Approach.Phase != PhaseApproach {
		t.Errorf("at pre-FAF waypoint after insert: phase %q, expected %q",
			g.Approach.Phase, PhaseApproach)
	}

	n.MoveWaypoint(0, 1)
	if st := n.ApproachStatus(); st.FAFIdent != "FAF09" || st.MAPIdent != "RW09" {
		t.Errorf("after move: got FAF %q MAP %q, expected FAF09/RW09", st.FAFIdent, st.MAPIdent)
	}

	n.DeleteWaypoint(0)
	if st := n.ApproachStatus(); st.FAFIdent != "FAF09" || st.MAPIdent != "RW09" {
		t.Errorf("after delete: got FAF %q MAP %q, expected FAF09/RW09", st.FAFIdent, st.MAPIdent)
	}
}

func TestMissedApproachTrigger(t *testing.T) {
	n, sub := newTestNav(testLocator{})
	loadApproachPlan(n)
	n.SetActiveWaypoint(5)

	now := time.Now()
	pos := math.MakePoint2LL(0, 1.05)
	tick := func(alt float32, dt time.Duration) Guidance {
		return n.Update(Telemetry{Position: pos, Track: 90, GroundSpeed: 10, Altitude: alt},
			now.Add(dt))
	}

	if g := tick(1000, 0); g.Approach.Phase != PhaseMAP {
		t.Fatalf("phase %q, expected MAP", g.Approach.Phase)
	}
	// Climbing, but within the 200 ft tolerance of the running minimum.
	if g := tick(1150, 10*time.Second); g.Approach.Phase != PhaseMAP {
		t.Errorf("climb within tolerance triggered %q", g.Approach.Phase)
	}
	// A lower minimum resets the reference.
	tick(900, 20*time.Second)
	if g := tick(1050, 30*time.Second); g.Approach.Phase != PhaseMAP {
		t.Errorf("climb within tolerance of the new minimum triggered %q", g.Approach.Phase)
	}

	g := tick(1150, 40*time.Second)
	if g.Approach.Phase != PhaseMissed || !g.Approach.Missed {
		t.Fatalf("climb beyond tolerance: phase %q missed %v, expected MISSED",
			g.Approach.Phase, g.Approach.Missed)
	}

	events := sub.Get()
	if missed := eventsOfType(events, MissedApproachEvent); len(missed) != 1 {
		t.Errorf("expected one missed approach event, got %d", len(missed))
	}
	gps := eventsOfType(events, CDISourceEvent)
	if len(gps) == 0 || gps[len(gps)-1].Source != CDISourceGPS {
		t.Errorf("missed approach should switch the CDI source back to GPS")
	}
}

func TestOBSSuspendsSequencing(t *testing.T) {
	n, _ := newTestNav(nil)
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 0.2),
	}, aviation.SourceManual)

	// Establish telemetry so OBS has a course to capture.
	tick := Telemetry{Position: math.MakePoint2LL(0, 0.05), Track: 90, GroundSpeed: 100}
	n.Update(tick, time.Now())

	n.SetOBS(true)
	st := n.OBSStatus()
	if !st.Active || !st.Suspended {
		t.Fatalf("OBS state after enable: %+v", st)
	}
	if math.HeadingDifference(st.Course, 90) > 1 {
		t.Errorf("captured OBS course %g, expected ~90 (bearing to active waypoint)", st.Course)
	}

	// A tick that would otherwise sequence must not while suspended.
	tick.Position = math.MakePoint2LL(0, 0.095)
	n.Update(tick, time.Now().Add(5*time.Second))
	if n.Plan.ActiveIndex != 0 {
		t.Errorf("sequenced while OBS suspended")
	}

	n.SetOBS(false)
	n.Update(tick, time.Now().Add(10*time.Second))
	if n.Plan.ActiveIndex != 1 {
		t.Errorf("sequencing should resume once OBS is disabled")
	}
}

func TestHoldEntryClassification(t *testing.T) {
	for _, c := range []struct {
		track float32
		dir   TurnDirection
		want  HoldEntry
	}{
		// Left-hand hold, inbound course north.
		{45, TurnLeft, EntryDirect},
		{160, TurnLeft, EntryTeardrop},
		{260, TurnLeft, EntryParallel},
		// The teardrop sector is half-open: exactly opposite the inbound
		// course is a parallel entry.
		{180, TurnLeft, EntryParallel},
		{180, TurnRight, EntryParallel},
		// Right-hand hold mirrors the sectors.
		{300, TurnRight, EntryDirect},
		{200, TurnRight, EntryTeardrop},
		{100, TurnRight, EntryParallel},
	} {
		n, _ := newTestNav(nil)
		n.LoadPlan([]aviation.Waypoint{eqWaypoint("HOLDFIX", 0.5)}, aviation.SourceManual)
		n.Update(Telemetry{Position: math.MakePoint2LL(0, 0.1), Track: c.track, GroundSpeed: 100},
			time.Now())

		n.SetOBS(true)
		n.SetOBSCourse(0) // inbound north
		n.SetHold(true, c.dir, 60)

		if got := n.OBSStatus().Entry; got != c.want {
			t.Errorf("track %g, %s turns: entry %q, expected %q", c.track, c.dir, got, c.want)
		}
	}
}

func TestDirectTo(t *testing.T) {
	loc := testLocator{
		"XRAY": {Ident: "XRAY", Location: math.MakePoint2LL(1, 1), Type: "FIX"},
	}
	n, sub := newTestNav(loc)
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 0.5),
	}, aviation.SourceManual)

	// A plan waypoint is activated in place.
	if err := n.DirectTo("B"); err != nil {
		t.Fatalf("direct-to plan waypoint: %v", err)
	}
	if active, _ := n.ActiveWaypoint(); !active.PlanIndexed || n.Plan.ActiveIndex != 1 {
		t.Errorf("direct-to B: active %+v index %d", active, n.Plan.ActiveIndex)
	}

	// An off-plan fix comes from the locator and leaves the plan alone.
	if err := n.DirectTo("XRAY"); err != nil {
		t.Fatalf("direct-to off-plan fix: %v", err)
	}
	active, ok := n.ActiveWaypoint()
	if !ok || active.PlanIndexed || active.Ident != "XRAY" {
		t.Errorf("direct-to XRAY: active %+v", active)
	}

	// Off-plan direct-to: CDI is the direct bearing with no cross-track.
	g := n.Update(Telemetry{Position: math.MakePoint2LL(0, 0.9), Track: 45, GroundSpeed: 100},
		time.Now())
	if !g.CDI.Valid || g.CDI.CrossTrackError != 0 || g.CDI.Needle != 0 {
		t.Errorf("direct-to CDI: %+v, expected centered", g.CDI)
	}

	if err := n.DirectTo("NOWHERE"); err != ErrFixNotFound {
		t.Errorf("unknown fix: got %v, expected ErrFixNotFound", err)
	}

	dt := eventsOfType(sub.Get(), DirectToEvent)
	if len(dt) != 2 || dt[1].ToIdent != "XRAY" {
		t.Errorf("direct-to events: got %+v", dt)
	}
}

func TestNoFixLeavesStateAlone(t *testing.T) {
	n, _ := newTestNav(nil)
	n.LoadPlan([]aviation.Waypoint{
		eqWaypoint("A", 0.1),
		eqWaypoint("B", 0.2),
	}, aviation.SourceManual)

	g := n.Update(Telemetry{Track: 90, GroundSpeed: 100}, time.Now())
	if g.CDI.Valid {
		t.Errorf("zero lat-long must be treated as no fix, not a valid position")
	}
	if n.Plan.ActiveIndex != 0 {
		t.Errorf("no-fix tick mutated the active index")
	}
}

func TestSyncedPlanArbitration(t *testing.T) {
	n, _ := newTestNav(nil)

	wps := []aviation.Waypoint{eqWaypoint("A", 0.1), eqWaypoint("B", 0.5)}
	if !n.ApplySyncedPlan(wps, aviation.SourceSimBrief) {
		t.Fatalf("refresh should apply over the default synced plan")
	}
	// Refreshing its own earlier fetch is allowed.
	if !n.ApplySyncedPlan(wps, aviation.SourceSimBrief) {
		t.Errorf("refresh should apply over an earlier refresh")
	}

	// Any manual edit suppresses further refreshes.
	n.InsertWaypoint(eqWaypoint("C", 1), 2)
	if n.ApplySyncedPlan(wps, aviation.SourceSimBrief) {
		t.Errorf("refresh applied over a manually edited plan")
	}
}
