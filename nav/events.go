// nav/events.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/simwidget/gpsnav/log"
)

// EventStream provides a basic pub/sub event interface: the navigation
// core posts sequencing notifications and outbound side-effect commands
// (chime, radio tune, CDI source switch) to the stream and the host
// drains them after each tick. Keeping the side effects in the stream
// keeps the core free of I/O; the core never verifies they executed.
type EventStream struct {
	mu            sync.Mutex
	events        []Event
	subscriptions map[*EventsSubscription]interface{}
	lastPost      time.Time
	lg            *log.Logger
}

type EventsSubscription struct {
	stream *EventStream
	// offset is offset in the EventStream stream array up to which the
	// subscriber has consumed events so far.
	offset  int
	source  string
	lastGet time.Time
}

func NewEventStream(lg *log.Logger) *EventStream {
	return &EventStream{
		subscriptions: make(map[*EventsSubscription]interface{}),
		lastPost:      time.Now(),
		lg:            lg,
	}
}

// Subscribe registers a new subscriber to the stream and returns an
// EventsSubscription whose Get method returns events posted after this
// point.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite, so that we can more easily debug
	// subscribers that aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", fn, line)

	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &EventsSubscription{
		stream:  e,
		offset:  len(e.events),
		source:  source,
		lastGet: time.Now(),
	}
	e.subscriptions[sub] = nil
	return sub
}

// Unsubscribe removes a subscriber from the subscriber list
func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
	e.stream = nil
}

// Post adds an event to the event stream.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	// Ignore the event if no one's paying attention.
	if len(e.subscriptions) > 0 {
		e.lastPost = time.Now()
		e.events = append(e.events, event)
	}
}

// Get returns all of the events from the stream since the last time Get
// was called for this subscription.  Note that events posted before
// Subscribe was called are never reported.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)
	e.lastGet = time.Now()

	e.stream.compact()

	return events
}

// compact reclaims storage for events that all subscribers have seen so
// that EventStream memory usage doesn't grow without bound. Must be
// called with the mutex held.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		if sub.offset < minOffset {
			minOffset = sub.offset
		}
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}
	}
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	WaypointSequencedEvent EventType = iota
	DirectToEvent
	ApproachPhaseEvent
	MissedApproachEvent
	PlanRefreshedEvent
	// Side-effect commands for the host:
	PlayChimeEvent
	TuneRadioEvent
	CDISourceEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"WaypointSequenced", "DirectTo", "ApproachPhase", "MissedApproach",
		"PlanRefreshed", "PlayChime", "TuneRadio", "CDISource"}[t]
}

// CDISourceSelect names the navigation source the CDI should display.
type CDISourceSelect int

const (
	CDISourceGPS CDISourceSelect = iota
	CDISourceNAV
)

func (s CDISourceSelect) String() string {
	return []string{"GPS", "NAV"}[s]
}

type Event struct {
	Type      EventType
	FromIdent string // waypoint passed (sequencing)
	ToIdent   string // new active waypoint / direct-to target
	Phase     ApproachPhase
	Frequency float32 // MHz, TuneRadioEvent
	Source    CDISourceSelect
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String())}
	if e.FromIdent != "" {
		attrs = append(attrs, slog.String("from", e.FromIdent))
	}
	if e.ToIdent != "" {
		attrs = append(attrs, slog.String("to", e.ToIdent))
	}
	if e.Type == ApproachPhaseEvent {
		attrs = append(attrs, slog.String("phase", e.Phase.String()))
	}
	if e.Frequency != 0 {
		attrs = append(attrs, slog.Float64("frequency", float64(e.Frequency)))
	}
	if e.Type == CDISourceEvent {
		attrs = append(attrs, slog.String("source", e.Source.String()))
	}
	return slog.GroupValue(attrs...)
}
