// cmd/gpsnav/telemetry.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"time"

	"github.com/simwidget/gpsnav/log"
	"github.com/simwidget/gpsnav/math"
	"github.com/simwidget/gpsnav/nav"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// wireTelemetry is the msgpack message the simulator bridge sends, at a
// few tens of Hz.
type wireTelemetry struct {
	Latitude          float32 `msgpack:"lat"`
	Longitude         float32 `msgpack:"lon"`
	Altitude          float32 `msgpack:"alt"`
	Heading           float32 `msgpack:"hdg"`
	Track             float32 `msgpack:"trk"`
	GroundSpeed       float32 `msgpack:"gs"`
	VerticalSpeed     float32 `msgpack:"vs"`
	MagneticVariation float32 `msgpack:"magvar"`
}

// wireCommand is a side-effect request sent back to the bridge: chime
// playback, radio tuning, CDI source selection.
type wireCommand struct {
	Command   string  `msgpack:"cmd"`
	Frequency float32 `msgpack:"freq,omitempty"`
	Source    string  `msgpack:"source,omitempty"`
}

// telemetryClient maintains the websocket connection to the simulator
// bridge: inbound telemetry drives navigation ticks, and the side-effect
// events each tick produces are written back as commands.
type telemetryClient struct {
	url    string
	nav    *nav.Nav
	events *nav.EventsSubscription
	lg     *log.Logger
}

func (tc *telemetryClient) Run(ctx context.Context) error {
	for {
		if err := tc.session(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tc.lg.Warnf("telemetry: %v; reconnecting", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// session runs one websocket connection until it fails.
func (tc *telemetryClient) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, tc.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	tc.lg.Info("telemetry connected")

	// Close the connection when the context is cancelled so the read
	// below unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var wire wireTelemetry
		if err := msgpack.Unmarshal(msg, &wire); err != nil {
			tc.lg.Debugf("telemetry: discarding undecodable message: %v", err)
			continue
		}

		tc.nav.Update(nav.Telemetry{
			Position:          math.MakePoint2LL(wire.Latitude, wire.Longitude),
			Altitude:          wire.Altitude,
			Heading:           wire.Heading,
			Track:             wire.Track,
			GroundSpeed:       wire.GroundSpeed,
			VerticalSpeed:     wire.VerticalSpeed,
			MagneticVariation: wire.MagneticVariation,
		}, time.Now())

		if err := tc.drainEvents(conn); err != nil {
			return err
		}
	}
}

// drainEvents forwards the tick's side-effect events to the bridge.
// Sequencing notifications are informational and stay local; only the
// commands the bridge can act on are sent.
func (tc *telemetryClient) drainEvents(conn *websocket.Conn) error {
	for _, e := range tc.events.Get() {
		var cmd wireCommand
		switch e.Type {
		case nav.PlayChimeEvent:
			cmd = wireCommand{Command: "chime"}
		case nav.TuneRadioEvent:
			cmd = wireCommand{Command: "tune", Frequency: e.Frequency}
		case nav.CDISourceEvent:
			cmd = wireCommand{Command: "cdi_source", Source: e.Source.String()}
		default:
			continue
		}

		msg, err := msgpack.Marshal(cmd)
		if err != nil {
			tc.lg.Errorf("encoding %s command: %v", cmd.Command, err)
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return err
		}
	}
	return nil
}
