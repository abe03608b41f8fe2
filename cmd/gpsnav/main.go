// cmd/gpsnav/main.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// gpsnav is a GPS/FMS navigation engine for simulated aircraft: it
// consumes a telemetry feed from a simulator bridge, runs flight-plan
// sequencing, CDI, approach, and VNAV guidance, and serves the results
// over HTTP for instrument rendering.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/simwidget/gpsnav/aviation"
	"github.com/simwidget/gpsnav/log"
	"github.com/simwidget/gpsnav/nav"
	"github.com/simwidget/gpsnav/simbrief"

	"github.com/jasonlvhit/gocron"
	"github.com/peterbourgon/ff"
	"golang.org/x/sync/errgroup"
)

func main() {
	fs := flag.NewFlagSet("gpsnav", flag.ExitOnError)
	var (
		telemetryURL   = fs.String("telemetry-url", "ws://localhost:8765/telemetry", "websocket URL of the simulator telemetry bridge")
		listenAddr     = fs.String("listen", ":6571", "address for the HTTP guidance API")
		fixDBPath      = fs.String("fixdb", "", "path to the zstd-compressed fix database")
		fixServiceURL  = fs.String("fix-service", "", "base URL of the remote fix lookup service (optional)")
		simbriefUserID = fs.String("simbrief-userid", "", "SimBrief user id for background plan refresh (optional)")
		logLevel       = fs.String("loglevel", "info", "logging level: debug, info, warn, error")
		logDir         = fs.String("logdir", "", "directory for log files (default: user config dir)")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("GPSNAV")); err != nil {
		fmt.Fprintf(os.Stderr, "parsing flags: %v\n", err)
		os.Exit(1)
	}

	lg := log.New(*logLevel, *logDir)

	var locator aviation.TieredLocator
	if *fixDBPath != "" {
		db, err := aviation.LoadStaticDB(*fixDBPath)
		if err != nil {
			lg.Errorf("%s: %v", *fixDBPath, err)
			os.Exit(1)
		}
		locator = append(locator, db)
	}
	if *fixServiceURL != "" {
		locator = append(locator, aviation.NewRemoteLocator(*fixServiceURL, lg))
	}

	es := nav.NewEventStream(lg)
	n := nav.New(locator, es, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	tc := &telemetryClient{url: *telemetryURL, nav: n, events: es.Subscribe(), lg: lg}
	g.Go(func() error { return tc.Run(ctx) })

	srv := newServer(*listenAddr, n, lg)
	g.Go(func() error { return srv.Run(ctx) })

	if *simbriefUserID != "" {
		updater := simbrief.NewUpdater(*simbriefUserID, n, lg)
		sched := gocron.NewScheduler()
		if err := updater.Schedule(sched); err != nil {
			lg.Errorf("scheduling simbrief refresh: %v", err)
			os.Exit(1)
		}
		g.Go(func() error {
			stopped := sched.Start()
			select {
			case <-ctx.Done():
				close(stopped)
				return ctx.Err()
			case <-stopped:
				return nil
			}
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		lg.Errorf("shutting down: %v", err)
		os.Exit(1)
	}
}
