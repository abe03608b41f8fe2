// cmd/gpsnav/server.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/simwidget/gpsnav/aviation"
	"github.com/simwidget/gpsnav/log"
	"github.com/simwidget/gpsnav/nav"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// server exposes the navigator over HTTP for instrument rendering and
// pilot input: guidance snapshots are GETs, plan edits and mode changes
// are POSTs.
type server struct {
	addr string
	nav  *nav.Nav
	lg   *log.Logger
}

func newServer(addr string, n *nav.Nav, lg *log.Logger) *server {
	return &server{addr: addr, nav: n, lg: lg}
}

// recoveryLogger adapts our logger to the Println interface the recovery
// middleware wants.
type recoveryLogger struct{ lg *log.Logger }

func (r recoveryLogger) Println(args ...interface{}) {
	r.lg.Error(fmt.Sprint(args...))
}

func (s *server) Run(ctx context.Context) error {
	r := mux.NewRouter()
	r.HandleFunc("/api/guidance", s.handleGuidance).Methods("GET")
	r.HandleFunc("/api/plan", s.handlePlan).Methods("GET")
	r.HandleFunc("/api/plan", s.handleLoadPlan).Methods("PUT")
	r.HandleFunc("/api/plan/invert", s.handleInvert).Methods("POST")
	r.HandleFunc("/api/obs", s.handleOBS).Methods("POST")
	r.HandleFunc("/api/approach", s.handleApproach).Methods("GET")
	r.HandleFunc("/api/directto/{ident}", s.handleDirectTo).Methods("POST")

	srv := &http.Server{
		Addr:    s.addr,
		Handler: handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.lg}))(r),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.lg.Infof("serving guidance API on %s", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.lg.Errorf("encoding response: %v", err)
	}
}

func (s *server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.nav.Guidance())
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.nav.PlanSnapshot())
}

func (s *server) handleLoadPlan(w http.ResponseWriter, r *http.Request) {
	var wps []aviation.Waypoint
	if err := json.NewDecoder(r.Body).Decode(&wps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.nav.LoadPlan(wps, aviation.SourceManual)
	s.respond(w, s.nav.PlanSnapshot())
}

func (s *server) handleInvert(w http.ResponseWriter, r *http.Request) {
	s.nav.InvertPlan()
	s.respond(w, s.nav.PlanSnapshot())
}

func (s *server) handleApproach(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.nav.ApproachStatus())
}

func (s *server) handleOBS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enable bool     `json:"enable"`
		Course *float32 `json:"course,omitempty"` // degrees magnetic
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.nav.SetOBS(req.Enable)
	if req.Enable && req.Course != nil {
		s.nav.SetOBSCourse(*req.Course)
	}
	s.respond(w, s.nav.OBSStatus())
}

func (s *server) handleDirectTo(w http.ResponseWriter, r *http.Request) {
	ident := mux.Vars(r)["ident"]
	if err := s.nav.DirectTo(ident); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, nav.ErrFixNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	active, _ := s.nav.ActiveWaypoint()
	s.respond(w, active)
}
