// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability serves Prometheus metrics and health probes for hitreg.
package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/holomush/hitreg/internal/command"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
	"github.com/holomush/hitreg/internal/ingest"
)

// ReadinessChecker returns whether the service is ready to accept bridges.
type ReadinessChecker func() bool

// StateSource exposes engine state sampled at scrape time.
type StateSource interface {
	IsEnabled() bool
	Debug() bool
	PendingMarkCount() int
	ActiveZones() []core.ZoneName
}

// Metrics holds the gauges sampled from the engine on every scrape.
type Metrics struct {
	PendingMarks prometheus.GaugeFunc
	ActiveZones  prometheus.GaugeFunc
	Enabled      prometheus.GaugeFunc
	Debug        prometheus.GaugeFunc
}

// NewMetrics creates and registers the state gauges and the package metrics
// of the correlation, command and ingest layers.
func NewMetrics(reg prometheus.Registerer, src StateSource) *Metrics {
	m := &Metrics{
		PendingMarks: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "hitreg_pending_marks",
				Help: "Number of targets marked by an attack packet and not yet consumed",
			},
			func() float64 { return float64(src.PendingMarkCount()) },
		),
		ActiveZones: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "hitreg_active_zones",
				Help: "Number of zones in the enabled set",
			},
			func() float64 { return float64(len(src.ActiveZones())) },
		),
		Enabled: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "hitreg_enabled",
				Help: "1 when packet listening is enabled",
			},
			func() float64 { return boolGauge(src.IsEnabled()) },
		),
		Debug: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "hitreg_debug",
				Help: "1 when debug notifications are enabled",
			},
			func() float64 { return boolGauge(src.Debug()) },
		),
	}

	reg.MustRegister(m.PendingMarks, m.ActiveZones, m.Enabled, m.Debug)
	correlate.RegisterMetrics(reg)
	command.RegisterMetrics(reg)
	ingest.RegisterMetrics(reg)

	return m
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Server exposes /metrics and the liveness and readiness probes.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	isReady  ReadinessChecker

	running  atomic.Bool
	listener net.Listener
	http     *http.Server
}

// NewServer builds a server on its own registry, carrying the Go and
// process collectors alongside the hitreg metrics. addr is host:port.
func NewServer(addr string, ready ReadinessChecker, src StateSource) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry, src),
		isReady:  ready,
	}
}

// Registerer exposes the server's registry for collectors created elsewhere.
func (s *Server) Registerer() prometheus.Registerer { return s.registry }

// Metrics returns the state gauges.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.Handle("/healthz/liveness", probe(func() bool { return true }))
	mux.Handle("/healthz/readiness", probe(func() bool { return s.isReady == nil || s.isReady() }))
	return mux
}

// Start listens on addr and serves in the background. Serve failures are
// delivered on the returned channel, which closes once serving ends.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("OBSERVABILITY_RUNNING").Errorf("observability server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	srv := &http.Server{Handler: s.routes(), ReadHeaderTimeout: 10 * time.Second}
	s.listener, s.http = ln, srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("observability server started", "addr", ln.Addr().String())
	return errCh, nil
}

// Stop shuts the HTTP server down. Stopping a server that is not running
// is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.Code("OBSERVABILITY_SHUTDOWN_FAILED").Wrap(err)
	}
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// probe answers 200 "ok" while healthy returns true and 503 "not ready"
// otherwise.
func probe(healthy func() bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		status, body := http.StatusOK, "ok\n"
		if !healthy() {
			status, body = http.StatusServiceUnavailable, "not ready\n"
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}
