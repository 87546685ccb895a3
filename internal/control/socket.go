// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package control provides an HTTP control socket for process management.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/xdg"
)

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is returned by the /status endpoint.
type StatusResponse struct {
	Running       bool     `json:"running"`
	PID           int      `json:"pid"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Component     string   `json:"component,omitempty"`
	Version       string   `json:"version,omitempty"`
	Enabled       bool     `json:"enabled"`
	Debug         bool     `json:"debug"`
	EnabledWorlds []string `json:"enabled_worlds"`
	PendingMarks  int      `json:"pending_marks"`
	Bridges       int      `json:"bridges"`
}

// ShutdownResponse is returned by the /shutdown endpoint.
type ShutdownResponse struct {
	Message string `json:"message"`
}

// ShutdownFunc is called when shutdown is requested.
type ShutdownFunc func()

// StateSource reports engine state for /status.
type StateSource interface {
	IsEnabled() bool
	Debug() bool
	PendingMarkCount() int
	ActiveZones() []core.ZoneName
}

// BridgeCounter reports connected bridges for /status.
type BridgeCounter interface {
	Connections() int
}

// Options configures optional server collaborators.
type Options struct {
	Version  string
	State    StateSource
	Bridges  BridgeCounter
	Shutdown ShutdownFunc
	// SocketPath overrides the XDG runtime location.
	SocketPath string
}

// Server runs HTTP over a Unix socket for process management.
type Server struct {
	component  string
	opts       Options
	startTime  time.Time
	listener   net.Listener
	httpServer *http.Server
	socketPath string
	running    atomic.Bool
}

// NewServer creates a new control socket server.
// component names the process (e.g., "serve").
func NewServer(component string, opts Options) *Server {
	s := &Server{
		component: component,
		opts:      opts,
		startTime: time.Now(),
	}
	s.running.Store(true)
	return s
}

// SocketPath returns the path to the Unix socket for component.
func SocketPath(component string) (string, error) {
	runtimeDir, err := xdg.RuntimeDir()
	if err != nil {
		return "", oops.With("component", component).Wrap(err)
	}
	return filepath.Join(runtimeDir, "hitreg-"+component+".sock"), nil
}

// Path returns the socket path once started.
func (s *Server) Path() string {
	return s.socketPath
}

// Start begins listening on the Unix socket.
func (s *Server) Start() error {
	socketPath := s.opts.SocketPath
	if socketPath == "" {
		var err error
		if socketPath, err = SocketPath(s.component); err != nil {
			return err
		}
	}
	s.socketPath = socketPath

	if err := xdg.EnsureDir(filepath.Dir(socketPath)); err != nil {
		return err //nolint:wrapcheck // already coded by xdg
	}

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return oops.Code("SOCKET_REMOVE_FAILED").With("path", socketPath).Wrap(err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return oops.Code("SOCKET_LISTEN_FAILED").With("path", socketPath).Wrap(err)
	}
	s.listener = listener

	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return oops.Code("SOCKET_CHMOD_FAILED").With("path", socketPath).Wrap(err)
	}

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("control socket server error",
				"component", s.component,
				"error", err,
			)
		}
	}()

	slog.Info("control socket listening", "component", s.component, "path", socketPath)
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	return mux
}

// Stop gracefully shuts down the control socket server.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return oops.With("operation", "shutdown_control_socket").Wrap(err)
		}
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Warn("failed to close control socket listener",
				"component", s.component,
				"error", err,
			)
		}
	}

	if s.socketPath != "" {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove control socket file",
				"component", s.component,
				"path", s.socketPath,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	s.respond(w, "health", resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Running:       s.running.Load(),
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Component:     s.component,
		Version:       s.opts.Version,
		EnabledWorlds: []string{},
	}
	if st := s.opts.State; st != nil {
		resp.Enabled = st.IsEnabled()
		resp.Debug = st.Debug()
		resp.PendingMarks = st.PendingMarkCount()
		for _, z := range st.ActiveZones() {
			resp.EnabledWorlds = append(resp.EnabledWorlds, string(z))
		}
	}
	if b := s.opts.Bridges; b != nil {
		resp.Bridges = b.Connections()
	}
	s.respond(w, "status", resp)
}

// handleShutdown acknowledges first, then triggers shutdown asynchronously.
func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, "shutdown", ShutdownResponse{Message: "shutdown initiated"})
	if s.opts.Shutdown != nil {
		go s.opts.Shutdown()
	}
}

func (s *Server) respond(w http.ResponseWriter, endpoint string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write control response",
			"component", s.component,
			"endpoint", endpoint,
			"error", err,
		)
	}
}
