// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package ingest is the websocket bridge between a game server and the
// correlation engine. A bridge streams entity lifecycle, interaction and
// damage frames; hitreg answers with notifications and command results.
package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"
	"github.com/samber/oops"

	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
	"github.com/holomush/hitreg/internal/world"
)

// BridgePath is the HTTP path bridges connect to.
const BridgePath = "/bridge"

// DefaultHandshakeTimeout bounds the wait for the hello frame.
const DefaultHandshakeTimeout = 10 * time.Second

// Engine is the correlation surface the bridge drives.
type Engine interface {
	DamageHandler
	OnInteraction(ctx context.Context, ev core.InteractionEvent) correlate.Disposition
	IsEnabled() bool
	ActiveZones() []core.ZoneName
}

// EntityTracker keeps the live entity registry in sync with the bridge.
type EntityTracker interface {
	LoadZone(zone core.ZoneName)
	UnloadZone(zone core.ZoneName)
	Spawn(zone core.ZoneName, e world.Entity) error
	Move(id core.ActorID, zone core.ZoneName, handle core.Handle) error
	Despawn(id core.ActorID) bool
}

// CommandRunner executes administrative command lines.
type CommandRunner interface {
	Dispatch(ctx context.Context, sender, line string, out io.Writer) error
}

// Config holds the server's collaborators and tuning.
type Config struct {
	Engine   Engine
	Entities EntityTracker
	Commands CommandRunner // optional; command frames are rejected when nil
	Router   *Router       // optional; created when nil

	// Constraint is the accepted bridge protocol range (default "^1").
	Constraint       string
	HandshakeTimeout time.Duration
	DamageQueue      int
}

// Server accepts bridge connections.
type Server struct {
	engine     Engine
	entities   EntityTracker
	commands   CommandRunner
	constraint *semver.Constraints
	handshake  time.Duration
	upgrader   websocket.Upgrader
	damage     *DamageLoop

	router *Router

	mu      sync.Mutex
	closing bool
	all     map[*bridgeConn]struct{} // every upgraded connection

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
	wg         sync.WaitGroup
}

// NewServer validates cfg and starts the damage loop.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, oops.Code("INGEST_CONFIG_INVALID").Errorf("engine is required")
	}
	if cfg.Entities == nil {
		return nil, oops.Code("INGEST_CONFIG_INVALID").Errorf("entity tracker is required")
	}
	raw := cfg.Constraint
	if raw == "" {
		raw = DefaultProtocolConstraint
	}
	constraint, err := semver.NewConstraint(raw)
	if err != nil {
		return nil, oops.Code("INGEST_CONFIG_INVALID").With("constraint", raw).Wrap(err)
	}
	handshake := cfg.HandshakeTimeout
	if handshake <= 0 {
		handshake = DefaultHandshakeTimeout
	}

	router := cfg.Router
	if router == nil {
		router = NewRouter()
	}

	return &Server{
		router:     router,
		engine:     cfg.Engine,
		entities:   cfg.Entities,
		commands:   cfg.Commands,
		constraint: constraint,
		handshake:  handshake,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// bridges are server-side processes, not browsers
			CheckOrigin: func(*http.Request) bool { return true },
		},
		damage: NewDamageLoop(cfg.Engine, cfg.DamageQueue),
		all:    make(map[*bridgeConn]struct{}),
	}, nil
}

// Handler returns the HTTP handler serving BridgePath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(BridgePath, s.handleBridge)
	return mux
}

// Start listens on addr and serves bridges in the background. The returned
// channel receives a serve error, and is closed when the server stops.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("INGEST_ALREADY_RUNNING").Errorf("ingest server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("INGEST_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("ingest server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("ingest server started", "addr", listener.Addr().String(), "path", BridgePath)
	return errCh, nil
}

// Addr returns the listening address, or "" when not started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Stop closes every bridge connection, waits for their read loops, and then
// drains the damage loop.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	if s.running.CompareAndSwap(true, false) && s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = oops.With("operation", "shutdown_ingest_server").Wrap(err)
		}
	}

	s.mu.Lock()
	s.closing = true
	for c := range s.all {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.damage.Stop()
	slog.Info("ingest server stopped")
	return shutdownErr
}

// Router returns the router notifications are sent through.
func (s *Server) Router() *Router {
	return s.router
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("bridge upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newBridgeConn(s, ws, r.RemoteAddr)
	if !s.track(c) {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer s.untrack(c)

	if !c.handshake(r.Context()) {
		return
	}

	s.attach(c)
	defer s.detach(c)
	c.readLoop(context.WithoutCancel(r.Context()))
}

// track registers an upgraded connection unless the server is stopping.
func (s *Server) track(c *bridgeConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.all[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *bridgeConn) {
	s.mu.Lock()
	delete(s.all, c)
	s.mu.Unlock()
	c.close()
	s.wg.Done()
}

func (s *Server) attach(c *bridgeConn) {
	s.router.attach(c)
	slog.Info("bridge connected", "remote", c.remote, "server", c.server)
}

// detach forgets c and despawns every entity it owned, since its snapshot
// is no longer maintained.
func (s *Server) detach(c *bridgeConn) {
	orphans := s.router.detach(c)
	for _, id := range orphans {
		s.entities.Despawn(id)
	}
	slog.Info("bridge disconnected", "remote", c.remote, "orphans", len(orphans))
}
