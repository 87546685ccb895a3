// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hitreg/internal/access"
	"github.com/holomush/hitreg/internal/command"
	"github.com/holomush/hitreg/internal/command/handlers"
	"github.com/holomush/hitreg/internal/config"
	"github.com/holomush/hitreg/internal/control"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/ingest"
	"github.com/holomush/hitreg/internal/logging"
	"github.com/holomush/hitreg/internal/marker"
	"github.com/holomush/hitreg/internal/observability"
	"github.com/holomush/hitreg/internal/world"
)

const (
	serviceName     = "hitreg"
	serveComponent  = "serve"
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the correlation engine and accept bridge connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigPath(*configFile)
			if err != nil {
				return err
			}
			settings, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err //nolint:wrapcheck // already coded by config
			}
			if err := logging.SetDefault(serviceName, version, logging.Options{
				Format: settings.LogFormat,
				Level:  settings.LogLevel,
			}); err != nil {
				return err //nolint:wrapcheck // already coded by logging
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, path, settings, control.Options{})
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// app holds every long-lived component of a serve process.
type app struct {
	settings *config.Settings
	store    *config.Store
	access   *access.StaticAccessControl
	worlds   *world.Registry
	engine   *correlate.Engine
	router   *ingest.Router
	limiter  *command.RateLimiter
	ingest   *ingest.Server
	obs      *observability.Server
	control  *control.Server
	ready    atomic.Bool
}

// newApp wires the components without starting any listener.
func newApp(path string, settings *config.Settings, ctl control.Options) (*app, error) {
	a := &app{
		settings: settings,
		store:    config.NewStore(path),
		access:   access.NewStaticAccessControl(),
		worlds:   world.NewRegistry(),
		router:   ingest.NewRouter(),
	}

	if err := a.access.AssignRoles(settings.Roles); err != nil {
		a.closeStore()
		return nil, oops.Wrapf(err, "assign configured roles")
	}

	if settings.ApplyDefaultWorlds() {
		slog.Info("no enabled worlds configured, writing default", "world", config.DefaultWorld)
		a.store.Save(settings.Runtime())
	}
	zones := make([]core.ZoneName, len(settings.EnabledWorlds))
	for i, w := range settings.EnabledWorlds {
		zones[i] = core.ZoneName(w)
	}

	a.engine = correlate.NewEngine(
		gate.New(settings.Enabled, zones...),
		marker.New(),
		a.worlds,
		a.access,
		correlate.NewNotifier(a.router),
		correlate.WithWorkers(settings.Workers),
		correlate.WithQueueSize(settings.QueueSize),
	)
	a.engine.SetDebug(settings.Debug)

	if settings.MetricsAddr != "" {
		a.obs = observability.NewServer(settings.MetricsAddr, a.ready.Load, a.engine)
		a.limiter = command.NewRateLimiterWithRegistry(command.RateLimiterConfig{}, a.obs.Registerer())
	} else {
		a.limiter = command.NewRateLimiter(command.RateLimiterConfig{})
	}

	reg := command.NewRegistry()
	handlers.RegisterAll(reg)
	dispatcher, err := command.NewDispatcher(reg, a.access, &command.Services{
		Engine:   a.engine,
		Worlds:   a.worlds,
		Settings: a.store,
		Version:  version,
	}, command.WithRateLimiter(a.limiter))
	if err != nil {
		a.teardown(context.Background())
		return nil, err //nolint:wrapcheck // already coded by command
	}

	a.ingest, err = ingest.NewServer(ingest.Config{
		Engine:      a.engine,
		Entities:    a.worlds,
		Commands:    dispatcher,
		Router:      a.router,
		DamageQueue: settings.QueueSize,
	})
	if err != nil {
		a.teardown(context.Background())
		return nil, err //nolint:wrapcheck // already coded by ingest
	}

	ctl.Version = version
	ctl.State = a.engine
	ctl.Bridges = a.router
	a.control = control.NewServer(serveComponent, ctl)
	return a, nil
}

// runServe starts every listener and blocks until ctx is done or a server
// fails, then shuts down.
func runServe(ctx context.Context, path string, settings *config.Settings, ctl control.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if ctl.Shutdown == nil {
		ctl.Shutdown = control.ShutdownFunc(cancel)
	}

	a, err := newApp(path, settings, ctl)
	if err != nil {
		return err
	}
	if err := a.start(ctx, cancel); err != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		a.teardown(shutdownCtx)
		return err
	}

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	a.teardown(shutdownCtx)
	slog.Info("shutdown complete")
	return nil
}

func (a *app) start(ctx context.Context, cancel context.CancelFunc) error {
	ingestErrs, err := a.ingest.Start(a.settings.ListenAddr)
	if err != nil {
		return err //nolint:wrapcheck // already coded by ingest
	}
	go monitorServerErrors(ctx, cancel, ingestErrs, "ingest")

	if a.obs != nil {
		obsErrs, err := a.obs.Start()
		if err != nil {
			return err //nolint:wrapcheck // already wrapped by observability
		}
		go monitorServerErrors(ctx, cancel, obsErrs, "observability")
	}

	if err := a.control.Start(); err != nil {
		return err //nolint:wrapcheck // already coded by control
	}

	a.ready.Store(true)
	a.logStartup()
	return nil
}

func (a *app) logStartup() {
	status := "DISABLED"
	if a.engine.IsEnabled() {
		status = "ENABLED"
	}
	zones := a.engine.ActiveZones()
	names := make([]string, len(zones))
	for i, z := range zones {
		names[i] = string(z)
	}
	slog.Info("hitreg started",
		"status", status,
		"debug", a.engine.Debug(),
		"enabled_worlds", strings.Join(names, ", "),
		"listen_addr", a.ingest.Addr(),
		"version", version,
	)
}

// teardown stops ingest before the engine so no frame reaches a closed
// observer, then flushes pending config saves.
func (a *app) teardown(ctx context.Context) {
	a.ready.Store(false)

	if a.control != nil {
		if err := a.control.Stop(ctx); err != nil {
			slog.Warn("error stopping control socket", "error", err)
		}
	}
	if a.obs != nil {
		if err := a.obs.Stop(ctx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
	if a.ingest != nil {
		if err := a.ingest.Stop(ctx); err != nil {
			slog.Warn("error stopping ingest server", "error", err)
		}
	}
	if a.engine != nil {
		a.engine.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	a.closeStore()
}

func (a *app) closeStore() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.store.Close(ctx); err != nil {
		slog.Error("failed to flush settings", "path", a.store.Path(), "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
