// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the hitreg administrative commands: registry,
// parser, dispatch and the built-in handlers.
package command

import (
	"context"
	"io"
	"sync"

	"github.com/holomush/hitreg/internal/config"
	"github.com/holomush/hitreg/internal/core"
)

// Handler is the function signature for command handlers.
type Handler func(ctx context.Context, exec *Execution) error

// Entry represents a registered command.
type Entry struct {
	Name    string  // canonical name (e.g., "toggle")
	Handler Handler // implementation
	Help    string  // short description (one line)
	Usage   string  // usage pattern (e.g., "world add <world>")
}

// Execution provides context for command execution.
type Execution struct {
	Sender    string // access subject of the caller ("player:<id>" or "console")
	InvokedAs string
	Args      string
	Output    io.Writer
	Services  *Services
}

// Controller is the runtime surface of the correlation engine that commands
// read and mutate.
type Controller interface {
	ToggleEnabled() bool
	IsEnabled() bool
	SetZoneActive(zone core.ZoneName, active bool) bool
	IsZoneActive(zone core.ZoneName) bool
	ActiveZones() []core.ZoneName
	PendingMarkCount() int
	ToggleDebug() bool
	Debug() bool
}

// WorldView reports which zones the game server has loaded.
type WorldView interface {
	IsLoaded(zone core.ZoneName) bool
}

// Services provides access to the collaborators handlers need.
// Handlers MUST NOT store references to services beyond execution.
type Services struct {
	Engine   Controller
	Worlds   WorldView
	Settings config.Persister // optional; nil disables persistence
	Version  string

	persistMu sync.Mutex
}

// Persist records the current runtime state when a persister is configured.
func (s *Services) Persist() {
	if s.Settings == nil {
		return
	}
	// Snapshot and Save stay paired so the last Save always holds the
	// newest state.
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	zones := s.Engine.ActiveZones()
	worlds := make([]string, len(zones))
	for i, z := range zones {
		worlds[i] = string(z)
	}
	s.Settings.Save(config.State{
		Enabled:       s.Engine.IsEnabled(),
		Debug:         s.Engine.Debug(),
		EnabledWorlds: worlds,
	})
}
