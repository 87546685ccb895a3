// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Registry manages command registration and lookup.
// It is thread-safe for concurrent access.
type Registry struct {
	commands map[string]Entry
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Entry),
	}
}

// Register adds a command to the registry.
// If a command with the same name exists, it is overwritten and a warning is logged.
func (r *Registry) Register(entry Entry) error {
	if entry.Name == "" || entry.Handler == nil {
		return oops.Code("INVALID_ENTRY").
			With("command", entry.Name).
			Errorf("command entry needs a name and a handler")
	}
	entry.Name = strings.ToLower(entry.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[entry.Name]; ok {
		slog.Warn("command conflict: overwriting existing command", "command", entry.Name)
	}

	r.commands[entry.Name] = entry
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[name]
	return entry, ok
}

// All returns all registered commands sorted by name.
// The returned slice is a copy and safe to modify.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return entries
}
