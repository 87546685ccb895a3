// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
)

// frameWriter is the outbound half of a bridge connection.
type frameWriter interface {
	writeJSON(v any) error
}

// Router tracks handshaken bridges and which bridge owns each player, and
// routes notifications to them. It exists before the server so the engine's
// notifier can be built first.
type Router struct {
	mu     sync.Mutex
	conns  map[frameWriter]struct{}
	owners map[core.ActorID]frameWriter
}

var _ correlate.MessageSink = (*Router)(nil)

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		conns:  make(map[frameWriter]struct{}),
		owners: make(map[core.ActorID]frameWriter),
	}
}

// Connections returns the number of handshaken bridges.
func (r *Router) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// SendMessage implements correlate.MessageSink. The message goes to the
// bridge that spawned the player, or to every bridge when the owner is
// unknown.
func (r *Router) SendMessage(_ context.Context, to core.ActorID, text string) error {
	frame := MessageFrame{Type: TypeMessage, To: to, Text: text}

	r.mu.Lock()
	targets := make([]frameWriter, 0, 1)
	if owner, ok := r.owners[to]; ok {
		targets = append(targets, owner)
	} else {
		for c := range r.conns {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return oops.Code("NO_BRIDGE").With("to", to.String()).Errorf("no bridge connected")
	}
	var errs []error
	for _, c := range targets {
		if err := c.writeJSON(frame); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return oops.Code("MESSAGE_SEND_FAILED").With("to", to.String()).Wrap(err)
	}
	return nil
}

func (r *Router) attach(c frameWriter) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
	BridgeConnections.Inc()
}

// detach forgets c and returns the players it owned.
func (r *Router) detach(c frameWriter) []core.ActorID {
	r.mu.Lock()
	delete(r.conns, c)
	var orphans []core.ActorID
	for id, owner := range r.owners {
		if owner == c {
			orphans = append(orphans, id)
			delete(r.owners, id)
		}
	}
	r.mu.Unlock()
	BridgeConnections.Dec()
	return orphans
}

func (r *Router) own(id core.ActorID, c frameWriter) {
	r.mu.Lock()
	r.owners[id] = c
	r.mu.Unlock()
}

func (r *Router) disown(id core.ActorID) {
	r.mu.Lock()
	delete(r.owners, id)
	r.mu.Unlock()
}
