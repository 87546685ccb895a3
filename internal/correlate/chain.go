// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"context"
	"sync"

	"github.com/holomush/hitreg/internal/core"
)

// DamageListener observes damage notifications before correlation.
// Listeners may modify the event, e.g. set Cancelled.
type DamageListener interface {
	OnDamage(ctx context.Context, ev *core.DamageEvent)
}

// DamageListenerFunc adapts a function to DamageListener.
type DamageListenerFunc func(ctx context.Context, ev *core.DamageEvent)

// OnDamage implements DamageListener.
func (f DamageListenerFunc) OnDamage(ctx context.Context, ev *core.DamageEvent) {
	f(ctx, ev)
}

// DamageChain dispatches a damage notification to its listeners in
// registration order and then, always last, to the damage observer, so that
// correlation sees the final state of the notification.
//
// A cancelled notification is still correlated.
type DamageChain struct {
	mu        sync.RWMutex
	listeners []DamageListener
	observer  *DamageObserver
}

// NewDamageChain creates a chain that ends in observer.
func NewDamageChain(observer *DamageObserver) *DamageChain {
	return &DamageChain{observer: observer}
}

// Add appends l to the listeners that run before the observer.
func (c *DamageChain) Add(l DamageListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Dispatch runs the chain for ev.
func (c *DamageChain) Dispatch(ctx context.Context, ev core.DamageEvent) (core.Outcome, bool) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()

	for _, l := range listeners {
		l.OnDamage(ctx, &ev)
	}
	return c.observer.OnDamage(ctx, &ev)
}
