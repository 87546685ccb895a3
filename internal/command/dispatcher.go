// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/hitreg/internal/access"
)

var tracer = otel.Tracer("hitreg/command")

// HelpCommand is run when the input names no subcommand.
const HelpCommand = "help"

// Dispatcher handles command parsing, permission checks, and execution.
type Dispatcher struct {
	registry    *Registry
	access      access.AccessControl
	services    *Services
	rateLimiter *RateLimiter // optional, can be nil
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter configures the dispatcher to use rate limiting.
// If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// NewDispatcher creates a new command dispatcher.
// Returns an error if registry, ac or services is nil.
func NewDispatcher(registry *Registry, ac access.AccessControl, services *Services, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if ac == nil {
		return nil, ErrNilAccessControl
	}
	if services == nil || services.Engine == nil {
		return nil, ErrNilServices()
	}
	d := &Dispatcher{
		registry: registry,
		access:   ac,
		services: services,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Registry returns the registry commands are resolved from.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch parses input and runs the named subcommand for sender, writing
// replies to out. Rejected commands mutate nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, sender, input string, out io.Writer) (err error) {
	metrics := startDispatch()
	defer metrics.finish()

	parsed, err := Parse(input)
	if err != nil {
		parsed = &ParsedCommand{Name: HelpCommand, Raw: input}
	}

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", parsed.Name),
			attribute.String("command.sender", sender),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// one permission guards every subcommand, including help
	if !d.access.Check(ctx, sender, access.ActionExecute, access.ResourceCommand) {
		metrics.observe(parsed.Name, StatusPermissionDenied)
		err = ErrPermissionDenied(parsed.Name, sender)
		return err
	}

	if d.rateLimiter != nil && !d.access.Check(ctx, sender, access.ActionExecute, ResourceRateLimitBypass) {
		if allowed, cooldownMs := d.rateLimiter.Allow(sender); !allowed {
			span.SetAttributes(attribute.Bool("command.rate_limited", true))
			span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
			metrics.observe(parsed.Name, StatusRateLimited)
			err = ErrRateLimited(cooldownMs)
			return err
		}
	}

	entry, ok := d.registry.Get(parsed.Name)
	if !ok {
		metrics.observe("unknown", StatusNotFound)
		err = ErrUnknownSubcommand(parsed.Name)
		return err
	}
	metrics.observe(entry.Name, StatusSuccess)

	exec := &Execution{
		Sender:    sender,
		InvokedAs: parsed.Name,
		Args:      parsed.Args,
		Output:    out,
		Services:  d.services,
	}
	err = entry.Handler(ctx, exec)
	if err != nil {
		metrics.status = StatusError
		slog.WarnContext(ctx, "command execution failed",
			"command", entry.Name,
			"sender", sender,
			"error", err,
		)
	}
	return err
}
