// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/hitreg/internal/command"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
	"github.com/holomush/hitreg/internal/world"
)

var tracer = otel.Tracer("hitreg/ingest")

const writeTimeout = 5 * time.Second

// bridgeConn is one bridge websocket. Reads happen on the handler
// goroutine; writes may come from anywhere and are serialized by writeMu.
type bridgeConn struct {
	srv    *Server
	ws     *websocket.Conn
	remote string
	server string

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newBridgeConn(srv *Server, ws *websocket.Conn, remote string) *bridgeConn {
	return &bridgeConn{srv: srv, ws: ws, remote: remote}
}

func (c *bridgeConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err //nolint:wrapcheck // callers wrap with frame context
	}
	return c.ws.WriteJSON(v) //nolint:wrapcheck // callers wrap with frame context
}

// closeWith sends a close frame with code and reason, then closes.
func (c *bridgeConn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
}

func (c *bridgeConn) close() {
	c.closeOnce.Do(func() { _ = c.ws.Close() })
}

// handshake reads the hello frame, checks the protocol version and answers
// with a welcome. Failures close the socket with a policy violation.
func (c *bridgeConn) handshake(ctx context.Context) (ok bool) {
	ctx, span := tracer.Start(ctx, "ingest.handshake",
		trace.WithAttributes(attribute.String("bridge.remote", c.remote)))
	defer span.End()

	reject := func(reason string) bool {
		recordFrame(TypeHello, FrameRejected)
		span.SetStatus(codes.Error, reason)
		slog.WarnContext(ctx, "bridge handshake rejected", "remote", c.remote, "reason", reason)
		c.closeWith(websocket.ClosePolicyViolation, reason)
		return false
	}

	_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.handshake))
	_, payload, err := c.ws.ReadMessage()
	if err != nil {
		slog.DebugContext(ctx, "bridge closed before hello", "remote", c.remote, "error", err)
		c.close()
		return false
	}

	var hello HelloFrame
	if err := json.Unmarshal(payload, &hello); err != nil || hello.Type != TypeHello {
		return reject("expected hello frame")
	}
	version, err := semver.NewVersion(hello.Protocol)
	if err != nil {
		return reject("invalid protocol version " + hello.Protocol)
	}
	if !c.srv.constraint.Check(version) {
		return reject("unsupported protocol version " + version.String())
	}
	_ = c.ws.SetReadDeadline(time.Time{})

	c.server = hello.Server
	span.SetAttributes(
		attribute.String("bridge.server", hello.Server),
		attribute.String("bridge.protocol", version.String()),
	)
	recordFrame(TypeHello, FrameAccepted)

	zones := c.srv.engine.ActiveZones()
	names := make([]string, len(zones))
	for i, z := range zones {
		names[i] = string(z)
	}
	if err := c.writeJSON(WelcomeFrame{
		Type:     TypeWelcome,
		Protocol: ProtocolVersion,
		Enabled:  c.srv.engine.IsEnabled(),
		Zones:    names,
	}); err != nil {
		slog.WarnContext(ctx, "failed to send welcome", "remote", c.remote, "error", err)
		c.close()
		return false
	}
	return true
}

func (c *bridgeConn) readLoop(ctx context.Context) {
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "bridge read ended", "remote", c.remote, "error", err)
			}
			return
		}
		c.handleFrame(ctx, payload)
	}
}

func (c *bridgeConn) handleFrame(ctx context.Context, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.malformed(ctx, "unknown", "invalid JSON", err)
		return
	}

	switch env.Type {
	case TypeInteract:
		var f InteractFrame
		if err := json.Unmarshal(payload, &f); err != nil || f.Subject.IsZero() {
			c.malformed(ctx, env.Type, "interact needs subject, zone, kind, action and target", err)
			return
		}
		c.onInteract(ctx, f)
	case TypeDamage:
		var f DamageFrame
		if err := json.Unmarshal(payload, &f); err != nil || f.Attacker.IsZero() || f.Target.IsZero() {
			c.malformed(ctx, env.Type, "damage needs attacker and target", err)
			return
		}
		c.onDamage(ctx, f)
	case TypeSpawn:
		var f SpawnFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			c.malformed(ctx, env.Type, "invalid spawn frame", err)
			return
		}
		c.onSpawn(ctx, f)
	case TypeDespawn:
		var f DespawnFrame
		if err := json.Unmarshal(payload, &f); err != nil || f.ID.IsZero() {
			c.malformed(ctx, env.Type, "despawn needs id", err)
			return
		}
		c.srv.entities.Despawn(f.ID)
		c.srv.router.disown(f.ID)
		recordFrame(env.Type, FrameAccepted)
	case TypeMove:
		var f MoveFrame
		if err := json.Unmarshal(payload, &f); err != nil || f.ID.IsZero() {
			c.malformed(ctx, env.Type, "move needs id, zone and handle", err)
			return
		}
		c.onMove(ctx, f)
	case TypeZone:
		var f ZoneFrame
		if err := json.Unmarshal(payload, &f); err != nil || f.Zone == "" {
			c.malformed(ctx, env.Type, "zone needs a name", err)
			return
		}
		if f.Loaded {
			c.srv.entities.LoadZone(f.Zone)
		} else {
			c.srv.entities.UnloadZone(f.Zone)
		}
		recordFrame(env.Type, FrameAccepted)
		slog.InfoContext(ctx, "zone state changed", "zone", string(f.Zone), "loaded", f.Loaded)
	case TypeCommand:
		var f CommandFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			c.malformed(ctx, env.Type, "invalid command frame", err)
			return
		}
		c.onCommand(ctx, f)
	case TypeHello:
		c.rejected(ctx, env.Type, "duplicate hello")
	default:
		c.malformed(ctx, env.Type, "unknown frame type "+env.Type, nil)
	}
}

func (c *bridgeConn) onInteract(ctx context.Context, f InteractFrame) {
	recordFrame(TypeInteract, FrameAccepted)
	disp := c.srv.engine.OnInteraction(ctx, f.Event())
	if disp != correlate.Queued {
		slog.DebugContext(ctx, "interaction not queued",
			"subject", f.Subject.String(),
			"zone", string(f.Zone),
			"disposition", disp.String())
	}
}

func (c *bridgeConn) onDamage(ctx context.Context, f DamageFrame) {
	if err := c.srv.damage.Submit(ctx, f.Event()); err != nil {
		recordFrame(TypeDamage, FrameRejected)
		slog.WarnContext(ctx, "damage dropped", "remote", c.remote, "error", err)
		return
	}
	recordFrame(TypeDamage, FrameAccepted)
}

func (c *bridgeConn) onSpawn(ctx context.Context, f SpawnFrame) {
	err := c.srv.entities.Spawn(f.Zone, world.Entity{
		ID:     f.ID,
		Kind:   core.ParseActorKind(f.Kind),
		Handle: f.Handle,
	})
	if err != nil {
		c.rejected(ctx, TypeSpawn, err.Error())
		return
	}
	c.srv.router.own(f.ID, c)
	recordFrame(TypeSpawn, FrameAccepted)
}

func (c *bridgeConn) onMove(ctx context.Context, f MoveFrame) {
	if err := c.srv.entities.Move(f.ID, f.Zone, f.Handle); err != nil {
		c.rejected(ctx, TypeMove, err.Error())
		return
	}
	recordFrame(TypeMove, FrameAccepted)
}

func (c *bridgeConn) onCommand(ctx context.Context, f CommandFrame) {
	ctx, span := tracer.Start(ctx, "ingest.command",
		trace.WithAttributes(
			attribute.Int64("command.seq", int64(f.Seq)), //nolint:gosec // seq is an opaque correlation id
			attribute.String("command.sender", f.Sender),
		))
	defer span.End()

	result := CommandResultFrame{Type: TypeCommandResult, Seq: f.Seq, Lines: []string{}}
	if c.srv.commands == nil {
		recordFrame(TypeCommand, FrameRejected)
		result.Error = "Commands are not available."
	} else {
		recordFrame(TypeCommand, FrameAccepted)
		var out bytes.Buffer
		if err := c.srv.commands.Dispatch(ctx, f.Sender, f.Line, &out); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			result.Error = command.PlayerMessage(err)
		}
		result.Lines = splitLines(out.String())
	}

	if err := c.writeJSON(result); err != nil {
		slog.WarnContext(ctx, "failed to send command result", "remote", c.remote, "seq", f.Seq, "error", err)
	}
}

func (c *bridgeConn) malformed(ctx context.Context, frameType, reason string, err error) {
	recordFrame(frameLabel(frameType), FrameMalformed)
	slog.WarnContext(ctx, "malformed bridge frame discarded",
		"remote", c.remote,
		"type", frameType,
		"reason", reason,
		"error", err)
	c.sendError(ctx, reason)
}

func (c *bridgeConn) rejected(ctx context.Context, frameType, reason string) {
	recordFrame(frameLabel(frameType), FrameRejected)
	slog.DebugContext(ctx, "bridge frame rejected", "remote", c.remote, "type", frameType, "reason", reason)
	c.sendError(ctx, reason)
}

func (c *bridgeConn) sendError(ctx context.Context, reason string) {
	if err := c.writeJSON(ErrorFrame{Type: TypeError, Reason: reason}); err != nil {
		slog.DebugContext(ctx, "failed to send error frame", "remote", c.remote, "error", err)
	}
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
