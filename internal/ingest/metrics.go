// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BridgeConnections is the number of bridges currently connected.
var BridgeConnections = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "hitreg_bridge_connections",
		Help: "Number of connected game-server bridges",
	},
)

// FramesTotal counts inbound frames by type and result.
var FramesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hitreg_frames_total",
		Help: "Total inbound bridge frames by type and result",
	},
	[]string{"type", "result"},
)

// Frame results.
const (
	FrameAccepted  = "accepted"
	FrameMalformed = "malformed"
	FrameRejected  = "rejected"
)

// RegisterMetrics registers ingest metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(BridgeConnections)
	reg.MustRegister(FramesTotal)
}

func recordFrame(frameType, result string) {
	FramesTotal.WithLabelValues(frameType, result).Inc()
}

// frameLabel bounds the type label to the inbound frame types. Anything a
// bridge invents is counted as "unknown".
func frameLabel(frameType string) string {
	switch frameType {
	case TypeHello, TypeSpawn, TypeDespawn, TypeMove, TypeZone,
		TypeInteract, TypeDamage, TypeCommand:
		return frameType
	default:
		return "unknown"
	}
}
