// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels for CommandExecutions.
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusNotFound         = "not_found"
	StatusPermissionDenied = "permission_denied"
	StatusRateLimited      = "rate_limited"
)

// CommandExecutions counts dispatches by subcommand and status. Unknown
// subcommands share the "unknown" label.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hitreg_command_executions_total",
		Help: "Total number of administrative command executions",
	},
	[]string{"command", "status"},
)

// CommandDuration observes dispatch latency per subcommand.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hitreg_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// RegisterMetrics registers the command metrics with reg. It panics on
// duplicate registration.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
}

// dispatchMetrics accumulates the labels of one dispatch. Nothing is
// recorded until a command name is known.
type dispatchMetrics struct {
	start   time.Time
	command string
	status  string
}

func startDispatch() *dispatchMetrics {
	return &dispatchMetrics{start: time.Now(), status: StatusSuccess}
}

func (m *dispatchMetrics) observe(command, status string) {
	m.command = command
	m.status = status
}

func (m *dispatchMetrics) finish() {
	if m.command == "" {
		return
	}
	CommandExecutions.WithLabelValues(m.command, m.status).Inc()
	CommandDuration.WithLabelValues(m.command).Observe(time.Since(m.start).Seconds())
}
