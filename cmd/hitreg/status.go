// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hitreg/internal/control"
)

// ProcessStatus is what `hitreg status` reports for the serve process.
type ProcessStatus struct {
	Component     string   `json:"component"`
	Running       bool     `json:"running"`
	PID           int      `json:"pid,omitempty"`
	UptimeSeconds int64    `json:"uptime_seconds,omitempty"`
	Version       string   `json:"version,omitempty"`
	Enabled       bool     `json:"enabled"`
	Debug         bool     `json:"debug"`
	EnabledWorlds []string `json:"enabled_worlds,omitempty"`
	PendingMarks  int      `json:"pending_marks"`
	Bridges       int      `json:"bridges"`
	Error         string   `json:"error,omitempty"`
}

type statusConfig struct {
	jsonOutput bool
	socketPath string
}

func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of the running hitreg process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().StringVar(&cfg.socketPath, "socket", "", "control socket path (default: XDG runtime dir)")
	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status := queryProcessStatus(ctx, cfg.socketPath)
	if cfg.jsonOutput {
		out, err := formatStatusJSON(status)
		if err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	}
	cmd.Print(formatStatusTable(status))
	return nil
}

func queryProcessStatus(ctx context.Context, socketPath string) ProcessStatus {
	status := ProcessStatus{Component: serveComponent}

	if socketPath == "" {
		var err error
		if socketPath, err = control.SocketPath(serveComponent); err != nil {
			status.Error = fmt.Sprintf("failed to get socket path: %v", err)
			return status
		}
	}
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		status.Error = "socket not found"
		return status
	}

	resp, err := control.NewClient(socketPath).Status(ctx)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}

	status.Running = resp.Running
	status.PID = resp.PID
	status.UptimeSeconds = resp.UptimeSeconds
	status.Version = resp.Version
	status.Enabled = resp.Enabled
	status.Debug = resp.Debug
	status.EnabledWorlds = resp.EnabledWorlds
	status.PendingMarks = resp.PendingMarks
	status.Bridges = resp.Bridges
	return status
}

func formatStatusTable(s ProcessStatus) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROCESS\tSTATUS\tPID\tUPTIME\tLISTENING\tDEBUG\tWORLDS\tMARKS\tBRIDGES")
	if s.Running {
		_, _ = fmt.Fprintf(w, "%s\trunning\t%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			s.Component, s.PID, formatUptime(s.UptimeSeconds),
			onOff(s.Enabled), onOff(s.Debug), strings.Join(s.EnabledWorlds, ","),
			s.PendingMarks, s.Bridges)
	} else {
		reason := "not running"
		if s.Error != "" {
			reason = s.Error
		}
		_, _ = fmt.Fprintf(w, "%s\tstopped\t-\t-\t-\t-\t-\t-\t%s\n", s.Component, reason)
	}

	_ = w.Flush()
	return buf.String()
}

func formatStatusJSON(s ProcessStatus) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
	}
	return string(data), nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatUptime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}
