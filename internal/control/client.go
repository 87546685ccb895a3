// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// Client talks to a control socket.
type Client struct {
	http *http.Client
}

// NewClient returns a client bound to the socket at path.
func NewClient(path string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
	return &Client{http: &http.Client{Transport: transport, Timeout: 5 * time.Second}}
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown requests a graceful shutdown.
func (c *Client) Shutdown(ctx context.Context) error {
	var resp ShutdownResponse
	return c.do(ctx, http.MethodPost, "/shutdown", &resp)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	// host is ignored by the unix dialer
	req, err := http.NewRequestWithContext(ctx, method, "http://hitreg"+path, nil)
	if err != nil {
		return oops.Code("CONTROL_REQUEST_FAILED").With("path", path).Wrap(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return oops.Code("CONTROL_UNREACHABLE").With("path", path).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return oops.Code("CONTROL_REQUEST_FAILED").
			With("path", path).
			With("status", resp.StatusCode).
			Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.Code("CONTROL_DECODE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
