// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "status", "schema"} {
		assert.Contains(t, buf.String(), sub, "help missing %q command", sub)
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "test-version")
}

func TestServeCommand_RegistersConfigFlags(t *testing.T) {
	cmd := NewRootCmd()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"listen-addr", "metrics-addr", "log-format", "log-level", "workers", "queue-size"} {
		assert.NotNil(t, serve.Flags().Lookup(name), "serve missing --%s", name)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	path, err := resolveConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-config/hitreg/hitreg.yaml", path)

	path, err = resolveConfigPath("/etc/hitreg.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/hitreg.yaml", path)
}
