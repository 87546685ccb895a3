// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg provides XDG Base Directory paths for hitreg.
package xdg

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "hitreg"

// home returns $HOME or an error when it is unset.
func home() (string, error) {
	h := os.Getenv("HOME")
	if h == "" {
		return "", oops.Code("HOME_NOT_SET").Errorf("HOME is not set and no XDG override is present")
	}
	return h, nil
}

// baseDir resolves an XDG variable with a $HOME-relative fallback.
func baseDir(envVar string, fallback ...string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, appName), nil
	}
	h, err := home()
	if err != nil {
		return "", oops.With("env", envVar).Wrap(err)
	}
	return filepath.Join(append(append([]string{h}, fallback...), appName)...), nil
}

// ConfigDir returns the XDG config directory for hitreg.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	return baseDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for hitreg.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() (string, error) {
	return baseDir("XDG_STATE_HOME", ".local", "state")
}

// RuntimeDir returns the XDG runtime directory for hitreg.
// Checks XDG_RUNTIME_DIR first, falls back to StateDir()/run.
func RuntimeDir() (string, error) {
	if base := os.Getenv("XDG_RUNTIME_DIR"); base != "" {
		return filepath.Join(base, appName), nil
	}
	state, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "run"), nil
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return oops.Code("MKDIR_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
