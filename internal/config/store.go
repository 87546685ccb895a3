// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/yaml.v3"

	"github.com/holomush/hitreg/pkg/errutil"
)

// State is the subset of settings changed by administrative commands.
type State struct {
	Enabled       bool
	Debug         bool
	EnabledWorlds []string
}

// Persister records runtime state changes. Save must not block.
type Persister interface {
	Save(st State)
}

// Store persists State to the settings file in the background.
// Saves that arrive while a write is in progress coalesce into one write
// of the latest state. Keys other than the runtime ones are preserved.
type Store struct {
	path       string
	baseDelay  time.Duration
	maxRetries uint64
	writeFile  func(path string, data []byte) error

	mu      sync.Mutex
	pending *State

	writeMu sync.Mutex
	kick    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	closed  sync.Once
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetry sets the exponential backoff base and retry limit for writes.
func WithRetry(base time.Duration, maxRetries uint64) StoreOption {
	return func(s *Store) {
		s.baseDelay = base
		s.maxRetries = maxRetries
	}
}

// NewStore starts a background writer for path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:       path,
		baseDelay:  100 * time.Millisecond,
		maxRetries: 5,
		writeFile:  writeFileAtomic,
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Path returns the file the store writes.
func (s *Store) Path() string {
	return s.path
}

// Save queues st for writing and returns immediately.
func (s *Store) Save(st State) {
	st.EnabledWorlds = slices.Clone(st.EnabledWorlds)
	s.mu.Lock()
	s.pending = &st
	s.mu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush synchronously writes any pending state.
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	st := s.pending
	s.pending = nil
	s.mu.Unlock()

	if st == nil {
		return nil
	}
	return s.persist(ctx, *st)
}

// Close stops the background writer and flushes pending state.
func (s *Store) Close(ctx context.Context) error {
	s.closed.Do(func() { close(s.done) })
	s.wg.Wait()
	return s.Flush(ctx)
}

func (s *Store) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.kick:
			if err := s.Flush(context.Background()); err != nil {
				errutil.LogError(slog.Default(), "failed to persist settings", err)
			}
		}
	}
}

func (s *Store) persist(ctx context.Context, st State) error {
	b := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.baseDelay))
	err := retry.Do(ctx, b, func(_ context.Context) error {
		data, err := s.render(st)
		if err != nil {
			return err
		}
		if err := s.writeFile(s.path, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("CONFIG_SAVE_FAILED").With("path", s.path).Wrap(err)
	}
	slog.DebugContext(ctx, "settings persisted",
		"path", s.path,
		"enabled", st.Enabled,
		"debug", st.Debug,
		"worlds", st.EnabledWorlds)
	return nil
}

// render merges st into the current file contents.
func (s *Store) render(st State) ([]byte, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, oops.Code("CONFIG_INVALID_YAML").With("path", s.path).Wrap(err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, retry.RetryableError(err)
	}

	worlds := st.EnabledWorlds
	if worlds == nil {
		worlds = []string{}
	}
	doc["enabled"] = st.Enabled
	doc["debug"] = st.Debug
	doc["enabled-worlds"] = worlds

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}

// writeFileAtomic writes data to a temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.With("dir", dir).Wrap(err)
	}
	tmp, err := os.CreateTemp(dir, ".hitreg-*.yaml")
	if err != nil {
		return oops.With("dir", dir).Wrap(err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return oops.With("path", name).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return oops.With("path", name).Wrap(err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return oops.With("path", path).Wrap(err)
	}
	return nil
}
