// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/hitreg/internal/access"
	"github.com/holomush/hitreg/internal/access/accesstest"
	"github.com/holomush/hitreg/internal/command"
	"github.com/holomush/hitreg/internal/command/handlers"
	"github.com/holomush/hitreg/internal/config"
	"github.com/holomush/hitreg/internal/core"
	"github.com/holomush/hitreg/internal/correlate"
	"github.com/holomush/hitreg/internal/gate"
	"github.com/holomush/hitreg/internal/marker"
	"github.com/holomush/hitreg/internal/world"
	"github.com/holomush/hitreg/pkg/errutil"
)

type recordingPersister struct {
	mu     sync.Mutex
	states []config.State
}

func (r *recordingPersister) Save(st config.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recordingPersister) last(t *testing.T) config.State {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.states, "expected a persisted state")
	return r.states[len(r.states)-1]
}

func (r *recordingPersister) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

type fixture struct {
	engine     *correlate.Engine
	marks      *marker.Set
	worlds     *world.Registry
	persister  *recordingPersister
	dispatcher *command.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	marks := marker.New()
	worlds := world.NewRegistry()
	eng := correlate.NewEngine(gate.New(true, "world"), marks, worlds, accesstest.AllowAll{},
		correlate.ReporterFunc(func(context.Context, correlate.Report) {}))
	t.Cleanup(eng.Close)

	reg := command.NewRegistry()
	handlers.RegisterAll(reg)

	rec := &recordingPersister{}
	d, err := command.NewDispatcher(reg, accesstest.AllowAll{}, &command.Services{
		Engine:   eng,
		Worlds:   worlds,
		Settings: rec,
		Version:  "1.2.3",
	})
	require.NoError(t, err)
	return &fixture{engine: eng, marks: marks, worlds: worlds, persister: rec, dispatcher: d}
}

func (f *fixture) run(t *testing.T, line string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := f.dispatcher.Dispatch(context.Background(), access.SubjectConsole, line, &out)
	return out.String(), err
}

func TestHelp_ListsSubcommands(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "help")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "HitReg v1.2.3\n"))
	for _, name := range []string{"toggle", "debug", "status", "world"} {
		assert.Contains(t, out, "/hitreg "+name)
	}
	assert.NotContains(t, out, "/hitreg help")
}

func TestToggle(t *testing.T) {
	f := newFixture(t)
	id := core.NewActorID()
	f.marks.Mark(id)

	out, err := f.run(t, "toggle")
	require.NoError(t, err)
	assert.Equal(t, "HitReg packet listener has been DISABLED.\n", out)
	assert.False(t, f.engine.IsEnabled())
	assert.False(t, f.persister.last(t).Enabled)
	assert.Equal(t, 1, f.engine.PendingMarkCount(), "disabling keeps pending marks")

	out, err = f.run(t, "toggle")
	require.NoError(t, err)
	assert.Equal(t, "HitReg packet listener has been ENABLED.\n", out)
	assert.True(t, f.persister.last(t).Enabled)
}

func TestDebug(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "debug")
	require.NoError(t, err)
	assert.Equal(t, "HitReg debug mode ENABLED\n", out)
	assert.True(t, f.engine.Debug())
	assert.True(t, f.persister.last(t).Debug)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.engine.SetZoneActive("nether", true)
	f.marks.Mark(core.NewActorID())
	f.marks.Mark(core.NewActorID())

	out, err := f.run(t, "status")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"HitReg Status:",
		"Packet listening: ENABLED",
		"Debug mode: DISABLED",
		"Enabled worlds: nether, world",
		"Tracked recent attacks: 2",
		"",
	}, "\n"), out)
	assert.Zero(t, f.persister.count(), "status is read-only")
}

func TestWorldList_ShowsLoadState(t *testing.T) {
	f := newFixture(t)
	f.engine.SetZoneActive("nether", true)
	f.worlds.LoadZone("world")

	out, err := f.run(t, "world list")
	require.NoError(t, err)
	assert.Equal(t, "HitReg Enabled Worlds:\n- nether (Not loaded)\n- world (Loaded)\n", out)
}

func TestWorldAdd(t *testing.T) {
	f := newFixture(t)
	f.worlds.LoadZone("nether")

	out, err := f.run(t, "world add nether")
	require.NoError(t, err)
	assert.Equal(t, "Added world 'nether' to enabled worlds list.\n", out)
	assert.True(t, f.engine.IsZoneActive("nether"))
	assert.Equal(t, []string{"nether", "world"}, f.persister.last(t).EnabledWorlds)
}

func TestWorldAdd_WarnsWhenNotLoaded(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "world add the_end")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: This world isn't currently loaded.")
	assert.True(t, f.engine.IsZoneActive("the_end"))
}

func TestWorldAdd_AlreadyEnabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "world add world")
	errutil.AssertErrorCode(t, err, command.CodeWorldAlreadyEnabled)
	assert.Equal(t, "World 'world' is already enabled.", command.PlayerMessage(err))
	assert.Zero(t, f.persister.count(), "rejection persists nothing")
}

func TestWorldRemove(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "world remove world")
	require.NoError(t, err)
	assert.Equal(t, "Removed world 'world' from enabled worlds list.\n", out)
	assert.Empty(t, f.engine.ActiveZones())
	assert.Empty(t, f.persister.last(t).EnabledWorlds)
}

func TestWorldRemove_NotEnabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "world remove nether")
	errutil.AssertErrorCode(t, err, command.CodeWorldNotEnabled)
	assert.Equal(t, []core.ZoneName{"world"}, f.engine.ActiveZones())
}

func TestWorld_InvalidArgs(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		line  string
		code  string
		usage string
	}{
		{"world", command.CodeInvalidArgs, "Usage: " + handlers.WorldUsage},
		{"world add", command.CodeInvalidArgs, "Usage: world add <world>"},
		{"world remove a b", command.CodeInvalidArgs, "Usage: world remove <world>"},
		{"world rename a", command.CodeUnknownSubcommand, "Unknown subcommand. Use 'help' for a list."},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := f.run(t, tt.line)
			errutil.AssertErrorCode(t, err, tt.code)
			assert.Equal(t, tt.usage, command.PlayerMessage(err))
		})
	}
	assert.Equal(t, []core.ZoneName{"world"}, f.engine.ActiveZones())
}

func TestConcurrentChangesPersistNewestState(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.run(t, "world add zone-"+string(rune('a'+i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	zones := f.engine.ActiveZones()
	want := make([]string, len(zones))
	for i, z := range zones {
		want[i] = string(z)
	}
	assert.Len(t, want, 17)
	assert.Equal(t, want, f.persister.last(t).EnabledWorlds)
	assert.Equal(t, 16, f.persister.count())
}
