// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package correlate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/hitreg/internal/core"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) SendMessage(ctx context.Context, to core.ActorID, text string) error {
	args := m.Called(ctx, to, text)
	return args.Error(0)
}

func TestNotifier_Gating(t *testing.T) {
	tests := []struct {
		name       string
		debug      bool
		authorized bool
		sends      bool
	}{
		{"debug and authorized", true, true, true},
		{"debug only", true, false, false},
		{"authorized only", false, true, false},
		{"neither", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &mockSink{}
			attacker := core.NewActorID()
			ctx := context.Background()
			if tt.sends {
				sink.On("SendMessage", ctx, attacker, MessagePacketVerified).Return(nil).Once()
			}

			NewNotifier(sink).Report(ctx, Report{
				Attacker:     core.Actor{Kind: core.ActorPlayer, ID: attacker},
				Outcome:      core.OutcomePacketVerified,
				DebugEnabled: tt.debug,
				Authorized:   tt.authorized,
			})

			sink.AssertExpectations(t)
			if !tt.sends {
				sink.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestNotifier_SinkErrorIsLogged(t *testing.T) {
	sink := &mockSink{}
	sink.On("SendMessage", mock.Anything, mock.Anything, MessageNormal).Return(errors.New("gone"))

	assert.NotPanics(t, func() {
		NewNotifier(sink).Report(context.Background(), Report{
			Outcome:      core.OutcomeNormal,
			DebugEnabled: true,
			Authorized:   true,
		})
	})
	sink.AssertExpectations(t)
}

func TestRenderOutcome(t *testing.T) {
	assert.Equal(t, "[HitReg] Hit registered via packet!", RenderOutcome(core.OutcomePacketVerified))
	assert.Equal(t, "[HitReg] Normal hit registered.", RenderOutcome(core.OutcomeNormal))
}

func TestMultiReporter(t *testing.T) {
	var calls []string
	m := MultiReporter{
		ReporterFunc(func(context.Context, Report) { calls = append(calls, "a") }),
		ReporterFunc(func(context.Context, Report) { calls = append(calls, "b") }),
	}

	m.Report(context.Background(), Report{})

	assert.Equal(t, []string{"a", "b"}, calls)
}
