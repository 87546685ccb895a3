// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newLimiter(t *testing.T, cfg RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Close)
	return rl
}

func TestNewRateLimiter(t *testing.T) {
	t.Run("creates limiter with default values", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{})
		assert.Equal(t, DefaultBurstCapacity, rl.burstCapacity)
		assert.Equal(t, DefaultSustainedRate, rl.sustainedRate)
		assert.Equal(t, DefaultSenderMaxAge, rl.senderMaxAge)
	})

	t.Run("creates limiter with custom values", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 20, SustainedRate: 5.0})
		assert.Equal(t, 20, rl.burstCapacity)
		assert.Equal(t, 5.0, rl.sustainedRate)
	})

	t.Run("non-positive values use defaults", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: -5, SustainedRate: -1.0})
		assert.Equal(t, DefaultBurstCapacity, rl.burstCapacity)
		assert.Equal(t, DefaultSustainedRate, rl.sustainedRate)
	})

	t.Run("tiny sustained rate is raised to the minimum", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{SustainedRate: 0.01})
		assert.Equal(t, MinSustainedRate, rl.sustainedRate)
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	const sender = "player:01HZY8J4Q7W3M9X2V5T6R1K0AB"

	t.Run("allows commands up to burst capacity", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 3, SustainedRate: 1.0})

		for i := 0; i < 3; i++ {
			allowed, cooldown := rl.Allow(sender)
			assert.True(t, allowed, "command %d", i+1)
			assert.Equal(t, int64(0), cooldown)
		}

		allowed, cooldown := rl.Allow(sender)
		assert.False(t, allowed)
		assert.Greater(t, cooldown, int64(0))
	})

	t.Run("returns correct cooldown time", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 2.0})

		allowed, _ := rl.Allow(sender)
		require.True(t, allowed)

		allowed, cooldownMs := rl.Allow(sender)
		assert.False(t, allowed)
		assert.InDelta(t, 500, cooldownMs, 50)
	})

	t.Run("different senders have independent limits", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 1.0})

		allowed, _ := rl.Allow("player:a")
		require.True(t, allowed)
		allowed, _ = rl.Allow("player:a")
		assert.False(t, allowed)

		allowed, _ = rl.Allow("player:b")
		assert.True(t, allowed)
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 100.0})

		allowed, _ := rl.Allow(sender)
		require.True(t, allowed)
		allowed, _ = rl.Allow(sender)
		assert.False(t, allowed)

		time.Sleep(15 * time.Millisecond)

		allowed, _ = rl.Allow(sender)
		assert.True(t, allowed)
	})

	t.Run("tokens do not exceed burst capacity", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 2, SustainedRate: 1000.0})

		rl.Allow(sender)
		rl.Allow(sender)
		time.Sleep(20 * time.Millisecond)

		allowed, _ := rl.Allow(sender)
		assert.True(t, allowed)
		allowed, _ = rl.Allow(sender)
		assert.True(t, allowed)
		allowed, _ = rl.Allow(sender)
		assert.False(t, allowed)
	})
}

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Run("removes idle senders", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		rl := NewRateLimiterWithRegistry(RateLimiterConfig{}, reg)
		t.Cleanup(rl.Close)

		rl.Allow("player:a")
		rl.Allow("player:b")
		assert.Equal(t, 2, rl.SenderCount())

		time.Sleep(time.Millisecond)
		rl.Cleanup(0)
		assert.Equal(t, 0, rl.SenderCount())
		assert.Equal(t, 0.0, testutil.ToFloat64(rl.senderGauge))
	})

	t.Run("keeps recent senders", func(t *testing.T) {
		rl := newLimiter(t, RateLimiterConfig{})
		rl.Allow("player:a")
		rl.Cleanup(time.Hour)
		assert.Equal(t, 1, rl.SenderCount())
	})
}

func TestRateLimiter_Concurrency(t *testing.T) {
	rl := newLimiter(t, RateLimiterConfig{BurstCapacity: 100, SustainedRate: 10.0})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rl.Allow("player:a")
			}
		}()
	}
	wg.Wait()
}

func TestRateLimiter_CloseStopsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(RateLimiterConfig{CleanupInterval: time.Millisecond})
	rl.Allow("player:a")
	rl.Close()
}
