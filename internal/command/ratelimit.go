// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rate limiting defaults. A sender starts with a full bucket of
// DefaultBurstCapacity tokens that refills at DefaultSustainedRate per second.
const (
	DefaultBurstCapacity   = 10
	DefaultSustainedRate   = 2.0
	MinSustainedRate       = 0.1
	DefaultCleanupInterval = 5 * time.Minute
	DefaultSenderMaxAge    = time.Hour
)

// ResourceRateLimitBypass exempts a sender from rate limiting when the
// sender may "execute" it.
const ResourceRateLimitBypass = "ratelimit:bypass"

// RateLimiterConfig configures the rate limiter. Zero or negative values
// select the defaults.
type RateLimiterConfig struct {
	BurstCapacity   int
	SustainedRate   float64
	CleanupInterval time.Duration
	// SenderMaxAge is the idle time after which a sender's bucket is dropped.
	SenderMaxAge time.Duration
}

func (c RateLimiterConfig) normalized() RateLimiterConfig {
	if c.BurstCapacity <= 0 {
		c.BurstCapacity = DefaultBurstCapacity
	}
	switch {
	case c.SustainedRate <= 0:
		c.SustainedRate = DefaultSustainedRate
	case c.SustainedRate < MinSustainedRate:
		c.SustainedRate = MinSustainedRate
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.SenderMaxAge <= 0 {
		c.SenderMaxAge = DefaultSenderMaxAge
	}
	return c
}

// bucket is one sender's token bucket.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// take refills b for the time elapsed since it was last seen and consumes a
// token if one is available. On refusal it returns the wait until the next
// token.
func (b *bucket) take(now time.Time, capacity, rate float64) (bool, time.Duration) {
	b.tokens = min(capacity, b.tokens+now.Sub(b.lastSeen).Seconds()*rate)
	b.lastSeen = now
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, time.Duration((1 - b.tokens) / rate * float64(time.Second))
}

// RateLimiter applies a token bucket per command sender. A background
// goroutine drops idle senders; Close stops it.
type RateLimiter struct {
	mu      sync.Mutex
	senders map[string]*bucket

	burstCapacity int
	sustainedRate float64
	senderMaxAge  time.Duration

	senderGauge prometheus.Gauge // nil without a registry

	stop      chan struct{}
	stopOnce  sync.Once
	cleanupWG sync.WaitGroup
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, nil)
}

// NewRateLimiterWithRegistry is NewRateLimiter plus a tracked-senders gauge
// registered with reg.
func NewRateLimiterWithRegistry(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	return newRateLimiter(cfg, reg)
}

func newRateLimiter(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	cfg = cfg.normalized()
	rl := &RateLimiter{
		senders:       make(map[string]*bucket),
		burstCapacity: cfg.BurstCapacity,
		sustainedRate: cfg.SustainedRate,
		senderMaxAge:  cfg.SenderMaxAge,
		stop:          make(chan struct{}),
	}
	if reg != nil {
		rl.senderGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hitreg_ratelimiter_senders",
			Help: "Current number of senders tracked by the command rate limiter",
		})
		reg.MustRegister(rl.senderGauge)
	}

	rl.cleanupWG.Add(1)
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Allow consumes one token for sender. When the bucket is empty it returns
// false and the milliseconds until the next token.
func (rl *RateLimiter) Allow(sender string) (allowed bool, cooldownMs int64) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.senders[sender]
	if !ok {
		b = &bucket{tokens: float64(rl.burstCapacity), lastSeen: now}
		rl.senders[sender] = b
		rl.updateGaugeLocked()
	}
	allowed, wait := b.take(now, float64(rl.burstCapacity), rl.sustainedRate)
	return allowed, wait.Milliseconds()
}

// SenderCount returns the number of tracked senders.
func (rl *RateLimiter) SenderCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.senders)
}

// Cleanup drops senders idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for sender, b := range rl.senders {
		if b.lastSeen.Before(cutoff) {
			delete(rl.senders, sender)
		}
	}
	rl.updateGaugeLocked()
}

func (rl *RateLimiter) updateGaugeLocked() {
	if rl.senderGauge != nil {
		rl.senderGauge.Set(float64(len(rl.senders)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.cleanupWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Cleanup(rl.senderMaxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it. Safe to call twice.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	rl.cleanupWG.Wait()
}
