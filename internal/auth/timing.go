package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig controls the padding applied to failed logins so that an
// unknown email and a wrong password take about the same time to answer.
type TimingConfig struct {
	BaseDelay      time.Duration
	RandomDelay    time.Duration // upper bound of the uniform jitter added to BaseDelay
	DelayOnSuccess bool
}

// Enabled reports whether any delay is configured
func (c TimingConfig) Enabled() bool {
	return c.BaseDelay > 0 || c.RandomDelay > 0
}

// TimingDelay pads login responses
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandDuration returns a uniformly random duration in [0, max)
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(b[:]) % uint64(max))
}

func (td *TimingDelay) target(success bool) time.Duration {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return 0
	}
	return td.config.BaseDelay + cryptoRandDuration(td.config.RandomDelay)
}

// WaitFrom sleeps until at least the configured delay has elapsed since
// start, so time already spent on bcrypt counts toward the padding.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	sleepCtx(ctx, td.target(success)-time.Since(start))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
