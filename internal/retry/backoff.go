package retry

import (
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoff doubles (by default) the wait between attempts up to a cap,
// with optional symmetric jitter.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int

	// jitter of 0.1 spreads each delay over +/-10%.
	jitter float64
	random func() float64
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay sets the wait before the first retry.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

// WithMaxDelay caps the wait between retries.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

// WithMultiplier sets the growth factor between consecutive delays.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the jitter fraction, clamped to [0, 1].
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = math.Max(0, math.Min(1, j)) }
}

// WithRandom replaces the [0,1) source used for jitter. Tests pass a constant.
func WithRandom(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.random = f }
}

// NewExponentialBackoff returns a strategy allowing maxAttempts retries
// (-1 for unlimited) starting at 100ms and capped at 30s.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
		random:       rand.Float64,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.multiplier < 1 {
		b.multiplier = 1
	}
	if b.maxDelay < b.initialDelay {
		b.maxDelay = b.initialDelay
	}
	return b
}

// NextDelay returns initialDelay * multiplier^attempt, capped at maxDelay, then jittered.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt))
	if delay > float64(b.maxDelay) || math.IsInf(delay, 1) {
		delay = float64(b.maxDelay)
	}

	if b.jitter > 0 && b.random != nil {
		offset := (b.random() - 0.5) * 2.0
		delay *= 1.0 + b.jitter*offset
	}

	return time.Duration(delay)
}

// MaxAttempts returns the number of retries allowed after the first attempt.
func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}
