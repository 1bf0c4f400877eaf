package retry

import (
	"context"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Executor runs an operation until it succeeds, fails fatally, or runs out of attempts.
// Safe for concurrent use; WithOnRetry returns a copy.
type Executor struct {
	classifier pgseed.ErrorClassifier
	strategy   pgseed.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor. Panics if classifier or strategy is nil.
func NewExecutor(classifier pgseed.ErrorClassifier, strategy pgseed.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("retry: classifier cannot be nil")
	}
	if strategy == nil {
		panic("retry: strategy cannot be nil")
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
		sleep:      sleepContext,
	}
}

// WithOnRetry returns a copy of e that calls fn before each wait.
// attempt is zero-indexed.
func (e *Executor) WithOnRetry(fn func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = fn
	return &clone
}

// Execute calls op once and then once per allowed retry while it keeps failing transiently.
// It returns nil, the first fatal error, the last transient error, or ctx.Err().
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	max := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && (max < 0 || attempt < max); attempt++ {
		if !e.classifier.IsTransient(err) {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}
		if serr := e.sleep(ctx, delay); serr != nil {
			return serr
		}

		err = op(ctx)
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
