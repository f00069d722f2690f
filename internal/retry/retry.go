// Package retry wraps remote calls with the rate-limit retry policy shared
// by every service: exponential backoff, a server-provided Retry-After
// duration when one is present, and immediate propagation of everything that
// is not a rate limit signal.
package retry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/fintrack-app/backend/internal/remote"
)

var retries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "remote_retries_total",
		Help: "How many rate-limited remote calls were retried, partitioned by operation.",
	},
	[]string{"operation"},
)

// Metrics returns the collectors of this package for registration.
func Metrics() []prometheus.Collector {
	return []prometheus.Collector{retries}
}

const (
	defaultMaxAttempts = 4
	defaultBaseDelay   = time.Second
)

// Executor retries rate-limited remote calls with exponential backoff.
type Executor struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(n int) Option {
	return func(e *Executor) {
		e.maxAttempts = n
	}
}

// WithBaseDelay sets the delay before the first retry. It doubles with every
// further attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(e *Executor) {
		e.baseDelay = d
	}
}

// WithSleep replaces the sleep function, mainly for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// New returns an Executor with 4 attempts and a 1s base delay.
func New(options ...Option) *Executor {
	e := &Executor{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       sleepContext,
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// Do runs fn, retrying on rate limit signals until the attempt budget is
// exhausted. The last observed error is returned when all attempts fail.
func (e *Executor) Do(ctx context.Context, operation string, fn func() error) error {
	delay := e.baseDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !remote.IsRateLimited(err) || attempt >= e.maxAttempts {
			return err
		}

		wait := delay
		if retryAfter := remote.RetryAfter(err); retryAfter > 0 {
			wait = retryAfter
		}

		log.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("rate limited, retrying")
		retries.WithLabelValues(operation).Inc()

		if err := e.sleep(ctx, wait); err != nil {
			return err
		}

		delay *= 2
	}
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
