// Package fetch provides a retrying request executor with endpoint fallback.
//
// Callers wrap each provider call in a Call that classifies its own raw
// response into one of the Status values; the Fetcher owns backoff, endpoint
// fallthrough and terminal-vs-retryable semantics.
package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var errNoCalls = errors.New("fetch: no calls provided")

// Status classifies a provider response.
type Status int

const (
	// StatusSuccess means the provider answered with a usable payload.
	StatusSuccess Status = iota
	// StatusNoRoute means the provider positively said the asset has no
	// route at this size. Terminal: retrying will not produce a route.
	StatusNoRoute
	// StatusRateLimited means the provider throttled us. Retryable with
	// backoff.
	StatusRateLimited
	// StatusNetworkError means the call failed at the transport level
	// (timeout, DNS, 5xx). Retryable; the caller may fail open if this
	// persists across all endpoints.
	StatusNetworkError
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNoRoute:
		return "NO_ROUTE"
	case StatusRateLimited:
		return "RATE_LIMITED"
	default:
		return "NETWORK_ERROR"
	}
}

// Outcome is a classified provider response.
type Outcome struct {
	Status  Status
	Payload any   // populated on StatusSuccess
	Err     error // underlying error for non-success, may be nil
}

// Call executes one provider request and classifies the result.
// Implementations must honor ctx cancellation.
type Call func(ctx context.Context) Outcome

// Default configuration values.
const (
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultCallTimeout = 8 * time.Second
)

// Fetcher executes calls with exponential backoff and multi-endpoint
// fallthrough.
type Fetcher struct {
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	callTimeout time.Duration
	logger      *zap.Logger

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxRetries sets maximum retry attempts after the initial one.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) { f.maxRetries = n }
}

// WithBaseDelay sets the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.baseDelay = d }
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.maxDelay = d }
}

// WithCallTimeout sets the per-call deadline applied to every Call.
func WithCallTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.callTimeout = d }
}

// New creates a Fetcher.
func New(logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		maxRetries:  DefaultMaxRetries,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		callTimeout: DefaultCallTimeout,
		logger:      logger,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do runs the calls until one succeeds or retries are exhausted.
//
// Attempt 0 executes immediately; attempt n sleeps baseDelay * 2^(n-1)
// first, capped at maxDelay. Within one attempt the calls are tried in
// order, short-circuiting on the first StatusSuccess. The attempt escalates
// to StatusRateLimited only when every call was rate-limited, to
// StatusNoRoute only when every call positively reported no route (both
// terminal for their own reasons: all-throttled backs off, all-no-route
// will not improve), and to StatusNetworkError otherwise.
//
// After exhausting retries the last non-success outcome is returned rather
// than an error: callers fold the status into their own decision.
func (f *Fetcher) Do(ctx context.Context, calls ...Call) Outcome {
	if len(calls) == 0 {
		return Outcome{Status: StatusNetworkError, Err: errNoCalls}
	}

	delay := f.baseDelay
	last := Outcome{Status: StatusNetworkError}

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, delay); err != nil {
				last.Err = err
				return last
			}
			delay *= 2
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		outcome := f.runAttempt(ctx, calls)
		switch outcome.Status {
		case StatusSuccess, StatusNoRoute:
			return outcome
		}
		last = outcome

		f.logger.Debug("fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.String("status", outcome.Status.String()),
			zap.Error(outcome.Err),
		)
	}

	return last
}

// runAttempt falls through the call list once and aggregates the statuses.
func (f *Fetcher) runAttempt(ctx context.Context, calls []Call) Outcome {
	allRateLimited := true
	allNoRoute := true
	var last Outcome

	for _, call := range calls {
		callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
		outcome := call(callCtx)
		cancel()

		if outcome.Status == StatusSuccess {
			return outcome
		}
		if outcome.Status != StatusRateLimited {
			allRateLimited = false
		}
		if outcome.Status != StatusNoRoute {
			allNoRoute = false
		}
		last = outcome
	}

	switch {
	case allNoRoute:
		last.Status = StatusNoRoute
	case allRateLimited:
		last.Status = StatusRateLimited
	default:
		last.Status = StatusNetworkError
	}
	return last
}
