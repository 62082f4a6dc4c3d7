package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scripted returns a Call that yields the given outcomes in order across
// invocations, repeating the last one.
func scripted(outcomes ...Outcome) Call {
	i := 0
	return func(_ context.Context) Outcome {
		out := outcomes[i]
		if i < len(outcomes)-1 {
			i++
		}
		return out
	}
}

// newTestFetcher records backoff sleeps instead of performing them.
func newTestFetcher(opts ...Option) (*Fetcher, *[]time.Duration) {
	f := New(zap.NewNop(), opts...)
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	f, slept := newTestFetcher()

	out := f.Do(context.Background(), scripted(Outcome{Status: StatusSuccess, Payload: "quote"}))

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "quote", out.Payload)
	assert.Empty(t, *slept, "no backoff before the first attempt")
}

func TestDo_RetriesWithExponentialBackoff(t *testing.T) {
	f, slept := newTestFetcher(WithBaseDelay(100 * time.Millisecond))

	out := f.Do(context.Background(), scripted(
		Outcome{Status: StatusRateLimited},
		Outcome{Status: StatusRateLimited},
		Outcome{Status: StatusSuccess, Payload: "ok"},
	))

	require.Equal(t, StatusSuccess, out.Status)
	require.Len(t, *slept, 2, "exactly two backoff sleeps")
	assert.Equal(t, 100*time.Millisecond, (*slept)[0])
	assert.Equal(t, 200*time.Millisecond, (*slept)[1])
}

func TestDo_BackoffCappedAtMaxDelay(t *testing.T) {
	f, slept := newTestFetcher(
		WithBaseDelay(1*time.Second),
		WithMaxDelay(2*time.Second),
		WithMaxRetries(4),
	)

	out := f.Do(context.Background(), scripted(Outcome{Status: StatusNetworkError, Err: errors.New("dial")}))

	assert.Equal(t, StatusNetworkError, out.Status)
	require.Len(t, *slept, 4)
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second,
	}, *slept)
}

func TestDo_NoRouteIsTerminal(t *testing.T) {
	f, slept := newTestFetcher()
	calls := 0
	call := func(_ context.Context) Outcome {
		calls++
		return Outcome{Status: StatusNoRoute}
	}

	out := f.Do(context.Background(), call)

	assert.Equal(t, StatusNoRoute, out.Status)
	assert.Equal(t, 1, calls, "no-route must not be retried")
	assert.Empty(t, *slept)
}

func TestDo_ReturnsLastOutcomeAfterExhaustion(t *testing.T) {
	f, _ := newTestFetcher(WithMaxRetries(2))
	dialErr := errors.New("connection refused")

	out := f.Do(context.Background(), scripted(Outcome{Status: StatusNetworkError, Err: dialErr}))

	assert.Equal(t, StatusNetworkError, out.Status)
	assert.ErrorIs(t, out.Err, dialErr)
}

func TestDo_FallsThroughEndpointsWithinAttempt(t *testing.T) {
	f, slept := newTestFetcher()

	first := scripted(Outcome{Status: StatusNetworkError, Err: errors.New("timeout")})
	second := scripted(Outcome{Status: StatusSuccess, Payload: "from-fallback"})

	out := f.Do(context.Background(), first, second)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, "from-fallback", out.Payload)
	assert.Empty(t, *slept, "fallback within the attempt, no backoff needed")
}

func TestDo_EscalatesRateLimitedOnlyWhenAllEndpointsThrottled(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all rate limited", []Status{StatusRateLimited, StatusRateLimited}, StatusRateLimited},
		{"mixed throttle and transport", []Status{StatusRateLimited, StatusNetworkError}, StatusNetworkError},
		{"all no route", []Status{StatusNoRoute, StatusNoRoute}, StatusNoRoute},
		{"no route plus transport", []Status{StatusNoRoute, StatusNetworkError}, StatusNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestFetcher(WithMaxRetries(0))

			calls := make([]Call, 0, len(tt.statuses))
			for _, st := range tt.statuses {
				calls = append(calls, scripted(Outcome{Status: st}))
			}

			out := f.Do(context.Background(), calls...)
			assert.Equal(t, tt.want, out.Status)
		})
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	f := New(zap.NewNop(), WithBaseDelay(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.Do(ctx, scripted(Outcome{Status: StatusNetworkError, Err: errors.New("down")}))

	assert.Equal(t, StatusNetworkError, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
}
