package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := New()
	l.now = clock.Now
	l.lastSweep = clock.t
	return l, clock
}

func TestCheck_AllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		res := l.Check("admission:user-1", 5, time.Second)
		require.True(t, res.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, 5-(i+1), res.Remaining)
	}

	res := l.Check("admission:user-1", 5, time.Second)
	assert.False(t, res.Allowed, "6th call within window should be denied")
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.Reset, time.Duration(0))
}

func TestCheck_WindowSlides(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		require.True(t, l.Check("admission:user-1", 5, time.Second).Allowed)
	}
	require.False(t, l.Check("admission:user-1", 5, time.Second).Allowed)

	clock.Advance(1100 * time.Millisecond)

	res := l.Check("admission:user-1", 5, time.Second)
	assert.True(t, res.Allowed, "call after window elapsed should be allowed")
}

func TestCheck_DeniedCallNotRecorded(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Check("k", 1, time.Second).Allowed)

	// Hammer while saturated; none of these should extend the lockout.
	for i := 0; i < 10; i++ {
		clock.Advance(50 * time.Millisecond)
		require.False(t, l.Check("k", 1, time.Second).Allowed)
	}

	clock.Advance(600 * time.Millisecond) // >1s since the single recorded call
	assert.True(t, l.Check("k", 1, time.Second).Allowed)
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		require.True(t, l.Check("admission:user-1", 3, time.Second).Allowed)
	}
	require.False(t, l.Check("admission:user-1", 3, time.Second).Allowed)

	// Different feature namespace for the same user is unaffected.
	assert.True(t, l.Check("exit:user-1", 3, time.Second).Allowed)
	// Same feature, different user is unaffected.
	assert.True(t, l.Check("admission:user-2", 3, time.Second).Allowed)
}

func TestSweep_RemovesEmptyKeys(t *testing.T) {
	l, clock := newTestLimiter()

	l.Check("a:1", 5, time.Second)
	l.Check("b:2", 5, time.Second)
	require.Equal(t, 2, l.Len())

	clock.Advance(sweepInterval + time.Second)

	// Any call triggers the opportunistic sweep.
	l.Check("c:3", 5, time.Second)
	assert.Equal(t, 1, l.Len(), "stale keys should be swept")
}

func TestCheck_ConcurrentSameKey(t *testing.T) {
	l := New()

	const workers = 20
	done := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			done <- l.Check("shared", 10, time.Minute).Allowed
		}()
	}

	allowed := 0
	for i := 0; i < workers; i++ {
		if <-done {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed, "exactly maxRequests calls should pass")
}
