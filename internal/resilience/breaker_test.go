package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("503 from tigerweb")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(threshold int) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New(Config{Name: "tigerweb", Threshold: threshold, Cooldown: time.Minute})
	b.now = clock.now
	return b, clock
}

func fail(context.Context) error { return errUpstream }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	for range 3 {
		require.ErrorIs(t, b.Do(ctx, fail), errUpstream)
	}
	assert.Equal(t, Open, b.State())

	calls := 0
	err := b.Do(ctx, func(context.Context) error { calls++; return nil })
	require.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "tigerweb")
	assert.Zero(t, calls)
	assert.Equal(t, 1, b.Rejected())
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)
	require.NoError(t, b.Do(ctx, ok))
	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(1)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	assert.Equal(t, Open, b.State())

	clock.t = clock.t.Add(time.Minute)
	assert.Equal(t, HalfOpen, b.State())

	// A failed probe reopens for another cooldown.
	require.ErrorIs(t, b.Do(ctx, fail), errUpstream)
	assert.Equal(t, Open, b.State())
	require.ErrorIs(t, b.Do(ctx, ok), ErrOpen)

	clock.t = clock.t.Add(time.Minute)
	require.NoError(t, b.Do(ctx, ok))
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	b, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Closed, b.State())
}

func TestCall_ReturnsValue(t *testing.T) {
	b, _ := newTestBreaker(2)
	v, err := Call(context.Background(), b, func(context.Context) ([]string, error) {
		return []string{"34005700100"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"34005700100"}, v)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
