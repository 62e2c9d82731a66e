package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClockSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, RealClock{}.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRealClockSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := RealClock{}.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRealClockSleepAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealClock{}.Sleep(ctx, time.Minute), context.Canceled)
}

func TestFakeClockRecords(t *testing.T) {
	clock := NewFakeClock()
	var seen []int
	clock.OnSleep = func(n int, _ time.Duration) { seen = append(seen, n) }

	require.NoError(t, clock.Sleep(context.Background(), time.Second))
	require.NoError(t, clock.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	assert.Equal(t, []int{1, 2}, seen)
}

func TestFakeClockCancelledContext(t *testing.T) {
	clock := NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
	assert.Empty(t, clock.Sleeps())
}

func TestSampleKindString(t *testing.T) {
	assert.Equal(t, "found", SampleFound.String())
	assert.Equal(t, "not-found", SampleNotFound.String())
	assert.Equal(t, "failed", SampleFailed.String())
	assert.Equal(t, "SampleKind(9)", SampleKind(9).String())
}
