package collect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRateLimited_PastReset(t *testing.T) {
	b := NewBackoff(testConfig())

	start := time.Now()
	err := b.OnRateLimited(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, b.waited)
}

func TestOnRateLimited_WaitsUntilReset(t *testing.T) {
	b := NewBackoff(testConfig())

	start := time.Now()
	err := b.OnRateLimited(context.Background(), start.Add(30*time.Millisecond))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestOnRateLimited_Canceled(t *testing.T) {
	b := NewBackoff(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.OnRateLimited(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnRateLimited_Horizon(t *testing.T) {
	cfg := testConfig()
	cfg.RetryHorizon = time.Minute
	b := NewBackoff(cfg)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration
	b.now = func() time.Time { return now }
	b.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, b.OnRateLimited(context.Background(), now.Add(40*time.Second)))
	err := b.OnRateLimited(context.Background(), now.Add(40*time.Second))
	assert.ErrorIs(t, err, ErrRetryHorizon)
	assert.Equal(t, []time.Duration{40 * time.Second}, slept)
}

func TestOnRateLimited_HorizonPerQuery(t *testing.T) {
	cfg := testConfig()
	cfg.RetryHorizon = time.Minute
	b := NewBackoff(cfg)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	b.sleep = func(context.Context, time.Duration) error { return nil }

	NewPaginator(newFakeSearcher(), testQuery("a"), b, quietLogger())
	require.NoError(t, b.OnRateLimited(context.Background(), now.Add(40*time.Second)))

	NewPaginator(newFakeSearcher(), testQuery("b"), b, quietLogger())
	assert.Zero(t, b.waited)
	require.NoError(t, b.OnRateLimited(context.Background(), now.Add(40*time.Second)))
	assert.Equal(t, 40*time.Second, b.waited)
}

func TestPace_WithinBounds(t *testing.T) {
	cfg := testConfig()
	cfg.PaceMin = 2 * time.Second
	cfg.PaceMax = 4 * time.Second
	b := NewBackoff(cfg)

	var slept []time.Duration
	b.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	for range 50 {
		require.NoError(t, b.Pace(context.Background()))
	}
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.defaults()
	assert.Equal(t, DefaultLanguage, cfg.Language)
	assert.Equal(t, 2*time.Second, cfg.PaceMin)
	assert.Equal(t, 4*time.Second, cfg.PaceMax)
	assert.NotNil(t, cfg.Logger)

	cfg = Config{PaceMin: 5 * time.Second, PaceMax: time.Second}
	cfg.defaults()
	assert.Equal(t, time.Second, cfg.PaceMin)
}
