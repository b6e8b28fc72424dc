package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("BTC", 1, 4))
	assert.False(t, l.Allow("BTC", 1, 4))
	assert.True(t, l.Allow("ETH", 1, 4), "keys are independent")

	now = now.Add(250 * time.Millisecond)
	assert.True(t, l.Allow("BTC", 1, 4))
}

func TestEverySpacesCalls(t *testing.T) {
	l := New()
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Every(ctx, "BTC", 30*time.Millisecond))
	require.NoError(t, l.Every(ctx, "BTC", 30*time.Millisecond))
	require.NoError(t, l.Every(ctx, "BTC", 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitHonoursContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Every(ctx, "BTC", time.Hour))
	cancel()
	assert.ErrorIs(t, l.Every(ctx, "BTC", time.Hour), context.Canceled)
}
