package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/epitab/internal/model"
)

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, 5, NewLimiter(10, 5).defaultBurst)
	assert.Equal(t, 5, NewLimiter(10, -1).defaultBurst)
}

func TestNewLimiterFromConfig(t *testing.T) {
	l := NewLimiterFromConfig(model.RateLimitingConfig{RequestsPerSecond: 0, BurstSize: 1})
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("http://example.com/doc"), "zero rate means unlimited")
	}

	l = NewLimiterFromConfig(model.DefaultConfig().RateLimiting)
	assert.Equal(t, 5, l.defaultBurst)
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "http://example.com/foo"))
	require.NoError(t, limiter.Wait(ctx, "http://example.org"))
}

func TestLimiterWaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)

	start := time.Now()
	require.NoError(t, limiter.WaitWithDelay(context.Background(), "http://example.com", 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterWaitWithDelayCancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.WaitWithDelay(ctx, "http://example.com", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterPerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://example.com"

	require.NoError(t, limiter.Wait(context.Background(), url))
	assert.False(t, limiter.Allow(url), "burst exhausted")
	assert.True(t, limiter.Allow("http://other.com"), "hosts are limited separately")
}

func TestLimiterSetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow.com", 0.1, 1)

	assert.True(t, limiter.Allow("http://slow.com"))
	assert.False(t, limiter.Allow("http://slow.com"))
	assert.True(t, limiter.Allow("http://fast.com"))
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("http://example.com:8080/foo")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", host)

	_, err = hostOf("::invalid")
	assert.Error(t, err)
}
