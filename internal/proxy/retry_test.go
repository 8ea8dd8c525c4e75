package proxy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRetrier(t *testing.T, retries int) *Retrier {
	t.Helper()
	pool, err := NewPool([]string{
		"a.example.com:8080:u:p",
		"b.example.com:8080:u:p",
		"c.example.com:8080:u:p",
	}, PolicyRoundRobin, zap.NewNop())
	require.NoError(t, err)
	return NewRetrier(pool, RetryConfig{
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}, zap.NewNop())
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	r := testRetrier(t, 3)

	got, err := Do(context.Background(), r, func(_ context.Context, ep Endpoint) (string, error) {
		return ep.Host, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a.example.com", got)
}

func TestDoRotatesProxiesAcrossAttempts(t *testing.T) {
	r := testRetrier(t, 3)

	var hosts []string
	got, err := Do(context.Background(), r, func(_ context.Context, ep Endpoint) (string, error) {
		hosts = append(hosts, ep.Host)
		if len(hosts) < 3 {
			return "", errors.New("tunnel failed")
		}
		return "lyrics", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "lyrics", got)
	assert.Equal(t, []string{"a.example.com", "b.example.com", "c.example.com"}, hosts)
}

func TestDoExhaustsRetries(t *testing.T) {
	r := testRetrier(t, 3)

	attempts := 0
	_, err := Do(context.Background(), r, func(_ context.Context, _ Endpoint) (string, error) {
		attempts++
		return "", errors.New("ERR_TUNNEL_CONNECTION_FAILED")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Contains(t, err.Error(), "all proxy attempts failed after 3 retries")
	assert.Contains(t, err.Error(), "ERR_TUNNEL_CONNECTION_FAILED")
}

func TestDoStopsOnContextCancel(t *testing.T) {
	r := testRetrier(t, 10)
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := Do(ctx, r, func(_ context.Context, _ Endpoint) (string, error) {
		attempts++
		cancel()
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts, "no further attempts after cancel")

	// The last real failure is preserved alongside the context error.
	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestDoCanceledBeforeFirstAttempt(t *testing.T) {
	r := testRetrier(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, r, func(_ context.Context, _ Endpoint) (string, error) {
		t.Fatal("fn should not run")
		return "", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRetrierAppliesDefaults(t *testing.T) {
	pool, err := NewPool([]string{"a.example.com:8080:u:p"}, PolicyRoundRobin, zap.NewNop())
	require.NoError(t, err)

	r := NewRetrier(pool, RetryConfig{}, zap.NewNop())
	assert.Equal(t, DefaultRetryConfig().MaxRetries, r.cfg.MaxRetries)
	assert.Equal(t, DefaultRetryConfig().BaseDelay, r.cfg.BaseDelay)
	assert.Equal(t, DefaultRetryConfig().MaxDelay, r.cfg.MaxDelay)
}

func TestBackoffIsCapped(t *testing.T) {
	r := testRetrier(t, 3)
	for attempt := 1; attempt < 20; attempt++ {
		d := r.backoff(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, r.cfg.MaxDelay)
	}
}
