package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medbot/pkg/utils/json"
)

func miniOptions(t *testing.T) (*miniredis.Miniredis, *Options) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	opts := NewOptions()
	opts.Host = mr.Host()
	opts.Port = port
	return mr, opts
}

func TestNew(t *testing.T) {
	_, opts := miniOptions(t)
	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "redis", c.Name())
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Client().Set(context.Background(), "k", "v", 0).Err())

	stats := c.HealthWithStats(context.Background())
	assert.True(t, stats.Healthy)
	assert.NotNil(t, stats.PoolStats)
}

func TestNewUnreachable(t *testing.T) {
	mr, opts := miniOptions(t)
	mr.Close()
	opts.MaxRetries = -1

	_, err := New(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestNewInvalidOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	opts := NewOptions()
	opts.Port = 0
	_, err = New(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis options")
}

func TestOptionsRedaction(t *testing.T) {
	opts := NewOptions()
	opts.Password = "supersecret"

	data, err := json.Marshal(opts)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "supersecret")
	assert.Contains(t, string(data), "[REDACTED]")
	assert.NotContains(t, opts.String(), "supersecret")

	opts.Password = ""
	data, err = json.Marshal(opts)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
}
