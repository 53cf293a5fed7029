//go:build integration

package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/jersey-orders/internal/domain/stats"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestCache_Summary(t *testing.T) {
	client := newRedis(t)
	c := New(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.GetSummary(ctx, stats.PeriodWeek)
	require.NoError(t, err)
	assert.False(t, ok)

	in := stats.Summarize(stats.PeriodWeek,
		stats.Totals{Orders: 2, Revenue: decimal.RequireFromString("460.00")},
		map[string]int{"pending": 2},
		map[string]int{"red": 2},
	)
	require.NoError(t, c.SetSummary(ctx, in))

	out, ok, err := c.GetSummary(ctx, stats.PeriodWeek)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, out.TotalOrders)
	assert.True(t, in.TotalRevenue.Equal(out.TotalRevenue))
	assert.True(t, in.AverageOrder.Equal(out.AverageOrder))
	assert.Equal(t, in.ByStatus, out.ByStatus)

	_, ok, err = c.GetSummary(ctx, stats.PeriodMonth)
	require.NoError(t, err)
	assert.False(t, ok, "periods are cached separately")

	ttl, err := client.TTL(ctx, summaryKey(stats.PeriodWeek)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestCache_CorruptEntryIsDropped(t *testing.T) {
	client := newRedis(t)
	c := New(client, 0)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, advancedKey, "{not json", time.Minute).Err())

	_, ok, err := c.GetAdvanced(ctx)
	require.Error(t, err)
	assert.False(t, ok)

	n, err := client.Exists(ctx, advancedKey).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_Invalidate(t *testing.T) {
	client := newRedis(t)
	c := New(client, time.Minute)
	ctx := context.Background()

	for _, p := range stats.Periods {
		require.NoError(t, c.SetSummary(ctx, stats.Summarize(p, stats.Totals{Revenue: decimal.Zero}, nil, nil)))
	}
	require.NoError(t, c.SetAdvanced(ctx, &stats.AdvancedSummary{}))

	require.NoError(t, c.Invalidate(ctx))

	for _, p := range stats.Periods {
		_, ok, err := c.GetSummary(ctx, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
	_, ok, err := c.GetAdvanced(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
