package rediscache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/jersey-orders/internal/domain/stats"
)

func TestNew_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	assert.Equal(t, DefaultTTL, New(client, 0).ttl)
	assert.Equal(t, time.Minute, New(client, time.Minute).ttl)
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "jersey:stats:summary:today", summaryKey(stats.PeriodToday))
	assert.NotEqual(t, summaryKey(stats.PeriodAll), advancedKey)
}

func TestKeys(t *testing.T) {
	got := keys()
	assert.Len(t, got, len(stats.Periods)+1)
	assert.Contains(t, got, summaryKey(stats.PeriodAll))
	assert.Contains(t, got, advancedKey)
}
