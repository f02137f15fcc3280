package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/cache"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/logger"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/messaging"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRecorder(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache(time.Minute)
	recorder := NewStatsRecorder(store, time.Minute, logger.NewNop())

	events := []models.CopyEvent{
		{ID: "e1", Type: messaging.LotCopiedEvent, SourceUserID: 123},
		{ID: "e2", Type: messaging.LotCopiedEvent, SourceUserID: 123},
		{ID: "e3", Type: messaging.LotCopyFailedEvent, SourceUserID: 123},
		{ID: "e4", Type: messaging.CopyCompletedEvent, SourceUserID: 123, Copied: 2, Failed: 1},
		{ID: "e1", Type: messaging.LotCopiedEvent, SourceUserID: 123},
		{ID: "e5", Type: "unknown", SourceUserID: 123},
	}

	applied := 0
	for i := range events {
		ok, err := recorder.Record(ctx, &events[i])
		require.NoError(t, err)
		if ok {
			applied++
		}
	}
	assert.Equal(t, 3, applied)

	copied, err := store.Increment(ctx, StatsKey(123, "copied"), 0)
	require.NoError(t, err)
	failed, err := store.Increment(ctx, StatsKey(123, "failed"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), copied)
	assert.Equal(t, int64(1), failed)
}

// flakyCounterCache отказывает в первых failures вызовах Increment
type flakyCounterCache struct {
	interfaces.CachePort
	failures int
}

func (c *flakyCounterCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if delta != 0 && c.failures > 0 {
		c.failures--
		return 0, errors.New("redis down")
	}
	return c.CachePort.Increment(ctx, key, delta)
}

func TestStatsRecorderRedeliveryAfterIncrementFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyCounterCache{CachePort: cache.NewMemoryCache(time.Minute), failures: 1}
	recorder := NewStatsRecorder(store, time.Minute, logger.NewNop())
	event := models.CopyEvent{ID: "e1", Type: messaging.LotCopiedEvent, SourceUserID: 123}

	ok, err := recorder.Record(ctx, &event)
	require.Error(t, err)
	assert.False(t, ok)

	// повторная доставка того же события учитывается
	ok, err = recorder.Record(ctx, &event)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = recorder.Record(ctx, &event)
	require.NoError(t, err)
	assert.False(t, ok)

	copied, err := store.Increment(ctx, StatsKey(123, "copied"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), copied)
}
