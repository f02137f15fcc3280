package services

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/messaging"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

// StatsRecorder ведет счетчики копирования по событиям из брокера
type StatsRecorder struct {
	cache  interfaces.CachePort
	logger interfaces.LoggerPort
	// dedupTTL сколько помнить обработанные события; повторная доставка их не учитывает
	dedupTTL time.Duration
}

// NewStatsRecorder создает новый экземпляр StatsRecorder
func NewStatsRecorder(cache interfaces.CachePort, dedupTTL time.Duration, logger interfaces.LoggerPort) *StatsRecorder {
	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	return &StatsRecorder{cache: cache, logger: logger, dedupTTL: dedupTTL}
}

// Record применяет событие к счетчикам
// Возвращает false, если событие не меняет счетчики
func (r *StatsRecorder) Record(ctx context.Context, event *models.CopyEvent) (bool, error) {
	var outcome string
	switch event.Type {
	case messaging.LotCopiedEvent:
		outcome = "copied"
	case messaging.LotCopyFailedEvent:
		outcome = "failed"
	case messaging.CopyCompletedEvent:
		r.logger.InfoWithContext(ctx, "Копирование пользователя завершено",
			interfaces.LogField{Key: "source_user_id", Value: event.SourceUserID},
			interfaces.LogField{Key: "copied", Value: event.Copied},
			interfaces.LogField{Key: "failed", Value: event.Failed},
			interfaces.LogField{Key: "duration_ms", Value: event.DurationMs},
		)
		return false, nil
	default:
		return false, nil
	}

	marker := "copy-event:" + event.ID
	if event.ID != "" {
		fresh, err := r.cache.Lock(ctx, marker, event.ID, r.dedupTTL)
		if err != nil {
			return false, fmt.Errorf("failed to mark event %s: %w", event.ID, err)
		}
		if !fresh {
			return false, nil
		}
	}

	if _, err := r.cache.Increment(ctx, StatsKey(event.SourceUserID, outcome), 1); err != nil {
		// без отметки повторная доставка снова попробует увеличить счетчик
		if event.ID != "" {
			if uerr := r.cache.Unlock(ctx, marker, event.ID); uerr != nil {
				r.logger.WarnWithContext(ctx, "Не удалось снять отметку события",
					interfaces.LogField{Key: "event_id", Value: event.ID},
					interfaces.LogField{Key: "error", Value: uerr.Error()},
				)
			}
		}
		return false, fmt.Errorf("failed to increment %s counter: %w", outcome, err)
	}
	return true, nil
}
