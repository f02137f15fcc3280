package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

// KafkaEvent тип события в топике копирования
type KafkaEvent = string

const (
	LotCopiedEvent     KafkaEvent = "lot_copied"
	LotCopyFailedEvent KafkaEvent = "lot_copy_failed"
	CopyCompletedEvent KafkaEvent = "copy_completed"
)

// CopyEventPublisher публикует события копирования в брокер
// Ключ сообщения это id исходного пользователя, чтобы события одного пользователя попадали в одну партицию
type CopyEventPublisher struct {
	broker interfaces.MessagingPort
	topic  string
}

// NewCopyEventPublisher создает новый экземпляр CopyEventPublisher
func NewCopyEventPublisher(broker interfaces.MessagingPort, topic string) *CopyEventPublisher {
	return &CopyEventPublisher{broker: broker, topic: topic}
}

// PublishCopyEvent сериализует событие в JSON и отправляет его
func (p *CopyEventPublisher) PublishCopyEvent(ctx context.Context, event *models.CopyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal copy event: %w", err)
	}
	return p.broker.PublishWithKey(ctx, p.topic, strconv.FormatInt(event.SourceUserID, 10), payload)
}

// DecodeCopyEvent разбирает сообщение с событием копирования
func DecodeCopyEvent(msg *interfaces.Message) (*models.CopyEvent, error) {
	var event models.CopyEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to decode copy event %s: %w", msg.ID, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("copy event %s has no type", msg.ID)
	}
	return &event, nil
}

// NopPublisher используется, когда Kafka отключена
type NopPublisher struct{}

func (NopPublisher) PublishCopyEvent(context.Context, *models.CopyEvent) error {
	return nil
}
