// internal/service/order/infrastructure/event_publisher.go
package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/mq"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// KafkaEventPublisher 实现了 port.EventPublisher，按订单ID分区保证同一订单的事件有序
type KafkaEventPublisher struct {
	writer mq.MessageWriter
}

func NewKafkaEventPublisher(writer mq.MessageWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "marshal %s event", event.Type)
	}
	key := []byte(strconv.FormatInt(event.OrderID, 10))
	if err := mq.ProduceMessage(ctx, p.writer, key, payload); err != nil {
		return errors.Wrapf(err, "produce %s event for order %d", event.Type, event.OrderID)
	}
	return nil
}

// NoopEventPublisher 在未配置 Kafka 时使用
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, domain.OrderEvent) error { return nil }
