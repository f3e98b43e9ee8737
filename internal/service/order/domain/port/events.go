package port

import (
	"context"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// EventPublisher 是领域事件的出站端口。
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}
