// internal/service/order/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType 标识订单领域事件
type EventType string

const (
	EventOrderCreated         EventType = "order.created"
	EventStatusChanged        EventType = "order.status_changed"
	EventPaymentStatusChanged EventType = "order.payment_status_changed"
	EventItemAdded            EventType = "order.item_added"
	EventItemRemoved          EventType = "order.item_removed"
	EventTotalReconciled      EventType = "order.total_reconciled"
)

// OrderEvent 是写操作成功后对外发布的事件
type OrderEvent struct {
	Type          EventType       `json:"type"`
	OrderID       int64           `json:"order_id"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewOrderEvent 以订单当前快照构造事件
func NewOrderEvent(t EventType, o *Order) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		ItemCount:     len(o.Items),
		OccurredAt:    time.Now().UTC(),
	}
}
