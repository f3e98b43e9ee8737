// internal/service/order/application/saga/handler.go
package saga

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// OrderContext 在创建订单的各个步骤之间传递数据。
// 步骤之间没有补偿：每一步都是独立的写入，失败时已完成的写入保留在存储中。
type OrderContext struct {
	Ctx    context.Context
	Tracer trace.Tracer

	Orders domain.OrderRepository
	Items  domain.OrderItemRepository

	Request domain.PendingOrder
	// Prices 为空时跳过总价计算
	Prices map[int64]decimal.Decimal

	// 以下字段由各步骤填充
	Order          *domain.Order
	PersistedItems []domain.OrderItem
	TotalPersisted bool
}

// NewOrderContext 创建一个初始上下文，未计算总价时视为总价已持久化（零值）
func NewOrderContext(ctx context.Context, tracer trace.Tracer, orders domain.OrderRepository, items domain.OrderItemRepository, req domain.PendingOrder, prices map[int64]decimal.Decimal) *OrderContext {
	return &OrderContext{
		Ctx:            ctx,
		Tracer:         tracer,
		Orders:         orders,
		Items:          items,
		Request:        req,
		Prices:         prices,
		TotalPersisted: true,
	}
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}

// BuildCreateChain 组装创建订单的四个步骤：外壳 -> 订单项 -> 挂载 -> 总价
func BuildCreateChain() Handler {
	chain := new(CreateShellHandler)
	chain.
		SetNext(new(CreateItemsHandler)).
		SetNext(new(AttachItemsHandler)).
		SetNext(new(PersistTotalHandler))
	return chain
}
