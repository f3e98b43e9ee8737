// internal/service/order/application/service.go
package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/metrics"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/application/saga"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
)

// OrderApplicationService 编排订单的创建与状态变更，只依赖仓储与事件端口。
type OrderApplicationService struct {
	orders    domain.OrderRepository
	items     domain.OrderItemRepository
	tracer    trace.Tracer
	publisher port.EventPublisher
	backend   string
}

func NewOrderApplicationService(orders domain.OrderRepository, items domain.OrderItemRepository, tracer trace.Tracer, publisher port.EventPublisher, backend string) *OrderApplicationService {
	return &OrderApplicationService{
		orders:    orders,
		items:     items,
		tracer:    tracer,
		publisher: publisher,
		backend:   backend,
	}
}

func (s *OrderApplicationService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()
	return s.orders.List(ctx)
}

// GetOrder 订单不存在时返回 domain.ErrOrderNotFound
func (s *OrderApplicationService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderApplicationService) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrdersByStatus", trace.WithAttributes(attribute.String("order.status", string(status))))
	defer span.End()
	return s.orders.ListByStatus(ctx, status)
}

// CreateOrder 依次写入订单外壳、订单项与总价。调用方已经校验过客户、商品与库存，
// prices 为调用方解析好的单价表。三次写入之间没有事务与补偿。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req domain.PendingOrder, prices map[int64]decimal.Decimal) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder", trace.WithAttributes(attribute.Int("order.items", len(req.Items))))
	defer span.End()

	orderCtx := saga.NewOrderContext(ctx, s.tracer, s.orders, s.items, req, prices)
	if err := saga.BuildCreateChain().Handle(orderCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order saga failed")
		return nil, err
	}

	order := orderCtx.Order
	metrics.OrdersCreated.WithLabelValues(s.backend).Inc()
	if !orderCtx.TotalPersisted {
		metrics.StaleTotals.WithLabelValues("create").Inc()
		logger.Ctx(ctx).Warn().Int64("order_id", order.ID).Str("total", order.Total.String()).
			Msg("storage did not confirm order total, returning locally computed value")
	}
	logger.Ctx(ctx).Info().Int64("order_id", order.ID).Int("items", len(order.Items)).
		Str("total", order.Total.String()).Msg("order created")
	s.publish(ctx, domain.EventOrderCreated, order)

	return &CreateOrderResult{Order: order, TotalPersisted: orderCtx.TotalPersisted}, nil
}

// UpdateOrderStatus 直接写入新状态，不做合法性检查
func (s *OrderApplicationService) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrderStatus", trace.WithAttributes(
		attribute.Int64("order.id", id), attribute.String("order.status", string(status))))
	defer span.End()

	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	metrics.Transitions.WithLabelValues("status", string(status)).Inc()
	s.publish(ctx, domain.EventStatusChanged, order)
	return order, nil
}

// UpdatePaymentStatus 在支付被批准且订单处于 PLACED 时，先把订单状态写为 CONFIRMED，
// 再写支付状态。返回值只反映支付状态写入的结果。
func (s *OrderApplicationService) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdatePaymentStatus", trace.WithAttributes(
		attribute.Int64("order.id", id), attribute.String("payment.status", string(status))))
	defer span.End()

	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrOrderNotFound
	}

	if domain.ConfirmsOrder(current.Status, status) {
		confirmed, err := s.orders.UpdateStatus(ctx, id, domain.StatusConfirmed)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if confirmed != nil {
			metrics.Transitions.WithLabelValues("status", string(domain.StatusConfirmed)).Inc()
			s.publish(ctx, domain.EventStatusChanged, confirmed)
		}
		span.AddEvent("order confirmed by approved payment")
	}

	order, err := s.orders.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	metrics.Transitions.WithLabelValues("payment", string(status)).Inc()
	s.publish(ctx, domain.EventPaymentStatusChanged, order)
	return order, nil
}

// AddItem 只允许在 PLACED 状态下执行，状态检查先于任何写入。
// price 非空时把 price×quantity 累加到原总价上。
func (s *OrderApplicationService) AddItem(ctx context.Context, id int64, req domain.ItemRequest, price *decimal.Decimal) (*ItemChangeResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.AddItem", trace.WithAttributes(
		attribute.Int64("order.id", id), attribute.Int64("product.id", req.ProductID)))
	defer span.End()

	order, err := s.modifiableOrder(ctx, id, "add item to")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if _, err := s.items.Create(ctx, id, req); err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "add item to order %d", id)
	}

	persisted := true
	if price != nil {
		newTotal := order.Total.Add(domain.LineAmount(*price, req.Quantity))
		persisted, err = s.persistTotal(ctx, id, newTotal, "add_item")
		if err != nil {
			return nil, err
		}
	}
	return s.itemChangeResult(ctx, id, persisted, domain.EventItemAdded)
}

// RemoveItem 删除 PLACED 订单中的一个订单项，price 非空时从总价中扣除，总价不低于零。
func (s *OrderApplicationService) RemoveItem(ctx context.Context, id, itemID int64, price *decimal.Decimal) (*ItemChangeResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.RemoveItem", trace.WithAttributes(
		attribute.Int64("order.id", id), attribute.Int64("item.id", itemID)))
	defer span.End()

	order, err := s.modifiableOrder(ctx, id, "remove item from")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	item, ok := order.HasItem(itemID)
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	deleted, err := s.items.Delete(ctx, itemID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "remove item %d from order %d", itemID, id)
	}
	if !deleted {
		return nil, domain.ErrItemNotFound
	}

	persisted := true
	if price != nil {
		newTotal := decimal.Max(decimal.Zero, order.Total.Sub(domain.LineAmount(*price, item.Quantity)))
		persisted, err = s.persistTotal(ctx, id, newTotal, "remove_item")
		if err != nil {
			return nil, err
		}
	}
	return s.itemChangeResult(ctx, id, persisted, domain.EventItemRemoved)
}

// ReconcileTotal 用给定价格表重新计算订单总价，不一致时写回。
// 价格表缺少订单中任何一个商品时跳过，避免把总价错误地调低。
func (s *OrderApplicationService) ReconcileTotal(ctx context.Context, id int64, prices map[int64]decimal.Decimal) (*ReconcileResult, error) {
	ctx, span := s.tracer.Start(ctx, "app.ReconcileTotal", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, pid := range order.ProductIDs() {
		if _, ok := prices[pid]; !ok {
			logger.Ctx(ctx).Warn().Int64("order_id", id).Int64("product_id", pid).
				Msg("price unavailable, skipping reconciliation")
			return &ReconcileResult{Order: order, Skipped: true}, nil
		}
	}

	expected := domain.CalculateTotal(order.Items, prices)
	if expected.Equal(order.Total) {
		return &ReconcileResult{Order: order}, nil
	}

	updated, err := s.orders.UpdateTotal(ctx, id, expected)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrOrderNotFound
	}
	metrics.Reconciled.Inc()
	logger.Ctx(ctx).Info().Int64("order_id", id).
		Str("from", order.Total.String()).Str("to", expected.String()).
		Msg("order total reconciled")
	s.publish(ctx, domain.EventTotalReconciled, updated)
	return &ReconcileResult{Order: updated, Changed: true}, nil
}

func (s *OrderApplicationService) modifiableOrder(ctx context.Context, id int64, operation string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.AcceptsItemChanges() {
		return nil, &domain.InvalidStateError{OrderID: id, Status: order.Status, Operation: operation}
	}
	return order, nil
}

func (s *OrderApplicationService) persistTotal(ctx context.Context, id int64, total decimal.Decimal, operation string) (bool, error) {
	updated, err := s.orders.UpdateTotal(ctx, id, total)
	if err != nil {
		return false, errors.Wrapf(err, "persist total for order %d", id)
	}
	if updated == nil {
		metrics.StaleTotals.WithLabelValues(operation).Inc()
		logger.Ctx(ctx).Warn().Int64("order_id", id).Str("total", total.String()).
			Msg("storage did not confirm order total")
		return false, nil
	}
	return true, nil
}

// itemChangeResult 重新读取订单，返回的总价是存储当前持有的值
func (s *OrderApplicationService) itemChangeResult(ctx context.Context, id int64, persisted bool, event domain.EventType) (*ItemChangeResult, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event, order)
	return &ItemChangeResult{Order: order, TotalPersisted: persisted}, nil
}

// publish 事件发布失败只记录日志，不影响已完成的写入
func (s *OrderApplicationService) publish(ctx context.Context, t domain.EventType, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domain.NewOrderEvent(t, order)); err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", order.ID).Str("event", string(t)).
			Msg("failed to publish order event")
	}
}
