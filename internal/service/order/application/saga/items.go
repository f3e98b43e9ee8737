package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
)

// CreateItemsHandler 以一次批量写入持久化全部订单项。
// 失败时订单外壳不会被回滚，留下一个没有订单项的订单。
type CreateItemsHandler struct {
	NextHandler
}

func (h *CreateItemsHandler) Handle(orderCtx *OrderContext) error {
	if len(orderCtx.Request.Items) == 0 {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateItems")
	defer span.End()

	items, err := orderCtx.Items.CreateMany(ctx, orderCtx.Order.ID, orderCtx.Request.Items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order items failed")
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", orderCtx.Order.ID).
			Msg("order shell persisted without items")
		return errors.Wrapf(err, "create items for order %d", orderCtx.Order.ID)
	}
	orderCtx.PersistedItems = items
	span.SetAttributes(attribute.Int("order.items", len(items)))
	logger.Ctx(ctx).Debug().Int64("order_id", orderCtx.Order.ID).Int("items", len(items)).Msg("【Saga】=> 步骤 2: 订单项已写入")

	return h.executeNext(orderCtx)
}
