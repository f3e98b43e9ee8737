package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// PersistTotalHandler 按价格表计算并持久化总价。
// 存储报告订单不存在时，结果订单仍带着本地计算的总价，TotalPersisted 置为 false。
type PersistTotalHandler struct {
	NextHandler
}

func (h *PersistTotalHandler) Handle(orderCtx *OrderContext) error {
	if len(orderCtx.Prices) == 0 || len(orderCtx.PersistedItems) == 0 {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistTotal")
	defer span.End()

	order := orderCtx.Order
	total := domain.CalculateTotal(order.Items, orderCtx.Prices)
	span.SetAttributes(attribute.String("order.total", total.String()))

	updated, err := orderCtx.Orders.UpdateTotal(ctx, order.ID, total)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist total failed")
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", order.ID).
			Msg("order persisted with items but zero total")
		return errors.Wrapf(err, "persist total for order %d", order.ID)
	}

	order.Total = total
	if updated == nil {
		orderCtx.TotalPersisted = false
		span.AddEvent("total not confirmed by storage")
	} else {
		order.UpdatedAt = updated.UpdatedAt
	}
	logger.Ctx(ctx).Debug().Int64("order_id", order.ID).Str("total", total.String()).Msg("【Saga】=> 步骤 3: 总价已写入")

	return h.executeNext(orderCtx)
}
