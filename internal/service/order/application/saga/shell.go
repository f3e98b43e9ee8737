package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// CreateShellHandler 持久化 PLACED / PENDING / 零总价的订单外壳以获得订单ID。
type CreateShellHandler struct {
	NextHandler
}

func (h *CreateShellHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateShell")
	defer span.End()

	order, err := orderCtx.Orders.Create(ctx, domain.NewOrderShell(orderCtx.Request.CustomerID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order shell failed")
		return errors.Wrap(err, "create order shell")
	}
	orderCtx.Order = order
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	logger.Ctx(ctx).Debug().Int64("order_id", order.ID).Msg("【Saga】=> 步骤 1: 订单外壳已创建")

	return h.executeNext(orderCtx)
}
