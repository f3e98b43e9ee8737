package saga

import "github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"

// AttachItemsHandler 把持久化后的订单项挂到结果订单上。
type AttachItemsHandler struct {
	NextHandler
}

func (h *AttachItemsHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.PersistedItems != nil {
		orderCtx.Order.Items = orderCtx.PersistedItems
	} else {
		orderCtx.Order.Items = []domain.OrderItem{}
	}
	return h.executeNext(orderCtx)
}
