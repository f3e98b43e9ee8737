package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// Payment 是支付服务返回的支付记录
type Payment struct {
	ID      int64           `json:"id"`
	OrderID int64           `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
}

// PaymentGateway 是支付服务的出站端口。
type PaymentGateway interface {
	// NotifyPayment 为订单发起一笔待处理支付。失败时返回 (nil, false)。
	NotifyPayment(ctx context.Context, orderID int64, amount decimal.Decimal) (*Payment, bool)
}
