package adapter

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/httpclient"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
)

const paymentsService = "payments"

type paymentRequest struct {
	OrderID int64   `json:"order_id"`
	Amount  float64 `json:"amount"`
	Status  string  `json:"status"`
}

// PaymentHTTPAdapter 实现了 port.PaymentGateway 接口。
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// NotifyPayment 以 Pending 状态创建支付记录，200 与 201 都视为成功
func (a *PaymentHTTPAdapter) NotifyPayment(ctx context.Context, orderID int64, amount decimal.Decimal) (*port.Payment, bool) {
	// 支付服务按 JSON 数字接收金额
	body := paymentRequest{OrderID: orderID, Amount: amount.InexactFloat64(), Status: string(domain.PaymentPending)}
	resp, err := a.client.PostJSON(ctx, a.baseURL+"/api/v1/payments/", body)
	if err != nil {
		record(ctx, paymentsService, "notify", outcomeUnreachable, err)
		return nil, false
	}
	if !resp.OK(http.StatusOK, http.StatusCreated) {
		record(ctx, paymentsService, "notify", outcomeAbsent, nil)
		return nil, false
	}
	var payment port.Payment
	if err := resp.Decode(&payment); err != nil {
		record(ctx, paymentsService, "notify", outcomeUnreachable, err)
		return nil, false
	}
	record(ctx, paymentsService, "notify", outcomeOK, nil)
	return &payment, true
}
