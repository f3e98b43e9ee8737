package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/httpclient"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
)

const customersService = "customers"

// CustomerHTTPAdapter 是 port.CustomerGateway 的HTTP实现。
type CustomerHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewCustomerHTTPAdapter 创建一个新的客户服务适配器。
func NewCustomerHTTPAdapter(client *httpclient.Client, baseURL string) *CustomerHTTPAdapter {
	return &CustomerHTTPAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// FetchCustomer 只有 200 被视为存在
func (a *CustomerHTTPAdapter) FetchCustomer(ctx context.Context, id int64) (*port.Customer, bool) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("%s/api/v1/customers/%d", a.baseURL, id))
	if err != nil {
		record(ctx, customersService, "fetch", outcomeUnreachable, err)
		return nil, false
	}
	if !resp.OK(http.StatusOK) {
		record(ctx, customersService, "fetch", outcomeAbsent, nil)
		return nil, false
	}
	var customer port.Customer
	if err := resp.Decode(&customer); err != nil {
		record(ctx, customersService, "fetch", outcomeUnreachable, err)
		return nil, false
	}
	if customer.ID == 0 {
		customer.ID = id
	}
	record(ctx, customersService, "fetch", outcomeOK, nil)
	return &customer, true
}
