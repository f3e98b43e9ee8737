// internal/service/order/application/dto.go
package application

import "github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"

// CreateOrderResult 是创建订单用例的输出。
// TotalPersisted 为 false 表示返回的总价是本地计算值，存储没有确认写入。
type CreateOrderResult struct {
	Order          *domain.Order
	TotalPersisted bool
}

// ItemChangeResult 是增删订单项用例的输出，Order 为写入后重新读取的订单。
type ItemChangeResult struct {
	Order          *domain.Order
	TotalPersisted bool
}

// ReconcileResult 描述一次对账的结果
type ReconcileResult struct {
	Order   *domain.Order
	Changed bool
	// Skipped 为 true 表示有商品价格无法获取，总价未被改动
	Skipped bool
}
