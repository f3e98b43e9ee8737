// internal/service/order/domain/repository.go
package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRepository 定义了订单的持久化接口。
// 它位于领域层，但由基础设施层实现。
// 未知ID返回 (nil, nil)，只有基础设施故障才返回 error。
type OrderRepository interface {
	List(ctx context.Context) ([]*Order, error)
	FindByID(ctx context.Context, id int64) (*Order, error)
	ListByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)

	// Create 持久化订单外壳，返回带有分配ID、空订单项和零总价的订单。
	Create(ctx context.Context, order *Order) (*Order, error)

	UpdateStatus(ctx context.Context, id int64, status OrderStatus) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) (*Order, error)
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) (*Order, error)
}

// OrderItemRepository 定义了订单项的持久化接口。
type OrderItemRepository interface {
	// ListByOrderID 按插入顺序返回订单项。
	ListByOrderID(ctx context.Context, orderID int64) ([]OrderItem, error)
	// Create 与 CreateMany 在订单不存在时返回 ErrOrderNotFound。
	Create(ctx context.Context, orderID int64, item ItemRequest) (*OrderItem, error)
	CreateMany(ctx context.Context, orderID int64, items []ItemRequest) ([]OrderItem, error)
	Delete(ctx context.Context, itemID int64) (bool, error)
}

// Store 是一个后端提供的两个仓储的组合。
type Store interface {
	Orders() OrderRepository
	Items() OrderItemRepository
	Close() error
}
