// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 是订单聚合的根实体
type Order struct {
	ID            int64           `json:"id"`
	CustomerID    *int64          `json:"customer_id"`
	Items         []OrderItem     `json:"items"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem 是订单行，只属于一个订单，随订单删除而删除
type OrderItem struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemRequest 是调用方提交的订单行
type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PendingOrder 是尚未持久化的订单请求
type PendingOrder struct {
	CustomerID *int64        `json:"customer_id,omitempty"`
	Items      []ItemRequest `json:"items"`
}

// NewOrderShell 构造一个待持久化的订单外壳：PLACED / PENDING / 总价为零
func NewOrderShell(customerID *int64) *Order {
	return &Order{
		CustomerID:    customerID,
		Items:         []OrderItem{},
		Status:        StatusPlaced,
		PaymentStatus: PaymentPending,
		Total:         decimal.Zero,
	}
}

// CalculateTotal 计算 Σ price[product_id] × quantity。
// 价格表中缺失的商品按零计。
func CalculateTotal(items []OrderItem, prices map[int64]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			continue
		}
		total = total.Add(LineAmount(price, item.Quantity))
	}
	return total
}

// MoneyScale 是金额保留的小数位数，与 orders.total 列的 decimal(10,2) 一致
const MoneyScale = 2

// LineAmount 返回单行金额，按分四舍五入，两种存储后端保存的总价因此完全一致
func LineAmount(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(MoneyScale)
}

// HasItem 判断订单是否包含给定ID的订单项
func (o *Order) HasItem(itemID int64) (OrderItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return OrderItem{}, false
}

// ProductIDs 返回订单中去重后的商品ID，保持首次出现的顺序
func (o *Order) ProductIDs() []int64 {
	return UniqueProductIDs(o.Items)
}

// UniqueProductIDs 返回订单项中去重后的商品ID
func UniqueProductIDs(items []OrderItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
