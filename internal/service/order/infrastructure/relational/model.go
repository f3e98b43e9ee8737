// internal/service/order/infrastructure/relational/model.go
package relational

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// OrderModel 映射 orders 表
type OrderModel struct {
	ID            int64            `gorm:"primaryKey;autoIncrement"`
	CustomerID    *int64           `gorm:"index"`
	Status        string           `gorm:"type:varchar(32);not null;index"`
	PaymentStatus string           `gorm:"type:varchar(32);not null"`
	Total         decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 映射 order_items 表，order_id 外键级联删除
type OrderItemModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	OrderID   int64 `gorm:"not null;index"`
	ProductID int64 `gorm:"not null"`
	Quantity  int   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderItemModel) TableName() string { return "order_items" }

func toDomainOrder(m *OrderModel) *domain.Order {
	items := make([]domain.OrderItem, 0, len(m.Items))
	for i := range m.Items {
		items = append(items, toDomainItem(&m.Items[i]))
	}
	return &domain.Order{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		Items:         items,
		Status:        domain.OrderStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		Total:         m.Total,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toDomainItem(m *OrderItemModel) domain.OrderItem {
	return domain.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
