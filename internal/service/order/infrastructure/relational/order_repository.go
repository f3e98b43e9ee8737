// internal/service/order/infrastructure/relational/order_repository.go
package relational

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// OrderRepository 是 domain.OrderRepository 的 gorm 实现
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// 订单项按插入顺序预加载
func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_items.id ASC")
	})
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel
	if err := preloadItems(r.db.WithContext(ctx)).Order("id ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return toDomainOrders(models), nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return findByID(preloadItems(r.db.WithContext(ctx)), id)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	var models []OrderModel
	err := preloadItems(r.db.WithContext(ctx)).
		Where("status = ?", string(status)).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list orders by status %q", status)
	}
	return toDomainOrders(models), nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	now := time.Now().UTC()
	model := OrderModel{
		CustomerID:    order.CustomerID,
		Status:        string(domain.StatusPlaced),
		PaymentStatus: string(domain.PaymentPending),
		Total:         decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(&model).Error; err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return toDomainOrder(&model), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	return r.update(ctx, id, map[string]any{"status": string(status)})
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	return r.update(ctx, id, map[string]any{"payment_status": string(status)})
}

func (r *OrderRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) (*domain.Order, error) {
	return r.update(ctx, id, map[string]any{"total": total})
}

// update 在事务内先确认订单存在再写入，不依赖 RowsAffected
// (MySQL 对值未变化的行返回 0)。
func (r *OrderRepository) update(ctx context.Context, id int64, columns map[string]any) (*domain.Order, error) {
	var result *domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findByID(tx, id)
		if err != nil || current == nil {
			return err
		}
		columns["updated_at"] = time.Now().UTC()
		if err := tx.Model(&OrderModel{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return errors.Wrapf(err, "update order %d", id)
		}
		result, err = findByID(preloadItems(tx), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func findByID(db *gorm.DB, id int64) (*domain.Order, error) {
	var model OrderModel
	err := db.Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find order %d", id)
	}
	return toDomainOrder(&model), nil
}

func toDomainOrders(models []OrderModel) []*domain.Order {
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, toDomainOrder(&models[i]))
	}
	return orders
}
