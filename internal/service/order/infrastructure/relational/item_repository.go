// internal/service/order/infrastructure/relational/item_repository.go
package relational

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// OrderItemRepository 是 domain.OrderItemRepository 的 gorm 实现
type OrderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) ListByOrderID(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	var models []OrderItemModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %d", orderID)
	}
	items := make([]domain.OrderItem, 0, len(models))
	for i := range models {
		items = append(items, toDomainItem(&models[i]))
	}
	return items, nil
}

func (r *OrderItemRepository) Create(ctx context.Context, orderID int64, item domain.ItemRequest) (*domain.OrderItem, error) {
	items, err := r.CreateMany(ctx, orderID, []domain.ItemRequest{item})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// CreateMany 在一个事务中批量写入
func (r *OrderItemRepository) CreateMany(ctx context.Context, orderID int64, items []domain.ItemRequest) ([]domain.OrderItem, error) {
	if len(items) == 0 {
		return []domain.OrderItem{}, nil
	}
	now := time.Now().UTC()
	models := make([]OrderItemModel, 0, len(items))
	for _, it := range items {
		models = append(models, OrderItemModel{
			OrderID:   orderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&OrderModel{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return errors.Wrapf(err, "check order %d", orderID)
		}
		if count == 0 {
			return domain.ErrOrderNotFound
		}
		if err := tx.Create(&models).Error; err != nil {
			return errors.Wrapf(err, "create items for order %d", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := make([]domain.OrderItem, 0, len(models))
	for i := range models {
		created = append(created, toDomainItem(&models[i]))
	}
	return created, nil
}

func (r *OrderItemRepository) Delete(ctx context.Context, itemID int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&OrderItemModel{})
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "delete item %d", itemID)
	}
	return res.RowsAffected > 0, nil
}
