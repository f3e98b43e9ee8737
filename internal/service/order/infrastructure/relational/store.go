// internal/service/order/infrastructure/relational/store.go
package relational

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// Store 持有共享的 gorm 连接池，两个仓储共用
type Store struct {
	db     *gorm.DB
	orders *OrderRepository
	items  *OrderItemRepository
}

// NewStore 基于已打开的 gorm.DB 构造存储
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		orders: NewOrderRepository(db),
		items:  NewOrderItemRepository(db),
	}
}

// Migrate 创建 orders / order_items 表及级联外键
func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(&OrderModel{}, &OrderItemModel{}), "auto migrate")
}

func (s *Store) Orders() domain.OrderRepository    { return s.orders }
func (s *Store) Items() domain.OrderItemRepository { return s.items }
func (s *Store) DB() *gorm.DB                      { return s.db }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
