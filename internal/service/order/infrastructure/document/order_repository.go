// internal/service/order/infrastructure/document/order_repository.go
package document

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// OrderRepository 是 domain.OrderRepository 的 Redis 实现
type OrderRepository struct {
	store *Store
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	return r.listIndex(ctx, orderIndexKey)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	return r.listIndex(ctx, statusKey(string(status)))
}

func (r *OrderRepository) listIndex(ctx context.Context, index string) ([]*domain.Order, error) {
	members, err := r.store.rdb.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, wrapf(err, "read index %s", index)
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}
	return r.store.loadOrders(ctx, ids)
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	orders, err := r.store.loadOrders(ctx, []int64{id})
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	return orders[0], nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	id, err := r.store.allocate(ctx, OrderSequence, 1)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	created := &domain.Order{
		ID:            id,
		CustomerID:    order.CustomerID,
		Items:         []domain.OrderItem{},
		Status:        domain.StatusPlaced,
		PaymentStatus: domain.PaymentPending,
		Total:         decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	member := goredis.Z{Score: float64(id), Member: id}
	_, err = r.store.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, orderKey(id), encodeOrder(created))
		pipe.ZAdd(ctx, orderIndexKey, member)
		pipe.ZAdd(ctx, statusKey(string(created.Status)), member)
		return nil
	})
	if err != nil {
		return nil, wrapf(err, "create order %d", id)
	}
	return created, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	return r.update(ctx, id, func(current map[string]string, pipe goredis.Pipeliner) {
		key := orderKey(id)
		pipe.HSet(ctx, key, "status", string(status))
		if old := current["status"]; old != string(status) {
			pipe.ZRem(ctx, statusKey(old), id)
			pipe.ZAdd(ctx, statusKey(string(status)), goredis.Z{Score: float64(id), Member: id})
		}
	})
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	return r.update(ctx, id, func(_ map[string]string, pipe goredis.Pipeliner) {
		pipe.HSet(ctx, orderKey(id), "payment_status", string(status))
	})
}

func (r *OrderRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) (*domain.Order, error) {
	return r.update(ctx, id, func(_ map[string]string, pipe goredis.Pipeliner) {
		pipe.HSet(ctx, orderKey(id), "total", total.String())
	})
}

// update 用 WATCH/MULTI 乐观事务修改订单。
// 存在性由读取到的记录判断，不依赖写入是否改变了值。
func (r *OrderRepository) update(ctx context.Context, id int64, mutate func(current map[string]string, pipe goredis.Pipeliner)) (*domain.Order, error) {
	key := orderKey(id)
	found := false
	txf := func(tx *goredis.Tx) error {
		current, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		found = len(current) > 0
		if !found {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			mutate(current, pipe)
			pipe.HSet(ctx, key, "updated_at", formatTime(time.Now()))
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err = r.store.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, wrapf(err, "update order %d", id)
	}
	if !found {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}
