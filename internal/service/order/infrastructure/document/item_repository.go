// internal/service/order/infrastructure/document/item_repository.go
package document

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// OrderItemRepository 是 domain.OrderItemRepository 的 Redis 实现
type OrderItemRepository struct {
	store *Store
}

func (r *OrderItemRepository) ListByOrderID(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	members, err := r.store.rdb.ZRange(ctx, orderItemsKey(orderID), 0, -1).Result()
	if err != nil {
		return nil, wrapf(err, "read items of order %d", orderID)
	}
	ids, err := parseIDs(members)
	if err != nil {
		return nil, err
	}
	return r.store.loadItems(ctx, ids)
}

func (r *OrderItemRepository) Create(ctx context.Context, orderID int64, item domain.ItemRequest) (*domain.OrderItem, error) {
	items, err := r.CreateMany(ctx, orderID, []domain.ItemRequest{item})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// CreateMany 在订单键上 WATCH，订单不存在时不写入任何订单项
func (r *OrderItemRepository) CreateMany(ctx context.Context, orderID int64, reqs []domain.ItemRequest) ([]domain.OrderItem, error) {
	if len(reqs) == 0 {
		return []domain.OrderItem{}, nil
	}
	key := orderKey(orderID)
	var created []domain.OrderItem
	txf := func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrOrderNotFound
		}
		first, err := r.store.allocate(ctx, ItemSequence, len(reqs))
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		created = make([]domain.OrderItem, 0, len(reqs))
		for i, req := range reqs {
			created = append(created, domain.OrderItem{
				ID:        first + int64(i),
				OrderID:   orderID,
				ProductID: req.ProductID,
				Quantity:  req.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for i := range created {
				it := &created[i]
				member := goredis.Z{Score: float64(it.ID), Member: it.ID}
				pipe.HSet(ctx, itemKey(it.ID), encodeItem(it))
				pipe.ZAdd(ctx, orderItemsKey(orderID), member)
				pipe.ZAdd(ctx, itemIndexKey, member)
			}
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
	if errors.Is(err, domain.ErrOrderNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, wrapf(err, "create items for order %d", orderID)
	}
	return created, nil
}

func (r *OrderItemRepository) Delete(ctx context.Context, itemID int64) (bool, error) {
	id := strconv.FormatInt(itemID, 10)
	res, err := r.store.client.RunScript(ctx, deleteItemScriptName, []string{itemKey(itemID), itemIndexKey}, id)
	if err != nil {
		return false, wrapf(err, "delete item %d", itemID)
	}
	n, ok := res.(int64)
	if !ok {
		return false, errors.Errorf("unexpected result type from delete script: %T", res)
	}
	return n == 1, nil
}
