// internal/service/order/infrastructure/document/store.go
package document

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/redis"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

const (
	deleteItemScriptName = "delete_order_item"
	maxWatchRetries      = 8
)

// 删除订单项并同步两个索引；订单ID只能从订单项本身读出，所以放进脚本里原子执行
const deleteItemScript = `
local orderID = redis.call('HGET', KEYS[1], 'order_id')
if not orderID then
  return 0
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', 'order:' .. orderID .. ':items', ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`

// AllocationHook 在ID分配之后、记录写入之前被调用（测试用来强制交错执行）。
type AllocationHook func(ctx context.Context, seq Sequence, firstID int64)

// Store 是基于 Redis 的文档型后端，订单与订单项是两组通过ID关联的记录
type Store struct {
	client *redis.Client
	rdb    goredis.UniversalClient
	alloc  IDAllocator
	hook   AllocationHook

	orders *OrderRepository
	items  *OrderItemRepository
}

type Option func(*Store)

// WithIDAllocator 替换默认的 INCR 分配器
func WithIDAllocator(a IDAllocator) Option {
	return func(s *Store) { s.alloc = a }
}

func WithAllocationHook(h AllocationHook) Option {
	return func(s *Store) { s.hook = h }
}

// NewStore 构造存储并预加载 Lua 脚本
func NewStore(ctx context.Context, client *redis.Client, opts ...Option) (*Store, error) {
	s := &Store{client: client, rdb: client.GetClient()}
	for _, opt := range opts {
		opt(s)
	}
	if s.alloc == nil {
		s.alloc = NewSequenceAllocator(s.rdb)
	}
	if err := client.LoadScript(ctx, deleteItemScriptName, deleteItemScript); err != nil {
		return nil, err
	}
	s.orders = &OrderRepository{store: s}
	s.items = &OrderItemRepository{store: s}
	return s, nil
}

func (s *Store) Orders() domain.OrderRepository    { return s.orders }
func (s *Store) Items() domain.OrderItemRepository { return s.items }

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) allocate(ctx context.Context, seq Sequence, n int) (int64, error) {
	first, err := s.alloc.Next(ctx, seq, n)
	if err != nil {
		return 0, err
	}
	if s.hook != nil {
		s.hook(ctx, seq, first)
	}
	return first, nil
}

// loadOrders 按给定顺序加载订单及其订单项，索引中残留但记录已不存在的ID被跳过
func (s *Store) loadOrders(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	if len(ids) == 0 {
		return []*domain.Order{}, nil
	}

	pipe := s.rdb.Pipeline()
	orderCmds := make([]*goredis.MapStringStringCmd, len(ids))
	itemIDCmds := make([]*goredis.StringSliceCmd, len(ids))
	for i, id := range ids {
		orderCmds[i] = pipe.HGetAll(ctx, orderKey(id))
		itemIDCmds[i] = pipe.ZRange(ctx, orderItemsKey(id), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapf(err, "load %d orders", len(ids))
	}

	orders := make([]*domain.Order, 0, len(ids))
	itemIDs := make([][]int64, 0, len(ids))
	for i := range ids {
		fields := orderCmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		o, err := decodeOrder(fields)
		if err != nil {
			return nil, err
		}
		members, err := parseIDs(itemIDCmds[i].Val())
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		itemIDs = append(itemIDs, members)
	}

	for i, o := range orders {
		items, err := s.loadItems(ctx, itemIDs[i])
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return orders, nil
}

func (s *Store) loadItems(ctx context.Context, ids []int64) ([]domain.OrderItem, error) {
	if len(ids) == 0 {
		return []domain.OrderItem{}, nil
	}
	pipe := s.rdb.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, itemKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapf(err, "load %d items", len(ids))
	}
	items := make([]domain.OrderItem, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		it, err := decodeItem(fields)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
