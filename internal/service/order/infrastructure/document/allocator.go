// internal/service/order/infrastructure/document/allocator.go
package document

import (
	"context"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

const (
	StrategySequence   = "sequence"
	StrategyMaxPlusOne = "max_plus_one"
)

// IDAllocator 为新记录预留 n 个连续ID，返回第一个
type IDAllocator interface {
	Next(ctx context.Context, seq Sequence, n int) (int64, error)
}

// SequenceAllocator 使用 INCR 原子分配，并发写入者之间不会冲突
type SequenceAllocator struct {
	client goredis.UniversalClient
}

func NewSequenceAllocator(client goredis.UniversalClient) *SequenceAllocator {
	return &SequenceAllocator{client: client}
}

func (a *SequenceAllocator) Next(ctx context.Context, seq Sequence, n int) (int64, error) {
	last, err := a.client.IncrBy(ctx, seq.Counter, int64(n)).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "incr %s", seq.Counter)
	}
	return last - int64(n) + 1, nil
}

// MaxPlusOneAllocator 读取索引中的最大ID再加一。
// 读与写之间没有同步，两个并发写入者可能拿到相同的ID。
type MaxPlusOneAllocator struct {
	client goredis.UniversalClient
}

func NewMaxPlusOneAllocator(client goredis.UniversalClient) *MaxPlusOneAllocator {
	return &MaxPlusOneAllocator{client: client}
}

func (a *MaxPlusOneAllocator) Next(ctx context.Context, seq Sequence, _ int) (int64, error) {
	top, err := a.client.ZRevRangeWithScores(ctx, seq.Index, 0, 0).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "read max id from %s", seq.Index)
	}
	if len(top) == 0 {
		return 1, nil
	}
	return int64(top[0].Score) + 1, nil
}

// NewAllocator 按策略名构造分配器，空字符串表示 sequence
func NewAllocator(strategy string, client goredis.UniversalClient) (IDAllocator, error) {
	switch strategy {
	case "", StrategySequence:
		return NewSequenceAllocator(client), nil
	case StrategyMaxPlusOne:
		return NewMaxPlusOneAllocator(client), nil
	default:
		return nil, errors.Errorf("unknown id strategy %q", strategy)
	}
}
