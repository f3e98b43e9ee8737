// internal/service/order/infrastructure/store.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/bootstrap"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/redis"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/infrastructure/document"
)

const (
	BackendRelational = "relational"
	BackendDocument   = "document"
)

// OpenStore 按 storage.backend 选择后端。两个后端实现同一组仓储接口，
// 返回的 Store 在进程内共享连接池。
func OpenStore(ctx context.Context, cfg bootstrap.StorageConfig) (domain.Store, error) {
	switch cfg.Backend {
	case BackendRelational:
		return OpenMySQL(cfg.MySQL)
	case BackendDocument:
		return OpenRedis(ctx, cfg.Redis)
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenRedis 连接 Redis 并按 id_strategy 选择ID分配器
func OpenRedis(ctx context.Context, cfg bootstrap.RedisConfig) (*document.Store, error) {
	client, err := redis.NewClient(ctx, redis.Options{Addrs: cfg.Addrs, Password: cfg.Password, DB: cfg.DB})
	if err != nil {
		return nil, err
	}
	alloc, err := document.NewAllocator(cfg.IDStrategy, client.GetClient())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if cfg.IDStrategy == document.StrategyMaxPlusOne {
		log.Warn().Msg("redis backend uses max_plus_one ids; concurrent creates may collide")
	}
	store, err := document.NewStore(ctx, client, document.WithIDAllocator(alloc))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Info().Str("addrs", cfg.Addrs).Str("id_strategy", cfg.IDStrategy).Msg("✅ Redis connected")
	return store, nil
}
