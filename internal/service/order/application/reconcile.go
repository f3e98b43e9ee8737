// internal/service/order/application/reconcile.go
package application

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// ReconcileTotals 对所有 PLACED 订单执行一次对账，返回被修正的订单数。
// 创建流程在写入订单项之后、写入总价之前中断时，会留下总价为零的订单，这里只修正这类订单。
// 总价已持久化的订单按下单时的价格计费，商品后续调价不影响它们。
func (p *PlacementService) ReconcileTotals(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "placement.ReconcileTotals")
	defer span.End()

	orders, err := p.orders.ListOrdersByStatus(ctx, domain.StatusPlaced)
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		if !needsTotal(order) {
			continue
		}
		result, err := p.Reconcile(ctx, order.ID)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("order_id", order.ID).Msg("reconcile order failed")
			continue
		}
		if result.Changed {
			fixed++
		}
	}
	return fixed, nil
}

// needsTotal 判断订单是否停留在“有订单项但总价未写入”的中断状态
func needsTotal(order *domain.Order) bool {
	return len(order.Items) > 0 && order.Total.IsZero()
}

// PassLock 保证多副本部署时同一轮对账只由一个副本执行
type PassLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock() error
}

// RunReconciler 按 interval 周期性对账，直到 ctx 被取消。lock 为 nil 时每轮都执行。
func (p *PlacementService) RunReconciler(ctx context.Context, interval time.Duration, lock PassLock) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("✅ Total reconciler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("🛑 Total reconciler stopped.")
			return
		case <-ticker.C:
			p.reconcilePass(ctx, lock)
		}
	}
}

// reconcilePass 执行一轮对账，返回是否真正执行
func (p *PlacementService) reconcilePass(ctx context.Context, lock PassLock) bool {
	if lock != nil {
		ok, err := lock.TryLock(ctx)
		if err != nil {
			log.Error().Err(err).Msg("acquire reconciler lock failed")
			return false
		}
		if !ok {
			log.Debug().Msg("another replica holds the reconciler lock, skipping pass")
			return false
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				log.Warn().Err(err).Msg("release reconciler lock failed")
			}
		}()
	}

	fixed, err := p.ReconcileTotals(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("reconciliation pass failed")
		return true
	}
	if fixed > 0 {
		log.Info().Int("fixed", fixed).Msg("reconciliation pass finished")
	}
	return true
}
