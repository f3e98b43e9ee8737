package adapter

import (
	"context"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/metrics"
)

const (
	outcomeOK          = "ok"
	outcomeAbsent      = "absent"
	outcomeUnreachable = "unreachable"
)

// record 统计一次协作服务调用。不可达与不存在对调用方都表现为缺失，
// 这里把两者分开记录，便于运维区分。
func record(ctx context.Context, service, operation, outcome string, err error) {
	metrics.GatewayCalls.WithLabelValues(service, operation, outcome).Inc()
	if outcome == outcomeUnreachable {
		logger.Ctx(ctx).Warn().Err(err).
			Str("service", service).
			Str("operation", operation).
			Msg("collaborator unreachable, treating as absent")
	}
}
