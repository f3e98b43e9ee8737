// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orders"

var (
	// OrdersCreated 统计创建成功的订单数，backend 区分存储实现。
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Orders created by the create saga.",
	}, []string{"backend"})

	// StaleTotals 统计总价写入失败（订单已不存在）的次数。
	StaleTotals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_total_writes_total",
		Help:      "Total updates that storage did not confirm.",
	}, []string{"operation"})

	// Transitions 统计状态变更。
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Order status and payment status writes.",
	}, []string{"kind", "to"})

	// Reconciled 统计对账修正的订单数。
	Reconciled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciled_totals_total",
		Help:      "Order totals corrected by the reconciliation pass.",
	})

	// GatewayCalls 统计外部协作服务调用结果: ok / absent / unreachable。
	GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Collaborator calls by service, operation and outcome.",
	}, []string{"service", "operation", "outcome"})

	// HTTPRequests 统计入站 HTTP 请求。
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Inbound HTTP requests.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Inbound HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
