// internal/service/order/interfaces/router.go
package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

// NewRouter 组装 gin 引擎：健康检查、指标与 {apiPrefix}/orders 路由
func NewRouter(serviceName, apiPrefix string, tracer trace.Tracer, handler *OrderHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), Tracing(tracer), AccessLog())

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	}
	router.GET("/", health)
	router.GET("/healthz", health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router.Group(apiPrefix))
	return router
}
