// internal/service/order/interfaces/errors.go
package interfaces

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// writeOrderError 与 writeError 相同，但未找到订单时带上订单ID
func writeOrderError(c *gin.Context, id int64, err error) {
	if errors.Is(err, domain.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("Order with ID %d not found", id)})
		return
	}
	writeError(c, err)
}

// writeError 把领域错误映射为 {"detail": ...} 响应
func writeError(c *gin.Context, err error) {
	var (
		invalidState *domain.InvalidStateError
		validation   *domain.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusConflict, gin.H{"detail": invalidState.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"detail": validation.Error()})
	case errors.Is(err, domain.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	default:
		logger.Ctx(c.Request.Context()).Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}
