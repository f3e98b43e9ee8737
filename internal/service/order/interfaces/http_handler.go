// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/application"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

// TotalPersistedHeader 为 false 时表示响应中的总价没有被存储确认
const TotalPersistedHeader = "X-Order-Total-Persisted"

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	orders    *application.OrderApplicationService
	placement *application.PlacementService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(orders *application.OrderApplicationService, placement *application.PlacementService) *OrderHandler {
	return &OrderHandler{orders: orders, placement: placement}
}

// RegisterRoutes 在给定的路由组上注册订单相关路由
func (h *OrderHandler) RegisterRoutes(router gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.GET("/", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.POST("/", h.CreateOrder)
		orders.GET("/status/:status", h.ListOrdersByStatus)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status/:status", h.UpdateOrderStatus)
		orders.PATCH("/:id/payment-status/:status", h.UpdatePaymentStatus)
		orders.POST("/:id/items", h.AddItem)
		orders.DELETE("/:id/items/:item_id", h.RemoveItem)
		orders.POST("/:id/reconcile", h.Reconcile)
	}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeOrderError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrdersByStatus(c *gin.Context) {
	status, err := domain.ParseOrderStatus(c.Param("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	orders, err := h.orders.ListOrdersByStatus(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req domain.PendingOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body: " + err.Error()})
		return
	}
	result, err := h.placement.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header(TotalPersistedHeader, strconv.FormatBool(result.TotalPersisted))
	c.JSON(http.StatusCreated, result.Order)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := domain.ParseOrderStatus(c.Param("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		writeOrderError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := domain.ParsePaymentStatus(c.Param("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	order, err := h.orders.UpdatePaymentStatus(c.Request.Context(), id, status)
	if err != nil {
		writeOrderError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AddItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req domain.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body: " + err.Error()})
		return
	}
	result, err := h.placement.AddItem(c.Request.Context(), id, req)
	if err != nil {
		writeOrderError(c, id, err)
		return
	}
	c.Header(TotalPersistedHeader, strconv.FormatBool(result.TotalPersisted))
	c.JSON(http.StatusOK, result.Order)
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	result, err := h.placement.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		writeOrderError(c, id, err)
		return
	}
	c.Header(TotalPersistedHeader, strconv.FormatBool(result.TotalPersisted))
	c.JSON(http.StatusOK, result.Order)
}

func (h *OrderHandler) Reconcile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.placement.Reconcile(c.Request.Context(), id)
	if err != nil {
		writeOrderError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":   result.Order,
		"changed": result.Changed,
		"skipped": result.Skipped,
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid " + name + ": " + c.Param(name)})
		return 0, false
	}
	return id, true
}
