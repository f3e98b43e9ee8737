// internal/service/order/application/placement.go
package application

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/logger"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
)

// PlacementService 是订单编排的调用层：先通过协作服务校验客户、商品与库存，
// 再调用 OrderApplicationService，最后扣减库存并通知支付服务。
type PlacementService struct {
	orders    *OrderApplicationService
	customers port.CustomerGateway
	products  port.ProductGateway
	payments  port.PaymentGateway
	tracer    trace.Tracer
}

func NewPlacementService(orders *OrderApplicationService, customers port.CustomerGateway, products port.ProductGateway, payments port.PaymentGateway, tracer trace.Tracer) *PlacementService {
	return &PlacementService{
		orders:    orders,
		customers: customers,
		products:  products,
		payments:  payments,
		tracer:    tracer,
	}
}

// PlaceOrder 校验失败返回 *domain.ValidationError，此时不会发生任何写入。
func (p *PlacementService) PlaceOrder(ctx context.Context, req domain.PendingOrder) (*CreateOrderResult, error) {
	ctx, span := p.tracer.Start(ctx, "placement.PlaceOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("Order must have at least one item")
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, domain.NewValidationError("Quantity for product %d must be positive", it.ProductID)
		}
	}

	if req.CustomerID != nil {
		if _, ok := p.customers.FetchCustomer(ctx, *req.CustomerID); !ok {
			return nil, domain.NewValidationError("Customer with ID %d not found", *req.CustomerID)
		}
	}

	requested := requestedQuantities(req.Items)
	products := p.products.FetchProducts(ctx, productIDs(req.Items))
	if missing := missingProducts(requested, products); len(missing) > 0 {
		return nil, domain.NewValidationError("Products with IDs %s not found", formatIDs(missing))
	}
	for _, pid := range productIDs(req.Items) {
		product := products[pid]
		if product.AvailableQuantity < requested[pid] {
			return nil, domain.NewValidationError("Not enough stock for product %s (ID: %d)", product.Name, pid)
		}
	}

	result, err := p.orders.CreateOrder(ctx, req, port.PriceMap(products))
	if err != nil {
		return nil, err
	}
	order := result.Order
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	// 库存扣减与支付通知的失败不回滚订单，只记录日志
	for _, it := range req.Items {
		if !p.products.AdjustProductQuantity(ctx, it.ProductID, -it.Quantity) {
			logger.Ctx(ctx).Error().Int64("order_id", order.ID).Int64("product_id", it.ProductID).
				Int("quantity", it.Quantity).Msg("failed to decrement product stock")
		}
	}
	if order.Total.GreaterThan(decimal.Zero) {
		if _, ok := p.payments.NotifyPayment(ctx, order.ID, order.Total); !ok {
			logger.Ctx(ctx).Error().Int64("order_id", order.ID).Str("total", order.Total.String()).
				Msg("failed to notify payment service")
		}
	}
	return result, nil
}

// AddItem 查询商品单价与库存后把订单项加入订单，成功后扣减库存。
// 先确认订单存在且处于 PLACED，再访问商品服务。
func (p *PlacementService) AddItem(ctx context.Context, orderID int64, req domain.ItemRequest) (*ItemChangeResult, error) {
	ctx, span := p.tracer.Start(ctx, "placement.AddItem")
	defer span.End()

	if req.Quantity <= 0 {
		return nil, domain.NewValidationError("Quantity for product %d must be positive", req.ProductID)
	}
	if _, err := p.orders.modifiableOrder(ctx, orderID, "add item to"); err != nil {
		return nil, err
	}
	products := p.products.FetchProducts(ctx, []int64{req.ProductID})
	product, ok := products[req.ProductID]
	if !ok {
		return nil, domain.NewValidationError("Product with ID %d not found", req.ProductID)
	}
	if product.AvailableQuantity < req.Quantity {
		return nil, domain.NewValidationError("Not enough stock for product %s (ID: %d)", product.Name, req.ProductID)
	}

	price := product.Price
	result, err := p.orders.AddItem(ctx, orderID, req, &price)
	if err != nil {
		return nil, err
	}
	if !p.products.AdjustProductQuantity(ctx, req.ProductID, -req.Quantity) {
		logger.Ctx(ctx).Error().Int64("order_id", orderID).Int64("product_id", req.ProductID).
			Msg("failed to decrement product stock")
	}
	return result, nil
}

// RemoveItem 删除订单项并归还库存。商品单价无法获取时总价保持不变，交给对账修正。
func (p *PlacementService) RemoveItem(ctx context.Context, orderID, itemID int64) (*ItemChangeResult, error) {
	ctx, span := p.tracer.Start(ctx, "placement.RemoveItem")
	defer span.End()

	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item, ok := order.HasItem(itemID)
	if !ok {
		return nil, domain.ErrItemNotFound
	}

	var price *decimal.Decimal
	if product, ok := p.products.FetchProducts(ctx, []int64{item.ProductID})[item.ProductID]; ok {
		price = &product.Price
	}
	result, err := p.orders.RemoveItem(ctx, orderID, itemID, price)
	if err != nil {
		return nil, err
	}
	if !p.products.AdjustProductQuantity(ctx, item.ProductID, item.Quantity) {
		logger.Ctx(ctx).Error().Int64("order_id", orderID).Int64("product_id", item.ProductID).
			Msg("failed to restore product stock")
	}
	return result, nil
}

// Reconcile 以商品服务的当前价格重新计算单个订单的总价
func (p *PlacementService) Reconcile(ctx context.Context, orderID int64) (*ReconcileResult, error) {
	order, err := p.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	prices := port.PriceMap(p.products.FetchProducts(ctx, order.ProductIDs()))
	return p.orders.ReconcileTotal(ctx, orderID, prices)
}

func requestedQuantities(items []domain.ItemRequest) map[int64]int {
	qty := make(map[int64]int, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
	}
	return qty
}

func productIDs(items []domain.ItemRequest) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func missingProducts(requested map[int64]int, found map[int64]port.Product) []int64 {
	var missing []int64
	for id := range requested {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
