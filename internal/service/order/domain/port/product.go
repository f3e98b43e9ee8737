package port

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product 是商品服务返回的商品记录
type Product struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"quantity"`
}

// ProductGateway 是商品服务的出站端口，库存归商品服务所有。
type ProductGateway interface {
	// FetchProducts 批量查询商品。单个商品查询失败时被省略，不会返回错误。
	FetchProducts(ctx context.Context, ids []int64) map[int64]Product
	// AdjustProductQuantity 按 delta 调整库存，负数表示扣减。
	AdjustProductQuantity(ctx context.Context, productID int64, delta int) bool
}

// PriceMap 从商品集合中提取单价表
func PriceMap(products map[int64]Product) map[int64]decimal.Decimal {
	prices := make(map[int64]decimal.Decimal, len(products))
	for id, p := range products {
		prices[id] = p.Price
	}
	return prices
}
