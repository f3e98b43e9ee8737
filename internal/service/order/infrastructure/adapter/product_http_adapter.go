package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/httpclient"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
)

const (
	productsService   = "products"
	defaultProductFan = 8
)

// ProductHTTPAdapter 实现了 port.ProductGateway 接口。
type ProductHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
	fanOut  int
}

// NewProductHTTPAdapter 创建一个新的商品服务适配器，fanOut 限制批量查询的并发数。
func NewProductHTTPAdapter(client *httpclient.Client, baseURL string, fanOut int) *ProductHTTPAdapter {
	if fanOut <= 0 {
		fanOut = defaultProductFan
	}
	return &ProductHTTPAdapter{client: client, baseURL: strings.TrimRight(baseURL, "/"), fanOut: fanOut}
}

// FetchProducts 并发查询每个商品，失败的查询被省略
func (a *ProductHTTPAdapter) FetchProducts(ctx context.Context, ids []int64) map[int64]port.Product {
	var (
		mu     sync.Mutex
		result = make(map[int64]port.Product, len(ids))
		seen   = make(map[int64]struct{}, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanOut)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		id := id
		g.Go(func() error {
			product, ok := a.fetchProduct(gctx, id)
			if ok {
				mu.Lock()
				result[id] = *product
				mu.Unlock()
			}
			// 单个商品失败不取消其他查询
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (a *ProductHTTPAdapter) fetchProduct(ctx context.Context, id int64) (*port.Product, bool) {
	resp, err := a.client.Get(ctx, fmt.Sprintf("%s/api/v1/products/%d", a.baseURL, id))
	if err != nil {
		record(ctx, productsService, "fetch", outcomeUnreachable, err)
		return nil, false
	}
	if !resp.OK(http.StatusOK) {
		record(ctx, productsService, "fetch", outcomeAbsent, nil)
		return nil, false
	}
	var product port.Product
	if err := resp.Decode(&product); err != nil {
		record(ctx, productsService, "fetch", outcomeUnreachable, err)
		return nil, false
	}
	product.ID = id
	record(ctx, productsService, "fetch", outcomeOK, nil)
	return &product, true
}

// AdjustProductQuantity 库存增减由商品服务负责，delta 为负表示扣减
func (a *ProductHTTPAdapter) AdjustProductQuantity(ctx context.Context, productID int64, delta int) bool {
	resp, err := a.client.Patch(ctx, fmt.Sprintf("%s/api/v1/products/%d/quantity/%d", a.baseURL, productID, delta))
	if err != nil {
		record(ctx, productsService, "adjust_quantity", outcomeUnreachable, err)
		return false
	}
	if !resp.OK(http.StatusOK) {
		record(ctx, productsService, "adjust_quantity", outcomeAbsent, nil)
		return false
	}
	record(ctx, productsService, "adjust_quantity", outcomeOK, nil)
	return true
}
