package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

func newTestPlacement() (*PlacementService, *memStore, *fakeGateways) {
	svc, store, _ := newTestService()
	gw := newFakeGateways()
	gw.addProduct(1, "Burger", "10.99", 5)
	gw.addProduct(2, "Fries", "5.99", 5)
	gw.customers[7] = domainCustomer(7)
	return NewPlacementService(svc, gw, gw, gw, testTracer()), store, gw
}

func TestPlaceOrderHappyPath(t *testing.T) {
	p, _, gw := newTestPlacement()
	customer := int64(7)
	req := sampleRequest()
	req.CustomerID = &customer

	res, err := p.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "27.97", res.Order.Total.StringFixed(2))
	assert.Equal(t, map[int64]int{1: -2, 2: -1}, gw.adjusted)
	require.Len(t, gw.payments, 1)
	assert.Equal(t, res.Order.ID, gw.payments[0].OrderID)
	assert.True(t, gw.payments[0].Amount.Equal(res.Order.Total))
}

func TestPlaceOrderValidation(t *testing.T) {
	unknownCustomer := int64(99)
	tests := []struct {
		name string
		req  domain.PendingOrder
		want string
	}{
		{"no items", domain.PendingOrder{}, "Order must have at least one item"},
		{"unknown customer", domain.PendingOrder{CustomerID: &unknownCustomer, Items: []domain.ItemRequest{{ProductID: 1, Quantity: 1}}},
			"Customer with ID 99 not found"},
		{"missing products", domain.PendingOrder{Items: []domain.ItemRequest{{ProductID: 9, Quantity: 1}, {ProductID: 1, Quantity: 1}, {ProductID: 4, Quantity: 1}}},
			"Products with IDs {4, 9} not found"},
		{"not enough stock", domain.PendingOrder{Items: []domain.ItemRequest{{ProductID: 2, Quantity: 6}}},
			"Not enough stock for product Fries (ID: 2)"},
		{"stock aggregated across lines", domain.PendingOrder{Items: []domain.ItemRequest{{ProductID: 1, Quantity: 3}, {ProductID: 1, Quantity: 3}}},
			"Not enough stock for product Burger (ID: 1)"},
		{"non-positive quantity", domain.PendingOrder{Items: []domain.ItemRequest{{ProductID: 1, Quantity: 0}}},
			"Quantity for product 1 must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, gw := newTestPlacement()

			_, err := p.PlaceOrder(context.Background(), tt.req)

			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.want, vErr.Reason)
			assert.Empty(t, store.calls)
			assert.Empty(t, gw.adjusted)
			assert.Empty(t, gw.payments)
		})
	}
}

func TestPlaceOrderSurvivesCollaboratorFailures(t *testing.T) {
	p, _, gw := newTestPlacement()
	gw.payFail = true

	res, err := p.PlaceOrder(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.NotZero(t, res.Order.ID)
	assert.Empty(t, gw.payments)
}

func TestPlacementItemChangesAdjustStock(t *testing.T) {
	p, _, gw := newTestPlacement()
	ctx := context.Background()
	res, err := p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)

	added, err := p.AddItem(ctx, res.Order.ID, domain.ItemRequest{ProductID: 2, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "33.96", added.Order.Total.StringFixed(2))
	assert.Equal(t, -2, gw.adjusted[2])

	removed, err := p.RemoveItem(ctx, res.Order.ID, res.Order.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "11.98", removed.Order.Total.StringFixed(2))
	assert.Equal(t, 0, gw.adjusted[1])
}

func TestPlacementAddItemUnknownProduct(t *testing.T) {
	p, _, _ := newTestPlacement()
	ctx := context.Background()
	res, err := p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)

	_, err = p.AddItem(ctx, res.Order.ID, domain.ItemRequest{ProductID: 77, Quantity: 1})

	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestPlacementAddItemChecksOrderStateFirst(t *testing.T) {
	p, _, gw := newTestPlacement()
	ctx := context.Background()
	res, err := p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	_, err = p.orders.UpdatePaymentStatus(ctx, res.Order.ID, domain.PaymentApproved)
	require.NoError(t, err)
	before := map[int64]int{}
	for k, v := range gw.adjusted {
		before[k] = v
	}

	_, err = p.AddItem(ctx, res.Order.ID, domain.ItemRequest{ProductID: 77, Quantity: 1})
	assert.True(t, errors.Is(err, domain.ErrInvalidState), "got %v", err)

	_, err = p.AddItem(ctx, 404, domain.ItemRequest{ProductID: 77, Quantity: 1})
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound), "got %v", err)
	assert.Equal(t, before, gw.adjusted)
}

func TestReconcileTotalsFixesStaleOrders(t *testing.T) {
	p, store, _ := newTestPlacement()
	ctx := context.Background()
	store.dropTotal = true
	_, err := p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	store.dropTotal = false
	_, err = p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)

	fixed, err := p.ReconcileTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	orders, err := store.List(ctx)
	require.NoError(t, err)
	for _, o := range orders {
		assert.Equal(t, "27.97", o.Total.StringFixed(2))
	}
}

func TestReconcileTotalsKeepsPersistedTotalsAfterPriceChange(t *testing.T) {
	p, store, gw := newTestPlacement()
	ctx := context.Background()
	res, err := p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	require.Len(t, gw.payments, 1)
	assert.Equal(t, "27.97", gw.payments[0].Amount.StringFixed(2))

	gw.addProduct(1, "Burger", "12.00", 5)

	fixed, err := p.ReconcileTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)

	stored, err := store.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "27.97", stored.Total.StringFixed(2))
}

type fakeLock struct {
	free     bool
	err      error
	unlocked int
}

func (l *fakeLock) TryLock(context.Context) (bool, error) { return l.free, l.err }

func (l *fakeLock) Unlock() error {
	l.unlocked++
	return nil
}

func TestReconcilePassRespectsLock(t *testing.T) {
	p, store, _ := newTestPlacement()
	ctx := context.Background()
	store.dropTotal = true
	_, err := p.PlaceOrder(ctx, sampleRequest())
	require.NoError(t, err)
	store.dropTotal = false

	held := &fakeLock{free: false}
	assert.False(t, p.reconcilePass(ctx, held))
	assert.Zero(t, held.unlocked)
	o, _ := store.FindByID(ctx, 1)
	assert.True(t, o.Total.IsZero())

	broken := &fakeLock{err: errors.New("session expired")}
	assert.False(t, p.reconcilePass(ctx, broken))

	free := &fakeLock{free: true}
	assert.True(t, p.reconcilePass(ctx, free))
	assert.Equal(t, 1, free.unlocked)
	o, _ = store.FindByID(ctx, 1)
	assert.Equal(t, "27.97", o.Total.StringFixed(2))

	assert.True(t, p.reconcilePass(ctx, nil))
}
