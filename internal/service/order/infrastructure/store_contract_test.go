package infrastructure_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/redis"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/infrastructure/document"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/infrastructure/relational"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "orders.db") + "?_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, relational.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newRelationalStore(t *testing.T) domain.Store {
	return relational.NewStore(openSQLite(t))
}

func newDocumentStore(t *testing.T, opts ...document.Option) *document.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	store, err := document.NewStore(context.Background(), client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newDocumentStoreWithAllocator(t *testing.T, strategy string, hook document.AllocationHook) *document.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	alloc, err := document.NewAllocator(strategy, rdb)
	require.NoError(t, err)
	store, err := document.NewStore(context.Background(), redis.Wrap(rdb),
		document.WithIDAllocator(alloc), document.WithAllocationHook(hook))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// StoreContractSuite 对两个后端运行同一组行为契约
type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) domain.Store

	ctx    context.Context
	orders domain.OrderRepository
	items  domain.OrderItemRepository
}

func TestRelationalStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: newRelationalStore})
}

func TestDocumentStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) domain.Store { return newDocumentStore(t) }})
}

func (s *StoreContractSuite) SetupTest() {
	store := s.newStore(s.T())
	s.ctx = context.Background()
	s.orders = store.Orders()
	s.items = store.Items()
}

func (s *StoreContractSuite) createOrder(customerID *int64) *domain.Order {
	order, err := s.orders.Create(s.ctx, domain.NewOrderShell(customerID))
	s.Require().NoError(err)
	s.Require().NotNil(order)
	return order
}

func (s *StoreContractSuite) TestCreateReturnsShell() {
	customer := int64(7)
	order := s.createOrder(&customer)

	s.Positive(order.ID)
	s.Require().NotNil(order.CustomerID)
	s.Equal(int64(7), *order.CustomerID)
	s.Equal(domain.StatusPlaced, order.Status)
	s.Equal(domain.PaymentPending, order.PaymentStatus)
	s.True(order.Total.IsZero())
	s.Empty(order.Items)
	s.False(order.CreatedAt.IsZero())
	s.False(order.UpdatedAt.IsZero())
}

func (s *StoreContractSuite) TestCreateAssignsIncreasingIDs() {
	var last int64
	for i := 0; i < 4; i++ {
		order := s.createOrder(nil)
		s.Greater(order.ID, last)
		last = order.ID
	}
}

func (s *StoreContractSuite) TestCustomerIsOptional() {
	order := s.createOrder(nil)

	found, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Nil(found.CustomerID)
}

func (s *StoreContractSuite) TestUnknownIDsAreAbsent() {
	found, err := s.orders.FindByID(s.ctx, 4242)
	s.NoError(err)
	s.Nil(found)

	byStatus, err := s.orders.UpdateStatus(s.ctx, 4242, domain.StatusDelivered)
	s.NoError(err)
	s.Nil(byStatus)

	byPayment, err := s.orders.UpdatePaymentStatus(s.ctx, 4242, domain.PaymentApproved)
	s.NoError(err)
	s.Nil(byPayment)

	byTotal, err := s.orders.UpdateTotal(s.ctx, 4242, decimal.NewFromInt(10))
	s.NoError(err)
	s.Nil(byTotal)

	all, err := s.orders.List(s.ctx)
	s.NoError(err)
	s.Empty(all)
}

func (s *StoreContractSuite) TestUpdateStatusStampsUpdatedAt() {
	order := s.createOrder(nil)
	time.Sleep(10 * time.Millisecond)

	updated, err := s.orders.UpdateStatus(s.ctx, order.ID, domain.StatusPreparing)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Equal(domain.StatusPreparing, updated.Status)
	s.True(updated.UpdatedAt.After(order.UpdatedAt), "updated_at %v should be after %v", updated.UpdatedAt, order.UpdatedAt)
}

func (s *StoreContractSuite) TestUpdateToSameValueStillFindsOrder() {
	order := s.createOrder(nil)

	same, err := s.orders.UpdateStatus(s.ctx, order.ID, domain.StatusPlaced)
	s.Require().NoError(err)
	s.Require().NotNil(same)
	s.Equal(domain.StatusPlaced, same.Status)

	samePayment, err := s.orders.UpdatePaymentStatus(s.ctx, order.ID, domain.PaymentPending)
	s.Require().NoError(err)
	s.NotNil(samePayment)
}

func (s *StoreContractSuite) TestUpdatePaymentStatus() {
	order := s.createOrder(nil)

	updated, err := s.orders.UpdatePaymentStatus(s.ctx, order.ID, domain.PaymentDenied)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Equal(domain.PaymentDenied, updated.PaymentStatus)
	s.Equal(domain.StatusPlaced, updated.Status)
}

func (s *StoreContractSuite) TestUpdateTotal() {
	order := s.createOrder(nil)

	updated, err := s.orders.UpdateTotal(s.ctx, order.ID, decimal.RequireFromString("27.97"))
	s.Require().NoError(err)
	s.Require().NotNil(updated)

	found, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("27.97").Equal(found.Total), "got %s", found.Total)
}

func (s *StoreContractSuite) TestListByStatusFollowsUpdates() {
	first := s.createOrder(nil)
	second := s.createOrder(nil)

	_, err := s.orders.UpdateStatus(s.ctx, second.ID, domain.StatusConfirmed)
	s.Require().NoError(err)

	placed, err := s.orders.ListByStatus(s.ctx, domain.StatusPlaced)
	s.Require().NoError(err)
	s.Require().Len(placed, 1)
	s.Equal(first.ID, placed[0].ID)

	confirmed, err := s.orders.ListByStatus(s.ctx, domain.StatusConfirmed)
	s.Require().NoError(err)
	s.Require().Len(confirmed, 1)
	s.Equal(second.ID, confirmed[0].ID)

	canceled, err := s.orders.ListByStatus(s.ctx, domain.StatusCanceled)
	s.Require().NoError(err)
	s.Empty(canceled)
}

func (s *StoreContractSuite) TestCreateManyPreservesInsertionOrder() {
	order := s.createOrder(nil)
	reqs := []domain.ItemRequest{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 5},
	}

	created, err := s.items.CreateMany(s.ctx, order.ID, reqs)
	s.Require().NoError(err)
	s.Require().Len(created, 3)
	for i := range created {
		s.Positive(created[i].ID)
		s.Equal(order.ID, created[i].OrderID)
		if i > 0 {
			s.Greater(created[i].ID, created[i-1].ID)
		}
	}

	listed, err := s.items.ListByOrderID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	for i, req := range reqs {
		s.Equal(req.ProductID, listed[i].ProductID)
		s.Equal(req.Quantity, listed[i].Quantity)
		s.Equal(created[i].ID, listed[i].ID)
	}

	found, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(found.Items, 3)
	s.Equal(created[0].ID, found.Items[0].ID)
	s.Equal(created[2].ID, found.Items[2].ID)
}

func (s *StoreContractSuite) TestItemsStayWithTheirOrder() {
	a := s.createOrder(nil)
	b := s.createOrder(nil)

	_, err := s.items.Create(s.ctx, a.ID, domain.ItemRequest{ProductID: 1, Quantity: 1})
	s.Require().NoError(err)
	_, err = s.items.CreateMany(s.ctx, b.ID, []domain.ItemRequest{{ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 1}})
	s.Require().NoError(err)

	all, err := s.orders.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(a.ID, all[0].ID)
	s.Len(all[0].Items, 1)
	s.Equal(b.ID, all[1].ID)
	s.Len(all[1].Items, 2)
	for _, it := range all[1].Items {
		s.Equal(b.ID, it.OrderID)
	}
}

func (s *StoreContractSuite) TestCreateItemsForUnknownOrder() {
	_, err := s.items.CreateMany(s.ctx, 999, []domain.ItemRequest{{ProductID: 1, Quantity: 1}})
	s.True(errors.Is(err, domain.ErrOrderNotFound), "got %v", err)

	_, err = s.items.Create(s.ctx, 999, domain.ItemRequest{ProductID: 1, Quantity: 1})
	s.True(errors.Is(err, domain.ErrOrderNotFound), "got %v", err)

	listed, err := s.items.ListByOrderID(s.ctx, 999)
	s.NoError(err)
	s.Empty(listed)
}

func (s *StoreContractSuite) TestCreateManyEmptyIsNoop() {
	order := s.createOrder(nil)
	created, err := s.items.CreateMany(s.ctx, order.ID, nil)
	s.NoError(err)
	s.Empty(created)
}

func (s *StoreContractSuite) TestDeleteItem() {
	order := s.createOrder(nil)
	created, err := s.items.CreateMany(s.ctx, order.ID, []domain.ItemRequest{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}})
	s.Require().NoError(err)

	deleted, err := s.items.Delete(s.ctx, created[0].ID)
	s.Require().NoError(err)
	s.True(deleted)

	again, err := s.items.Delete(s.ctx, created[0].ID)
	s.Require().NoError(err)
	s.False(again)

	found, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(found.Items, 1)
	s.Equal(created[1].ID, found.Items[0].ID)
}
