package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain/port"
)

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// memStore 是记录调用顺序的内存仓储
type memStore struct {
	mu     sync.Mutex
	orders map[int64]*domain.Order
	items  map[int64]domain.OrderItem
	nextID int64
	nextIt int64
	calls  []string

	// dropTotal 为 true 时 UpdateTotal 报告订单不存在
	dropTotal bool
	failItems error
}

func newMemStore() *memStore {
	return &memStore{orders: map[int64]*domain.Order{}, items: map[int64]domain.OrderItem{}}
}

func (m *memStore) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *memStore) snapshot(id int64) *domain.Order {
	o, ok := m.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	cp.Items = []domain.OrderItem{}
	for _, it := range m.sortedItems() {
		if it.OrderID == id {
			cp.Items = append(cp.Items, it)
		}
	}
	return &cp
}

func (m *memStore) sortedItems() []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) List(_ context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.snapshot(id))
	}
	return out, nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(id), nil
}

func (m *memStore) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	all, _ := m.List(ctx)
	var out []*domain.Order
	for _, o := range all {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, order *domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	stored := *order
	stored.ID = m.nextID
	stored.CreatedAt, stored.UpdatedAt = now, now
	m.orders[stored.ID] = &stored
	m.record("create order %d", stored.ID)
	return m.snapshot(stored.ID), nil
}

func (m *memStore) update(id int64, desc string, apply func(o *domain.Order)) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("%s %d", desc, id)
	o, ok := m.orders[id]
	if !ok {
		return nil
	}
	apply(o)
	o.UpdatedAt = time.Now().UTC()
	return m.snapshot(id)
}

func (m *memStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	return m.update(id, "status "+string(status), func(o *domain.Order) { o.Status = status }), nil
}

func (m *memStore) UpdatePaymentStatus(_ context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	return m.update(id, "payment "+string(status), func(o *domain.Order) { o.PaymentStatus = status }), nil
}

func (m *memStore) UpdateTotal(_ context.Context, id int64, total decimal.Decimal) (*domain.Order, error) {
	if m.dropTotal {
		m.mu.Lock()
		m.record("total %s %d", total.StringFixed(2), id)
		m.mu.Unlock()
		return nil, nil
	}
	return m.update(id, "total "+total.StringFixed(2), func(o *domain.Order) { o.Total = total }), nil
}

func (m *memStore) ListByOrderID(_ context.Context, orderID int64) ([]domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.OrderItem{}
	for _, it := range m.sortedItems() {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) insertItem(orderID int64, req domain.ItemRequest) domain.OrderItem {
	m.nextIt++
	now := time.Now().UTC()
	it := domain.OrderItem{ID: m.nextIt, OrderID: orderID, ProductID: req.ProductID, Quantity: req.Quantity, CreatedAt: now, UpdatedAt: now}
	m.items[it.ID] = it
	return it
}

func (m *memStore) CreateMany(_ context.Context, orderID int64, reqs []domain.ItemRequest) ([]domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("items %d", orderID)
	if m.failItems != nil {
		return nil, m.failItems
	}
	if _, ok := m.orders[orderID]; !ok {
		return nil, domain.ErrOrderNotFound
	}
	out := make([]domain.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, m.insertItem(orderID, r))
	}
	return out, nil
}

// itemRepo 适配 OrderItemRepository.Create，与 OrderRepository.Create 同名冲突
type itemRepo struct{ *memStore }

func (r itemRepo) Create(ctx context.Context, orderID int64, req domain.ItemRequest) (*domain.OrderItem, error) {
	items, err := r.CreateMany(ctx, orderID, []domain.ItemRequest{req})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (r itemRepo) Delete(_ context.Context, itemID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("delete item %d", itemID)
	if _, ok := r.items[itemID]; !ok {
		return false, nil
	}
	delete(r.items, itemID)
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newTestService() (*OrderApplicationService, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewOrderApplicationService(store, itemRepo{store}, testTracer(), pub, "memory")
	return svc, store, pub
}

// fakeGateways 同时实现客户、商品与支付端口
type fakeGateways struct {
	mu        sync.Mutex
	customers map[int64]port.Customer
	products  map[int64]port.Product
	adjusted  map[int64]int
	payments  []port.Payment
	payFail   bool
}

func newFakeGateways() *fakeGateways {
	return &fakeGateways{
		customers: map[int64]port.Customer{},
		products:  map[int64]port.Product{},
		adjusted:  map[int64]int{},
	}
}

func (g *fakeGateways) FetchCustomer(_ context.Context, id int64) (*port.Customer, bool) {
	c, ok := g.customers[id]
	if !ok {
		return nil, false
	}
	return &c, true
}

func (g *fakeGateways) FetchProducts(_ context.Context, ids []int64) map[int64]port.Product {
	out := map[int64]port.Product{}
	for _, id := range ids {
		if p, ok := g.products[id]; ok {
			out[id] = p
		}
	}
	return out
}

func (g *fakeGateways) AdjustProductQuantity(_ context.Context, id int64, delta int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.products[id]; !ok {
		return false
	}
	g.adjusted[id] += delta
	return true
}

func (g *fakeGateways) NotifyPayment(_ context.Context, orderID int64, amount decimal.Decimal) (*port.Payment, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.payFail {
		return nil, false
	}
	p := port.Payment{ID: int64(len(g.payments) + 1), OrderID: orderID, Amount: amount, Status: "Pending"}
	g.payments = append(g.payments, p)
	return &p, true
}

func (g *fakeGateways) addProduct(id int64, name, price string, qty int) {
	g.products[id] = port.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), AvailableQuantity: qty}
}

func domainCustomer(id int64) port.Customer {
	return port.Customer{ID: id, Name: "Ana", Email: "ana@example.com"}
}
