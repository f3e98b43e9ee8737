package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gabrielmatosms/tc-orders-service/internal/pkg/httpclient"
)

func newClient() *httpclient.Client {
	return httpclient.NewClient(noop.NewTracerProvider().Tracer("test"), 2*time.Second)
}

func TestCustomerAdapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/customers/1":
			_, _ = w.Write([]byte(`{"id":1,"name":"Ana","email":"ana@example.com"}`))
		case "/api/v1/customers/3":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	a := NewCustomerHTTPAdapter(newClient(), srv.URL+"/")
	ctx := context.Background()

	c, ok := a.FetchCustomer(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "Ana", c.Name)

	_, ok = a.FetchCustomer(ctx, 2)
	assert.False(t, ok)
	_, ok = a.FetchCustomer(ctx, 3)
	assert.False(t, ok)
}

func TestCustomerAdapterUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, ok := NewCustomerHTTPAdapter(newClient(), url).FetchCustomer(context.Background(), 1)

	assert.False(t, ok)
}

func TestProductAdapterFetchOmitsFailures(t *testing.T) {
	var (
		mu   sync.Mutex
		hits = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/api/v1/products/1":
			_, _ = w.Write([]byte(`{"id":1,"name":"Burger","price":10.99,"quantity":4}`))
		case "/api/v1/products/2":
			_, _ = w.Write([]byte(`{"name":"Fries","price":"5.99","quantity":0}`))
		case "/api/v1/products/3":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	a := NewProductHTTPAdapter(newClient(), srv.URL, 2)

	products := a.FetchProducts(context.Background(), []int64{1, 2, 3, 4, 1})

	require.Len(t, products, 2)
	assert.True(t, products[1].Price.Equal(decimal.RequireFromString("10.99")))
	assert.Equal(t, 4, products[1].AvailableQuantity)
	assert.Equal(t, int64(2), products[2].ID)
	assert.Equal(t, "Fries", products[2].Name)
	assert.Equal(t, 1, hits["/api/v1/products/1"])
}

func TestProductAdapterAdjustQuantity(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		if r.URL.Path == "/api/v1/products/9/quantity/-2" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	a := NewProductHTTPAdapter(newClient(), srv.URL, 0)

	assert.True(t, a.AdjustProductQuantity(context.Background(), 9, -2))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/api/v1/products/9/quantity/-2", gotPath)

	assert.False(t, a.AdjustProductQuantity(context.Background(), 9, 5))
}

func TestPaymentAdapter(t *testing.T) {
	tests := []struct {
		name string
		code int
		ok   bool
	}{
		{"ok", http.StatusOK, true},
		{"created", http.StatusCreated, true},
		{"rejected", http.StatusUnprocessableEntity, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1/payments/", r.URL.Path)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(`{"id":5,"order_id":11,"amount":27.97,"status":"Pending"}`))
			}))
			defer srv.Close()

			payment, ok := NewPaymentHTTPAdapter(newClient(), srv.URL).
				NotifyPayment(context.Background(), 11, decimal.RequireFromString("27.97"))

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, float64(11), body["order_id"])
			assert.Equal(t, 27.97, body["amount"])
			assert.Equal(t, "Pending", body["status"])
			if tt.ok {
				require.NotNil(t, payment)
				assert.Equal(t, int64(5), payment.ID)
			}
		})
	}
}
