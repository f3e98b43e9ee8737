// internal/service/order/infrastructure/document/codec.go
package document

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/gabrielmatosms/tc-orders-service/internal/service/order/domain"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeOrder(o *domain.Order) map[string]any {
	customer := ""
	if o.CustomerID != nil {
		customer = strconv.FormatInt(*o.CustomerID, 10)
	}
	return map[string]any{
		"id":             o.ID,
		"customer_id":    customer,
		"status":         string(o.Status),
		"payment_status": string(o.PaymentStatus),
		"total":          o.Total.String(),
		"created_at":     formatTime(o.CreatedAt),
		"updated_at":     formatTime(o.UpdatedAt),
	}
}

func decodeOrder(fields map[string]string) (*domain.Order, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "decode order id")
	}
	o := &domain.Order{
		ID:            id,
		Items:         []domain.OrderItem{},
		Status:        domain.OrderStatus(fields["status"]),
		PaymentStatus: domain.PaymentStatus(fields["payment_status"]),
	}
	if c := fields["customer_id"]; c != "" {
		customer, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decode customer of order %d", id)
		}
		o.CustomerID = &customer
	}
	if o.Total, err = decimal.NewFromString(fields["total"]); err != nil {
		return nil, errors.Wrapf(err, "decode total of order %d", id)
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, errors.Wrapf(err, "decode created_at of order %d", id)
	}
	if o.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, errors.Wrapf(err, "decode updated_at of order %d", id)
	}
	return o, nil
}

func encodeItem(it *domain.OrderItem) map[string]any {
	return map[string]any{
		"id":         it.ID,
		"order_id":   it.OrderID,
		"product_id": it.ProductID,
		"quantity":   it.Quantity,
		"created_at": formatTime(it.CreatedAt),
		"updated_at": formatTime(it.UpdatedAt),
	}
}

func decodeItem(fields map[string]string) (domain.OrderItem, error) {
	var (
		it  domain.OrderItem
		err error
	)
	if it.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return it, errors.Wrap(err, "decode item id")
	}
	if it.OrderID, err = strconv.ParseInt(fields["order_id"], 10, 64); err != nil {
		return it, errors.Wrapf(err, "decode order_id of item %d", it.ID)
	}
	if it.ProductID, err = strconv.ParseInt(fields["product_id"], 10, 64); err != nil {
		return it, errors.Wrapf(err, "decode product_id of item %d", it.ID)
	}
	if it.Quantity, err = strconv.Atoi(fields["quantity"]); err != nil {
		return it, errors.Wrapf(err, "decode quantity of item %d", it.ID)
	}
	if it.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return it, errors.Wrapf(err, "decode created_at of item %d", it.ID)
	}
	if it.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return it, errors.Wrapf(err, "decode updated_at of item %d", it.ID)
	}
	return it, nil
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "decode index member %q", m)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
