// internal/service/order/domain/state.go
package domain

import (
	"encoding/json"
	"fmt"
)

// OrderStatus 定义了订单的生命周期状态。
// 除 ConfirmsOrder 之外不强制状态图，任何状态都可以被直接设置。
type OrderStatus string

const (
	StatusPlaced         OrderStatus = "Order placed"
	StatusConfirmed      OrderStatus = "Order confirmed"
	StatusPreparing      OrderStatus = "Preparing"
	StatusReadyForPickup OrderStatus = "Ready for pickup"
	StatusOutForDelivery OrderStatus = "Out for delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCanceled       OrderStatus = "Canceled"
	StatusRefunded       OrderStatus = "Refunded"
	StatusFinalized      OrderStatus = "Finalized"
)

// PaymentStatus 定义了订单的支付状态。
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentApproved PaymentStatus = "Approved"
	PaymentDenied   PaymentStatus = "Denied"
	PaymentRejected PaymentStatus = "Rejected"
	PaymentUnknown  PaymentStatus = "Unknown"
)

var orderStatusTags = map[string]OrderStatus{
	"PLACED":           StatusPlaced,
	"CONFIRMED":        StatusConfirmed,
	"PREPARING":        StatusPreparing,
	"READY_FOR_PICKUP": StatusReadyForPickup,
	"OUT_FOR_DELIVERY": StatusOutForDelivery,
	"DELIVERED":        StatusDelivered,
	"CANCELED":         StatusCanceled,
	"REFUNDED":         StatusRefunded,
	"FINALIZED":        StatusFinalized,
}

var paymentStatusTags = map[string]PaymentStatus{
	"PENDING":  PaymentPending,
	"APPROVED": PaymentApproved,
	"DENIED":   PaymentDenied,
	"REJECTED": PaymentRejected,
	"UNKNOWN":  PaymentUnknown,
}

// OrderStatuses 按生命周期顺序返回全部订单状态。
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPlaced, StatusConfirmed, StatusPreparing, StatusReadyForPickup,
		StatusOutForDelivery, StatusDelivered, StatusCanceled, StatusRefunded, StatusFinalized,
	}
}

// PaymentStatuses 返回全部支付状态。
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentPending, PaymentApproved, PaymentDenied, PaymentRejected, PaymentUnknown}
}

// ParseOrderStatus 接受线上取值 ("Order placed") 或标签名 ("PLACED")。
func ParseOrderStatus(s string) (OrderStatus, error) {
	if st, ok := orderStatusTags[s]; ok {
		return st, nil
	}
	st := OrderStatus(s)
	if st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w: order status %q", ErrUnknownStatus, s)
}

// ParsePaymentStatus 接受线上取值 ("Approved") 或标签名 ("APPROVED")。
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	if st, ok := paymentStatusTags[s]; ok {
		return st, nil
	}
	st := PaymentStatus(s)
	if st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, s)
}

func (s OrderStatus) Valid() bool {
	for _, st := range OrderStatuses() {
		if s == st {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	for _, st := range PaymentStatuses() {
		if s == st {
			return true
		}
	}
	return false
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s *PaymentStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParsePaymentStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ConfirmsOrder 是唯一的派生规则：PLACED 状态的订单支付被批准时，订单转为 CONFIRMED。
func ConfirmsOrder(current OrderStatus, next PaymentStatus) bool {
	return next == PaymentApproved && current == StatusPlaced
}

// AcceptsItemChanges 只有 PLACED 状态的订单允许增删商品。
func (s OrderStatus) AcceptsItemChanges() bool {
	return s == StatusPlaced
}
