// internal/service/order/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound 表示订单ID不存在。
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound 表示订单项不存在或不属于该订单。
	ErrItemNotFound = errors.New("order item not found")
	// ErrInvalidState 表示在不允许的状态下尝试修改订单。
	ErrInvalidState = errors.New("invalid order state")
	// ErrValidation 表示请求数据未通过校验（由调用层基于协作服务数据判定）。
	ErrValidation = errors.New("validation failed")
	// ErrUnknownStatus 表示无法识别的状态取值。
	ErrUnknownStatus = errors.New("unknown status")
)

// InvalidStateError 携带拒绝操作时订单所处的状态。
type InvalidStateError struct {
	OrderID   int64
	Status    OrderStatus
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s order %d in status %q: order must be in %q status",
		e.Operation, e.OrderID, e.Status, StatusPlaced)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// ValidationError 描述调用层发现的校验失败。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError 以格式化字符串构造 ValidationError。
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
