package exception

import "errors"

var (
	ErrOrderUnsupportedType   = errors.New("order: unsupported type")
	ErrOrderInvalidInstrument = errors.New("order: empty instrument name")
	ErrOrderInvalidAmount     = errors.New("order: amount must be positive")
	ErrOrderInvalidPrice      = errors.New("order: price must be positive for limit orders")
	ErrOrderEmptyOrderID      = errors.New("order: empty order id")
	ErrOrderEmptyChannel      = errors.New("order: empty subscription channel")
)
