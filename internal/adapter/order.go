package adapter

import (
	"strings"

	"bridge/internal/adapter/enum"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/shopspring/decimal"
)

// PlaceOrder describes a buy or sell order.
type PlaceOrder struct {
	Side       enum.OrderSide
	Instrument string
	Type       enum.OrderType
	Amount     decimal.Decimal
	Price      decimal.Decimal
	Label      string
	PostOnly   bool
}

// Operation validates the order and builds the private/buy (or private/sell) call.
func (o PlaceOrder) Operation() (Operation, error) {
	if strings.TrimSpace(o.Instrument) == "" {
		return Operation{}, exception.ErrOrderInvalidInstrument
	}

	if !o.Type.IsAvailable() {
		return Operation{}, errors.Wrapf(exception.ErrOrderUnsupportedType, "type %d", o.Type)
	}

	if !o.Amount.IsPositive() {
		return Operation{}, errors.Wrapf(exception.ErrOrderInvalidAmount, "amount %s", o.Amount)
	}

	side := o.Side
	if !side.IsAvailable() {
		side = enum.OrderSideBuy
	}

	params := map[string]any{
		"instrument_name": o.Instrument,
		"amount":          o.Amount.InexactFloat64(),
		"type":            o.Type.String(),
	}

	if o.Type == enum.OrderTypeLimit {
		if !o.Price.IsPositive() {
			return Operation{}, errors.Wrapf(exception.ErrOrderInvalidPrice, "price %s", o.Price)
		}
		params["price"] = o.Price.InexactFloat64()
		if o.PostOnly {
			params["post_only"] = true
		}
	}

	if o.Label != "" {
		params["label"] = o.Label
	}

	return NewOperation(side.Method(), params), nil
}

// EditOrder changes amount and price of a resting order.
type EditOrder struct {
	OrderID string
	Amount  decimal.Decimal
	Price   decimal.Decimal
}

func (o EditOrder) Operation() (Operation, error) {
	if strings.TrimSpace(o.OrderID) == "" {
		return Operation{}, exception.ErrOrderEmptyOrderID
	}

	if !o.Amount.IsPositive() {
		return Operation{}, errors.Wrapf(exception.ErrOrderInvalidAmount, "amount %s", o.Amount)
	}

	if !o.Price.IsPositive() {
		return Operation{}, errors.Wrapf(exception.ErrOrderInvalidPrice, "price %s", o.Price)
	}

	return NewOperation("private/edit", map[string]any{
		"order_id": o.OrderID,
		"amount":   o.Amount.InexactFloat64(),
		"price":    o.Price.InexactFloat64(),
	}), nil
}

func CancelOrder(orderID string) (Operation, error) {
	if strings.TrimSpace(orderID) == "" {
		return Operation{}, exception.ErrOrderEmptyOrderID
	}

	return NewOperation("private/cancel", map[string]any{
		"order_id": orderID,
	}), nil
}

func GetOpenOrders(instrument string) (Operation, error) {
	if strings.TrimSpace(instrument) == "" {
		return Operation{}, exception.ErrOrderInvalidInstrument
	}

	return NewOperation("private/get_open_orders_by_instrument", map[string]any{
		"instrument_name": instrument,
	}), nil
}

// GetPositions lists positions in currency. An empty kind means "any".
func GetPositions(currency, kind string) (Operation, error) {
	if strings.TrimSpace(currency) == "" {
		return Operation{}, errors.Wrap(exception.ErrInvalidArgument, "empty currency")
	}

	if kind == "" {
		kind = "any"
	}

	return NewOperation("private/get_positions", map[string]any{
		"currency": currency,
		"kind":     kind,
	}), nil
}

// GetOrderBook fetches the book of instrument. A non-positive depth leaves it to the server.
func GetOrderBook(instrument string, depth int) (Operation, error) {
	if strings.TrimSpace(instrument) == "" {
		return Operation{}, exception.ErrOrderInvalidInstrument
	}

	params := map[string]any{
		"instrument_name": instrument,
	}
	if depth > 0 {
		params["depth"] = depth
	}

	return NewOperation("public/get_order_book", params), nil
}

func Subscribe(channels ...string) (Operation, error) {
	if len(channels) == 0 {
		return Operation{}, exception.ErrOrderEmptyChannel
	}

	return NewOperation(MethodSubscribe, map[string]any{
		"channels": channels,
	}), nil
}

func Unsubscribe(channels ...string) (Operation, error) {
	if len(channels) == 0 {
		return Operation{}, exception.ErrOrderEmptyChannel
	}

	return NewOperation(MethodUnsubscribe, map[string]any{
		"channels": channels,
	}), nil
}
