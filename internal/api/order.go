package api

import (
	"strconv"
	"strings"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultInstrument = "BTC-PERPETUAL"
	defaultCurrency   = "BTC"
	defaultKind       = "any"
)

type buyRequest struct {
	Symbol     string          `json:"symbol"`
	Instrument string          `json:"instrument"`
	Amount     decimal.Decimal `json:"amount"`
	Type       string          `json:"type"`
	Price      decimal.Decimal `json:"price"`
	Label      string          `json:"label"`
	PostOnly   bool            `json:"post_only"`
}

func (r buyRequest) order() (adapter.PlaceOrder, error) {
	instrument := r.Instrument
	if instrument == "" {
		instrument = r.Symbol
	}

	typ := enum.OrderTypeMarket
	if r.Type != "" {
		t, ok := enum.ParseOrderType(r.Type)
		if !ok {
			return adapter.PlaceOrder{}, errors.Wrapf(exception.ErrOrderUnsupportedType, "type %q", r.Type)
		}
		typ = t
	}

	return adapter.PlaceOrder{
		Side:       enum.OrderSideBuy,
		Instrument: instrument,
		Type:       typ,
		Amount:     r.Amount,
		Price:      r.Price,
		Label:      r.Label,
		PostOnly:   r.PostOnly,
	}, nil
}

type modifyRequest struct {
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Price   decimal.Decimal `json:"price"`
}

type authRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type authResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   int64   `json:"expires_in"`
	Scope       string  `json:"scope,omitempty"`
	HTTPStatus  int     `json:"http_status"`
	LatencyMs   float64 `json:"latency_ms"`
}

// buildBuy decodes the body into a private/buy call.
func buildBuy(c *gin.Context) (adapter.Operation, error) {
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return adapter.Operation{}, errors.Wrap(exception.ErrInvalidArgument, err.Error())
	}

	order, err := req.order()
	if err != nil {
		return adapter.Operation{}, err
	}

	return order.Operation()
}

func buildModify(c *gin.Context) (adapter.Operation, error) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return adapter.Operation{}, errors.Wrap(exception.ErrInvalidArgument, err.Error())
	}

	return adapter.EditOrder{
		OrderID: req.OrderID,
		Amount:  req.Amount,
		Price:   req.Price,
	}.Operation()
}

func buildOrderBook(c *gin.Context, defaultDepth int) (adapter.Operation, error) {
	depth := defaultDepth
	if raw := strings.TrimSpace(c.Query("depth")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			return adapter.Operation{}, errors.Wrapf(exception.ErrInvalidArgument, "depth %q", raw)
		}
		depth = d
	}

	return adapter.GetOrderBook(c.DefaultQuery("instrument", defaultInstrument), depth)
}
