package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// UnmarshalJSON accepts any letter case, e.g. "buy".
func (s *Side) UnmarshalJSON(data []byte) error {
	v, err := upperString(data)
	*s = Side(v)
	return err
}

type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeStopLimit       OrderType = "STOP_LIMIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLimit, OrderTypeTakeProfitLimit:
		return true
	}
	return false
}

func (t *OrderType) UnmarshalJSON(data []byte) error {
	v, err := upperString(data)
	*t = OrderType(v)
	return err
}

func upperString(data []byte) (string, error) {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(v)), nil
}

// RequiresPrice reports whether the type carries a limit price.
func (t OrderType) RequiresPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit || t == OrderTypeTakeProfitLimit
}

// RequiresStopPrice reports whether the type carries a trigger price.
func (t OrderType) RequiresStopPrice() bool {
	return t == OrderTypeStopLimit || t == OrderTypeTakeProfitLimit
}

// OrderRequest is the raw, unvalidated order built by a UI shell.
type OrderRequest struct {
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Type      OrderType       `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	StopPrice decimal.Decimal `json:"stopPrice"`
}

// NormalizedOrder is an OrderRequest snapped to the symbol's step/tick grid
// and checked against its minimums. Zero Price/StopPrice mean "not sent".
type NormalizedOrder struct {
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stopPrice"`
	ClientOrderID string          `json:"clientOrderId,omitempty"`
}

func (o NormalizedOrder) AsRequest() OrderRequest {
	return OrderRequest{
		Symbol:    o.Symbol,
		Side:      o.Side,
		Type:      o.Type,
		Quantity:  o.Quantity,
		Price:     o.Price,
		StopPrice: o.StopPrice,
	}
}

// Equal compares by value; decimals with different exponents but the same
// value are equal.
func (o NormalizedOrder) Equal(other NormalizedOrder) bool {
	return o.Symbol == other.Symbol &&
		o.Side == other.Side &&
		o.Type == other.Type &&
		o.Quantity.Equal(other.Quantity) &&
		o.Price.Equal(other.Price) &&
		o.StopPrice.Equal(other.StopPrice) &&
		o.ClientOrderID == other.ClientOrderID
}

// Notional is price × quantity for orders that carry a limit price.
func (o NormalizedOrder) Notional() decimal.Decimal {
	return o.Price.Mul(o.Quantity)
}

// PlacedOrder is the gateway's normalized view of an exchange acknowledgement.
type PlacedOrder struct {
	OrderID       string
	ClientOrderID string
	Status        string
	ExecutedQty   decimal.Decimal
	AvgPrice      decimal.Decimal
	UpdateTime    time.Time
	Raw           json.RawMessage
}

// Rejection explains why an order did not reach (or was refused by) the exchange.
type Rejection struct {
	Kind    ErrorKind `json:"kind"`
	Code    int64     `json:"code,omitempty"`
	Message string    `json:"message"`
	Hint    string    `json:"hint,omitempty"`
}

type OrderResult struct {
	Accepted        bool            `json:"accepted"`
	ExchangeOrderID string          `json:"exchangeOrderId,omitempty"`
	ClientOrderID   string          `json:"clientOrderId,omitempty"`
	Status          string          `json:"status"`
	ExecutedQty     decimal.Decimal `json:"executedQty"`
	AvgPrice        decimal.Decimal `json:"avgPrice"`
	Order           NormalizedOrder `json:"order"`
	RawResponse     json.RawMessage `json:"rawResponse,omitempty"`
	Rejection       *Rejection      `json:"rejection,omitempty"`
}

const StatusRejected = "REJECTED"

// AuditEntry is one record per submission attempt.
type AuditEntry struct {
	Time     time.Time
	Request  OrderRequest
	Result   OrderResult
	Attempts int
	Duration time.Duration
}
