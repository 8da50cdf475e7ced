package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Filter types reported by /fapi/v1/exchangeInfo
const (
	FilterTypePrice       = "PRICE_FILTER"
	FilterTypeLotSize     = "LOT_SIZE"
	FilterTypeMarketLot   = "MARKET_LOT_SIZE"
	FilterTypeMinNotional = "MIN_NOTIONAL"

	SymbolStatusTrading = "TRADING"
)

// SymbolRules is the raw rule set the exchange publishes for one symbol.
type SymbolRules struct {
	Symbol  string
	Status  string
	Filters []map[string]interface{}
}

// SymbolFilter holds the trading constraints used to validate orders.
// MarketStepSize and MarketMinQty are zero when the symbol publishes no
// MARKET_LOT_SIZE filter.
type SymbolFilter struct {
	Symbol         string          `json:"symbol"`
	TickSize       decimal.Decimal `json:"tickSize"`       // PRICE_FILTER
	StepSize       decimal.Decimal `json:"stepSize"`       // LOT_SIZE
	MinQty         decimal.Decimal `json:"minQty"`         // LOT_SIZE
	MarketStepSize decimal.Decimal `json:"marketStepSize"` // MARKET_LOT_SIZE
	MarketMinQty   decimal.Decimal `json:"marketMinQty"`   // MARKET_LOT_SIZE
	MinNotional    decimal.Decimal `json:"minNotional"`    // MIN_NOTIONAL
}

// LotSize returns the quantity step and minimum that apply to orders of
// type t. MARKET orders use MARKET_LOT_SIZE when the symbol has one.
func (f SymbolFilter) LotSize(t OrderType) (step, minQty decimal.Decimal) {
	if t == OrderTypeMarket && f.MarketStepSize.IsPositive() {
		return f.MarketStepSize, f.MarketMinQty
	}
	return f.StepSize, f.MinQty
}

// NormalizeSymbol returns the cache/wire form of a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
