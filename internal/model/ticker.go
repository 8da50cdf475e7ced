package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarkPrice is a price observation for one symbol.
type MarkPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}
