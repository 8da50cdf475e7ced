package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSummary is the subset of the futures account the UI shows.
type AccountSummary struct {
	CanTrade  bool           `json:"canTrade"`
	Balances  []AssetBalance `json:"balances"`
	Positions []Position     `json:"positions"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type AssetBalance struct {
	Asset            string          `json:"asset"`
	WalletBalance    decimal.Decimal `json:"walletBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
}

type Position struct {
	Symbol           string          `json:"symbol"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
}

// HealthStatus is computed fresh on every check.
type HealthStatus struct {
	Reachable            bool      `json:"reachable"`
	ClockDriftMs         int64     `json:"clockDriftMs"`
	DriftExceeded        bool      `json:"driftExceeded"`
	HasFuturesPermission bool      `json:"hasFuturesPermission"`
	ErrorKind            ErrorKind `json:"errorKind,omitempty"`
	ErrorDetail          string    `json:"errorDetail,omitempty"`
	CheckedAt            time.Time `json:"checkedAt"`
}

// Healthy is true when orders can be attempted.
func (h HealthStatus) Healthy() bool {
	return h.Reachable && h.HasFuturesPermission && !h.DriftExceeded
}

// Fatal is true when a UI should refuse to place orders at all.
func (h HealthStatus) Fatal() bool {
	return !h.Reachable || h.ErrorKind == KindAuth || !h.HasFuturesPermission
}
