package repository

import (
	"context"
	"sync"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

// AccountSource fetches a fresh account snapshot from the exchange.
type AccountSource interface {
	Account(ctx context.Context) (*model.AccountSummary, error)
}

// AccountRepository caches the last account snapshot for display. It is
// read-only exchange state, replaced wholesale on every Sync.
type AccountRepository struct {
	source AccountSource

	mu       sync.RWMutex
	snapshot *model.AccountSummary
}

func NewAccountRepository(source AccountSource) *AccountRepository {
	return &AccountRepository{source: source}
}

// Sync replaces the cached snapshot. On error the previous one is kept.
func (r *AccountRepository) Sync(ctx context.Context) error {
	acct, err := r.source.Account(ctx)
	if err != nil {
		logger.Warn("Failed to refresh account snapshot", "error", err)
		return err
	}

	r.mu.Lock()
	r.snapshot = acct
	r.mu.Unlock()

	logger.Debug("Account snapshot refreshed", "balances", len(acct.Balances), "positions", len(acct.Positions))
	return nil
}

// Get returns a copy of the cached snapshot.
func (r *AccountRepository) Get() (model.AccountSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return model.AccountSummary{}, false
	}

	out := *r.snapshot
	out.Balances = append([]model.AssetBalance(nil), r.snapshot.Balances...)
	out.Positions = append([]model.Position(nil), r.snapshot.Positions...)
	return out, true
}
