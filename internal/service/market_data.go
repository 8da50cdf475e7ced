package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

// PriceFetcher is the REST fallback for symbols without a fresh streamed price.
type PriceFetcher interface {
	MarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceService keeps the latest price per symbol, fed by the mark price
// stream, and falls back to REST when the cached value is missing or stale.
type PriceService struct {
	fetcher PriceFetcher
	maxAge  time.Duration

	mu     sync.RWMutex
	prices map[string]model.MarkPrice

	now func() time.Time
}

func NewPriceService(fetcher PriceFetcher, maxAge time.Duration) *PriceService {
	return &PriceService{
		fetcher: fetcher,
		maxAge:  maxAge,
		prices:  make(map[string]model.MarkPrice),
		now:     time.Now,
	}
}

// Update stores p if it is newer than what is cached.
func (s *PriceService) Update(p model.MarkPrice) {
	p.Symbol = model.NormalizeSymbol(p.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.prices[p.Symbol]; ok && cur.Time.After(p.Time) {
		return
	}
	s.prices[p.Symbol] = p
}

func (s *PriceService) Latest(symbol string) (model.MarkPrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[model.NormalizeSymbol(symbol)]
	return p, ok
}

// Price returns a price no older than maxAge, fetching one if needed.
func (s *PriceService) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = model.NormalizeSymbol(symbol)

	if p, ok := s.Latest(symbol); ok && s.now().Sub(p.Time) <= s.maxAge {
		return p.Price, nil
	}

	price, err := s.fetcher.MarketPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	logger.Debug("Price fetched over REST", "symbol", symbol, "price", price.String())
	s.Update(model.MarkPrice{Symbol: symbol, Price: price, Time: s.now()})
	return price, nil
}
