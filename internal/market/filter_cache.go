package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

// RulesSource lists the exchange's per-symbol trading rules.
type RulesSource interface {
	ExchangeRules(ctx context.Context) ([]model.SymbolRules, error)
}

// FilterCache memoizes symbol filters for the life of the process. Entries
// change only through Refresh or Invalidate.
type FilterCache struct {
	source RulesSource

	mu      sync.RWMutex
	filters map[string]model.SymbolFilter

	group singleflight.Group
}

func NewFilterCache(source RulesSource) *FilterCache {
	return &FilterCache{
		source:  source,
		filters: make(map[string]model.SymbolFilter),
	}
}

// Filter returns the cached filter for symbol, fetching it on a miss.
// Concurrent misses for the same symbol share one fetch.
func (c *FilterCache) Filter(ctx context.Context, symbol string) (model.SymbolFilter, error) {
	symbol = model.NormalizeSymbol(symbol)

	c.mu.RLock()
	f, ok := c.filters[symbol]
	c.mu.RUnlock()
	if ok {
		return f, nil
	}

	return c.load(ctx, symbol)
}

// Refresh refetches the rules for symbol and replaces the cached entry.
// The old entry is kept if the fetch fails.
func (c *FilterCache) Refresh(ctx context.Context, symbol string) (model.SymbolFilter, error) {
	return c.load(ctx, model.NormalizeSymbol(symbol))
}

// Invalidate drops symbol so the next Filter call refetches it.
func (c *FilterCache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.filters, model.NormalizeSymbol(symbol))
	c.mu.Unlock()
}

func (c *FilterCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filters)
}

func (c *FilterCache) load(ctx context.Context, symbol string) (model.SymbolFilter, error) {
	if symbol == "" {
		return model.SymbolFilter{}, &model.SymbolNotFoundError{Symbol: symbol}
	}

	// shared fetch, detached from any one caller's cancellation
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(symbol, func() (interface{}, error) {
		rules, err := c.source.ExchangeRules(fetchCtx)
		if err != nil {
			return nil, err
		}

		f, err := filterFor(symbol, rules)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.filters[symbol] = f
		c.mu.Unlock()

		logger.Info("📐 Symbol filter cached",
			"symbol", symbol,
			"tick_size", f.TickSize.String(),
			"step_size", f.StepSize.String(),
			"min_qty", f.MinQty.String(),
			"min_notional", f.MinNotional.String(),
		)
		return f, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return model.SymbolFilter{}, res.Err
		}
		return res.Val.(model.SymbolFilter), nil
	case <-ctx.Done():
		return model.SymbolFilter{}, model.NewFatalNetworkError("exchange_info", ctx.Err())
	}
}

func filterFor(symbol string, rules []model.SymbolRules) (model.SymbolFilter, error) {
	for _, r := range rules {
		if model.NormalizeSymbol(r.Symbol) != symbol {
			continue
		}
		if r.Status != "" && r.Status != model.SymbolStatusTrading {
			return model.SymbolFilter{}, &model.SymbolNotFoundError{Symbol: symbol}
		}
		return ParseFilter(symbol, r.Filters)
	}
	return model.SymbolFilter{}, &model.SymbolNotFoundError{Symbol: symbol}
}

// ParseFilter extracts tick size, step size, minimum quantity and minimum
// notional from a raw exchange filter list.
func ParseFilter(symbol string, filters []map[string]interface{}) (model.SymbolFilter, error) {
	f := model.SymbolFilter{Symbol: symbol}
	var hasPrice, hasLot bool

	for _, raw := range filters {
		filterType, _ := raw["filterType"].(string)
		switch filterType {
		case model.FilterTypePrice:
			f.TickSize, hasPrice = decimalField(raw, "tickSize")
		case model.FilterTypeLotSize:
			var okStep, okMin bool
			f.StepSize, okStep = decimalField(raw, "stepSize")
			f.MinQty, okMin = decimalField(raw, "minQty")
			hasLot = okStep && okMin
		case model.FilterTypeMarketLot:
			f.MarketStepSize, _ = decimalField(raw, "stepSize")
			f.MarketMinQty, _ = decimalField(raw, "minQty")
		case model.FilterTypeMinNotional:
			// futures publishes "notional", spot "minNotional"
			if v, ok := decimalField(raw, "notional"); ok {
				f.MinNotional = v
			} else if v, ok := decimalField(raw, "minNotional"); ok {
				f.MinNotional = v
			}
		}
	}

	if !hasPrice {
		return f, fmt.Errorf("symbol %s: %s filter missing", symbol, model.FilterTypePrice)
	}
	if !hasLot {
		return f, fmt.Errorf("symbol %s: %s filter missing", symbol, model.FilterTypeLotSize)
	}
	if !f.TickSize.IsPositive() || !f.StepSize.IsPositive() {
		return f, fmt.Errorf("symbol %s: non-positive tick size %s or step size %s", symbol, f.TickSize, f.StepSize)
	}
	if f.MarketStepSize.IsNegative() || f.MarketMinQty.IsNegative() {
		return f, fmt.Errorf("symbol %s: negative %s values", symbol, model.FilterTypeMarketLot)
	}
	if f.MinQty.IsNegative() || f.MinNotional.IsNegative() {
		return f, fmt.Errorf("symbol %s: negative minimums", symbol)
	}
	return f, nil
}

func decimalField(raw map[string]interface{}, key string) (decimal.Decimal, bool) {
	switch v := raw[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	}
	return decimal.Zero, false
}
