package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/model"
)

// fakeExchange scripts gateway responses. placeErrs are returned in order
// before a successful placement.
type fakeExchange struct {
	mu sync.Mutex

	serverTime time.Time
	timeErr    error

	account    *model.AccountSummary
	accountErr error

	placeErrs []error
	placed    []model.NormalizedOrder

	// orders on the exchange by client order id, for QueryOrder
	existing map[string]*model.PlacedOrder
	queryErr error
	queries  int

	rules    []model.SymbolRules
	price    decimal.Decimal
	priceErr error

	syncCalls int
	syncErr   error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		serverTime: time.Now(),
		account:    &model.AccountSummary{CanTrade: true},
		rules: []model.SymbolRules{{
			Symbol: "BTCUSDT",
			Status: model.SymbolStatusTrading,
			Filters: []map[string]interface{}{
				{"filterType": "PRICE_FILTER", "tickSize": "0.1"},
				{"filterType": "LOT_SIZE", "stepSize": "0.001", "minQty": "0.001"},
				{"filterType": "MIN_NOTIONAL", "notional": "5"},
			},
		}},
	}
}

func (f *fakeExchange) ServerTime(ctx context.Context) (time.Time, error) {
	return f.serverTime, f.timeErr
}

func (f *fakeExchange) Account(ctx context.Context) (*model.AccountSummary, error) {
	return f.account, f.accountErr
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, order model.NormalizedOrder) (*model.PlacedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.placed = append(f.placed, order)
	if len(f.placeErrs) > 0 {
		err := f.placeErrs[0]
		f.placeErrs = f.placeErrs[1:]
		return nil, err
	}
	return &model.PlacedOrder{
		OrderID:       "9001",
		ClientOrderID: order.ClientOrderID,
		Status:        "NEW",
		ExecutedQty:   decimal.Zero,
		Raw:           []byte(`{"orderId":9001}`),
	}, nil
}

func (f *fakeExchange) QueryOrder(ctx context.Context, symbol, clientOrderID string) (*model.PlacedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if o, ok := f.existing[clientOrderID]; ok {
		return o, nil
	}
	return nil, &model.ExchangeRejectedError{Code: -2013, Message: "Order does not exist.", Cause: model.ErrOrderNotFound}
}

func (f *fakeExchange) ExchangeRules(ctx context.Context) ([]model.SymbolRules, error) {
	return f.rules, nil
}

func (f *fakeExchange) MarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f.price, f.priceErr
}

func (f *fakeExchange) SyncClock(ctx context.Context) (time.Duration, error) {
	f.syncCalls++
	return 10 * time.Second, f.syncErr
}

func (f *fakeExchange) placements() []model.NormalizedOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NormalizedOrder(nil), f.placed...)
}

type staticFilters struct {
	filter model.SymbolFilter
	err    error
	calls  int
}

func (s *staticFilters) Filter(ctx context.Context, symbol string) (model.SymbolFilter, error) {
	s.calls++
	return s.filter, s.err
}

type staticPrice struct {
	price decimal.Decimal
	err   error
}

func (s staticPrice) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.price, s.err
}

type captureRecorder struct {
	entries []model.AuditEntry
	err     error
}

func (c *captureRecorder) Record(ctx context.Context, entry model.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return c.err
}

var errConnReset = errors.New("connection reset by peer")

var errDuplicateID = &model.ExchangeRejectedError{Code: -4116, Message: "ClientOrderId is duplicated.", Cause: model.ErrDuplicateClientOrderID}
