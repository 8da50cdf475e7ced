package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

// RetryPolicy bounds retries of transport failures.
type RetryPolicy struct {
	MaxRetries int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// reconcileTimeout bounds the lookup of an order whose placement outcome
// is unknown.
const reconcileTimeout = 15 * time.Second

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BackoffMin: 200 * time.Millisecond, BackoffMax: 2 * time.Second}
}

// Submitter turns an OrderRequest into an OrderResult: filter lookup,
// validation, placement with bounded retry, audit.
type Submitter struct {
	exchange  Exchange
	filters   FilterSource
	prices    PriceSource
	recorders []Recorder
	policy    RetryPolicy

	newClientID func() string
	now         func() time.Time
}

// NewSubmitter wires the collaborators. prices may be nil, in which case
// market-price dependent checks are skipped.
func NewSubmitter(exchange Exchange, filters FilterSource, prices PriceSource, policy RetryPolicy, recorders ...Recorder) *Submitter {
	return &Submitter{
		exchange:    exchange,
		filters:     filters,
		prices:      prices,
		recorders:   recorders,
		policy:      policy,
		newClientID: uuid.NewString,
		now:         time.Now,
	}
}

// Submit never returns an error; every failure is a rejected OrderResult.
// Each call produces exactly one audit entry.
func (s *Submitter) Submit(ctx context.Context, req model.OrderRequest) model.OrderResult {
	start := s.now()
	result, attempts := s.submit(ctx, req)

	s.record(ctx, model.AuditEntry{
		Time:     start,
		Request:  req,
		Result:   result,
		Attempts: attempts,
		Duration: s.now().Sub(start),
	})
	return result
}

// DryRun validates req exactly as Submit would, without placing it.
func (s *Submitter) DryRun(ctx context.Context, req model.OrderRequest) (model.NormalizedOrder, *model.Rejection) {
	order, err := s.prepare(ctx, req)
	return order, model.RejectionFrom(err)
}

func (s *Submitter) submit(ctx context.Context, req model.OrderRequest) (model.OrderResult, int) {
	order, err := s.prepare(ctx, req)
	if err != nil {
		logger.Warn("🚫 Order rejected before submission", "symbol", req.Symbol, "type", req.Type, "error", err)
		return rejected(order, err), 0
	}

	order.ClientOrderID = s.newClientID()

	var placed *model.PlacedOrder
	attempts, err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		placed, err = s.exchange.PlaceOrder(ctx, order)
		return err
	})
	if err != nil && outcomeUnknown(err, attempts) {
		placed, err = s.reconcile(ctx, order, err)
	}
	if err != nil {
		logger.Error("❌ Order failed",
			"symbol", order.Symbol,
			"type", order.Type,
			"client_order_id", order.ClientOrderID,
			"attempts", attempts,
			"error", err,
		)
		return rejected(order, err), attempts
	}

	logger.Info("✅ Order accepted",
		"symbol", order.Symbol,
		"side", order.Side,
		"type", order.Type,
		"qty", order.Quantity.String(),
		"order_id", placed.OrderID,
		"status", placed.Status,
	)
	return accepted(order, placed), attempts
}

// prepare resolves the filter and market context and validates.
func (s *Submitter) prepare(ctx context.Context, req model.OrderRequest) (model.NormalizedOrder, error) {
	if err := CheckFields(req); err != nil {
		return model.NormalizedOrder{}, err
	}

	var filter model.SymbolFilter
	if _, err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		filter, err = s.filters.Filter(ctx, req.Symbol)
		return err
	}); err != nil {
		return model.NormalizedOrder{}, err
	}

	marketPrice, err := s.marketPrice(ctx, req, filter)
	if err != nil {
		return model.NormalizedOrder{}, err
	}

	return ValidateAt(req, filter, marketPrice)
}

// marketPrice is needed for MARKET notional checks, where a failed lookup
// rejects the order, and for trigger checks, where it only skips them.
func (s *Submitter) marketPrice(ctx context.Context, req model.OrderRequest, filter model.SymbolFilter) (decimal.Decimal, error) {
	if s.prices == nil {
		return decimal.Zero, nil
	}

	needed := req.Type == model.OrderTypeMarket && filter.MinNotional.IsPositive()
	optional := req.Type.RequiresStopPrice()
	if !needed && !optional {
		return decimal.Zero, nil
	}

	var price decimal.Decimal
	_, err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		price, err = s.prices.Price(ctx, filter.Symbol)
		return err
	})
	if err == nil {
		return price, nil
	}
	if needed {
		return decimal.Zero, err
	}

	logger.Warn("Market price unavailable, skipping trigger check", "symbol", filter.Symbol, "error", err)
	return decimal.Zero, nil
}

// retry runs op until it succeeds, fails with a non-retriable error, or the
// policy is exhausted. It returns the number of attempts made.
func (s *Submitter) retry(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	b := &backoff.Backoff{
		Min:    s.policy.BackoffMin,
		Max:    s.policy.BackoffMax,
		Factor: 2,
		Jitter: true,
	}

	attempt := 0
	for {
		attempt++
		err := op(ctx)
		if err == nil || !model.IsRetriable(err) || attempt > s.policy.MaxRetries {
			return attempt, err
		}

		wait := b.Duration()
		logger.Warn("🔁 Network error, retrying", "attempt", attempt, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		}
	}
}

// outcomeUnknown reports whether a failed placement may still have reached
// the exchange: a transport failure, or a duplicate id after a retry.
func outcomeUnknown(err error, attempts int) bool {
	if model.KindOf(err) == model.KindNetwork {
		return true
	}
	return attempts > 1 && errors.Is(err, model.ErrDuplicateClientOrderID)
}

// reconcile looks the order up by its client order id and returns what the
// exchange reports. placeErr is returned when the order does not exist.
func (s *Submitter) reconcile(ctx context.Context, order model.NormalizedOrder, placeErr error) (*model.PlacedOrder, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()

	var placed *model.PlacedOrder
	_, err := s.retry(ctx, func(ctx context.Context) error {
		var err error
		placed, err = s.exchange.QueryOrder(ctx, order.Symbol, order.ClientOrderID)
		return err
	})
	switch {
	case err == nil:
		logger.Warn("🔎 Order found on exchange after uncertain placement",
			"symbol", order.Symbol,
			"client_order_id", order.ClientOrderID,
			"order_id", placed.OrderID,
			"status", placed.Status,
			"place_error", placeErr,
		)
		return placed, nil
	case errors.Is(err, model.ErrOrderNotFound):
		return nil, placeErr
	}

	logger.Error("❌ Order status unknown",
		"symbol", order.Symbol,
		"client_order_id", order.ClientOrderID,
		"place_error", placeErr,
		"lookup_error", err,
	)
	return nil, fmt.Errorf("order status unknown, look up client order id %s before resubmitting: %w", order.ClientOrderID, placeErr)
}

func (s *Submitter) record(ctx context.Context, entry model.AuditEntry) {
	// the audit trail is written even if the caller went away
	ctx = context.WithoutCancel(ctx)
	for _, r := range s.recorders {
		if err := r.Record(ctx, entry); err != nil {
			logger.Error("Failed to record order attempt", "error", err)
		}
	}
}

func accepted(order model.NormalizedOrder, placed *model.PlacedOrder) model.OrderResult {
	clientID := placed.ClientOrderID
	if clientID == "" {
		clientID = order.ClientOrderID
	}
	return model.OrderResult{
		Accepted:        true,
		ExchangeOrderID: placed.OrderID,
		ClientOrderID:   clientID,
		Status:          placed.Status,
		ExecutedQty:     placed.ExecutedQty,
		AvgPrice:        placed.AvgPrice,
		Order:           order,
		RawResponse:     placed.Raw,
	}
}

func rejected(order model.NormalizedOrder, err error) model.OrderResult {
	return model.OrderResult{
		ClientOrderID: order.ClientOrderID,
		Status:        model.StatusRejected,
		Order:         order,
		Rejection:     model.RejectionFrom(err),
	}
}
