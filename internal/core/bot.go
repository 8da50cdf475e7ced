package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/config"
	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/market"
	"futures-testnet-bot/internal/metrics"
	"futures-testnet-bot/internal/model"
	"futures-testnet-bot/internal/repository"
	"futures-testnet-bot/internal/service"
)

// Exchange is the part of the gateway the core places orders through.
type Exchange interface {
	ServerTime(ctx context.Context) (time.Time, error)
	Account(ctx context.Context) (*model.AccountSummary, error)
	PlaceOrder(ctx context.Context, order model.NormalizedOrder) (*model.PlacedOrder, error)
	QueryOrder(ctx context.Context, symbol, clientOrderID string) (*model.PlacedOrder, error)
}

// Gateway is the full exchange surface the bot needs.
type Gateway interface {
	Exchange
	market.RulesSource
	service.PriceFetcher
	SyncClock(ctx context.Context) (time.Duration, error)
}

type FilterSource interface {
	Filter(ctx context.Context, symbol string) (model.SymbolFilter, error)
}

type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Recorder receives one entry per Submit call.
type Recorder interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// Bot is the process-wide context: one instance per set of credentials,
// built by the entry point and passed to the UI layers.
type Bot struct {
	Cfg       *config.Config
	Gateway   Gateway
	Filters   *market.FilterCache
	Health    *HealthChecker
	Submitter *Submitter
	Prices    *service.PriceService
	Stream    *service.MarkPriceStream
	Accounts  *repository.AccountRepository
	Metrics   *metrics.Tracker
}

func NewBot(cfg *config.Config, gateway Gateway, tracker *metrics.Tracker, recorders ...Recorder) *Bot {
	prices := service.NewPriceService(gateway, cfg.Prices.MaxAge)
	filters := market.NewFilterCache(gateway)

	policy := RetryPolicy{
		MaxRetries: cfg.Submit.MaxRetries,
		BackoffMin: cfg.Submit.BackoffMin,
		BackoffMax: cfg.Submit.BackoffMax,
	}
	if tracker != nil {
		recorders = append(recorders, tracker)
	}

	return &Bot{
		Cfg:       cfg,
		Gateway:   gateway,
		Filters:   filters,
		Health:    NewHealthChecker(gateway, cfg.Health.MaxClockDrift),
		Submitter: NewSubmitter(gateway, filters, prices, policy, recorders...),
		Prices:    prices,
		Stream:    service.NewMarkPriceStream(cfg.Exchange.StreamURL, cfg.Prices.Symbols, prices),
		Accounts:  repository.NewAccountRepository(gateway),
		Metrics:   tracker,
	}
}

func (b *Bot) Submit(ctx context.Context, req model.OrderRequest) model.OrderResult {
	return b.Submitter.Submit(ctx, req)
}

func (b *Bot) Validate(ctx context.Context, req model.OrderRequest) (model.NormalizedOrder, *model.Rejection) {
	return b.Submitter.DryRun(ctx, req)
}

func (b *Bot) CheckHealth(ctx context.Context) model.HealthStatus {
	status := b.Health.Check(ctx)
	b.Metrics.ObserveHealth(status)
	return status
}

func (b *Bot) Filter(ctx context.Context, symbol string) (model.SymbolFilter, error) {
	return b.Filters.Filter(ctx, symbol)
}

func (b *Bot) RefreshFilter(ctx context.Context, symbol string) (model.SymbolFilter, error) {
	return b.Filters.Refresh(ctx, symbol)
}

func (b *Bot) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return b.Prices.Price(ctx, symbol)
}

func (b *Bot) Account() (model.AccountSummary, bool) {
	return b.Accounts.Get()
}

// Preflight runs the health check and applies the startup policy: an
// unreachable exchange or unusable credentials are fatal, excessive clock
// drift is corrected by resynchronizing the request timestamp offset.
func (b *Bot) Preflight(ctx context.Context) (model.HealthStatus, error) {
	status := b.CheckHealth(ctx)
	if status.Fatal() {
		return status, fmt.Errorf("pre-flight check failed: %s", status.ErrorDetail)
	}

	if status.DriftExceeded {
		offset, err := b.Gateway.SyncClock(ctx)
		if err != nil {
			return status, fmt.Errorf("clock drift %dms and time sync failed: %w", status.ClockDriftMs, err)
		}
		logger.Warn("⏰ Clock drift corrected by time sync", "drift_ms", status.ClockDriftMs, "offset_ms", offset.Milliseconds())
	}
	return status, nil
}

// Run keeps the price stream and the account snapshot fresh until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context) {
	logger.Info("Starting Bot loop", "price_symbols", b.Cfg.Prices.Symbols)

	go b.Stream.Run(ctx)

	_ = b.Accounts.Sync(ctx)

	ticker := time.NewTicker(b.Cfg.Account.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot loop stopped")
			return
		case <-ticker.C:
			_ = b.Accounts.Sync(ctx)
		}
	}
}
