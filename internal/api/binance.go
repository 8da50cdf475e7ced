package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

const (
	TestnetBaseURL = "https://testnet.binancefuture.com"

	defaultTimeout = 10 * time.Second
)

// FuturesClient is the gateway to the USDT-M futures REST API. Every call is
// bounded by timeout and returns errors already classified into the
// model error taxonomy.
type FuturesClient struct {
	client  *futures.Client
	timeout time.Duration
}

func NewFuturesClient(apiKey, secretKey, baseURL string, timeout time.Duration) *FuturesClient {
	if baseURL == "" {
		baseURL = TestnetBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := futures.NewClient(apiKey, secretKey)
	c.BaseURL = baseURL
	c.HTTPClient = &http.Client{Timeout: timeout}

	return &FuturesClient{client: c, timeout: timeout}
}

func (c *FuturesClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// ServerTime returns the exchange clock.
func (c *FuturesClient) ServerTime(ctx context.Context) (time.Time, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ms, err := c.client.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, classify("server_time", "", err)
	}
	return time.UnixMilli(ms), nil
}

// SyncClock stores the local/server offset used to timestamp signed requests.
func (c *FuturesClient) SyncClock(ctx context.Context) (time.Duration, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	offset, err := c.client.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return 0, classify("sync_clock", "", err)
	}

	logger.Info("⏰ Time Synchronized", "offset_ms", offset)
	return time.Duration(offset) * time.Millisecond, nil
}

// ExchangeRules lists the raw trading rules of every futures symbol.
func (c *FuturesClient) ExchangeRules(ctx context.Context) ([]model.SymbolRules, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, classify("exchange_info", "", err)
	}

	rules := make([]model.SymbolRules, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		rules = append(rules, model.SymbolRules{
			Symbol:  s.Symbol,
			Status:  s.Status,
			Filters: s.Filters,
		})
	}
	return rules, nil
}

// Account is a signed, read-only call; it fails with AuthError when the key
// lacks futures permission.
func (c *FuturesClient) Account(ctx context.Context) (*model.AccountSummary, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	acct, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, classify("account", "", err)
	}

	summary := &model.AccountSummary{
		CanTrade:  acct.CanTrade,
		UpdatedAt: time.Now(),
	}
	for _, a := range acct.Assets {
		wallet := parseDecimal(a.WalletBalance)
		if wallet.IsZero() {
			continue
		}
		summary.Balances = append(summary.Balances, model.AssetBalance{
			Asset:            a.Asset,
			WalletBalance:    wallet,
			AvailableBalance: parseDecimal(a.AvailableBalance),
			UnrealizedProfit: parseDecimal(a.UnrealizedProfit),
		})
	}
	for _, p := range acct.Positions {
		amt := parseDecimal(p.PositionAmt)
		if amt.IsZero() {
			continue
		}
		summary.Positions = append(summary.Positions, model.Position{
			Symbol:           p.Symbol,
			PositionAmt:      amt,
			EntryPrice:       parseDecimal(p.EntryPrice),
			UnrealizedProfit: parseDecimal(p.UnrealizedProfit),
		})
	}
	return summary, nil
}

// MarketPrice returns the latest traded price for symbol.
func (c *FuturesClient) MarketPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prices, err := c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, classify("ticker_price", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			return decimal.NewFromString(p.Price)
		}
	}
	return decimal.Zero, &model.SymbolNotFoundError{Symbol: symbol}
}

// PlaceOrder sends a validated order. Prices and quantities are sent in the
// decimal string form of the normalized order.
func (c *FuturesClient) PlaceOrder(ctx context.Context, order model.NormalizedOrder) (*model.PlacedOrder, error) {
	svc := c.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(futures.SideType(order.Side)).
		Quantity(order.Quantity.String())

	if order.ClientOrderID != "" {
		svc.NewClientOrderID(order.ClientOrderID)
	}

	switch order.Type {
	case model.OrderTypeMarket:
		svc.Type(futures.OrderTypeMarket)
	case model.OrderTypeLimit:
		svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(order.Price.String())
	case model.OrderTypeStopLimit:
		svc.Type(futures.OrderTypeStop).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(order.Price.String()).
			StopPrice(order.StopPrice.String())
	case model.OrderTypeTakeProfitLimit:
		svc.Type(futures.OrderTypeTakeProfit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(order.Price.String()).
			StopPrice(order.StopPrice.String())
	default:
		return nil, fmt.Errorf("unsupported order type %q", order.Type)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, classify("place_order", order.Symbol, err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		logger.Warn("Failed to encode order response", "error", err)
	}

	return &model.PlacedOrder{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Status:        string(resp.Status),
		ExecutedQty:   parseDecimal(resp.ExecutedQuantity),
		AvgPrice:      parseDecimal(resp.AvgPrice),
		UpdateTime:    time.UnixMilli(resp.UpdateTime),
		Raw:           raw,
	}, nil
}

// QueryOrder looks an order up by the client order id it was placed with.
// An unknown id fails with an error wrapping model.ErrOrderNotFound.
func (c *FuturesClient) QueryOrder(ctx context.Context, symbol, clientOrderID string) (*model.PlacedOrder, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	o, err := c.client.NewGetOrderService().
		Symbol(symbol).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return nil, classify("query_order", symbol, err)
	}

	raw, err := json.Marshal(o)
	if err != nil {
		logger.Warn("Failed to encode order response", "error", err)
	}

	return &model.PlacedOrder{
		OrderID:       strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Status:        string(o.Status),
		ExecutedQty:   parseDecimal(o.ExecutedQuantity),
		AvgPrice:      parseDecimal(o.AvgPrice),
		UpdateTime:    time.UnixMilli(o.UpdateTime),
		Raw:           raw,
	}, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
