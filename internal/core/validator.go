package core

import (
	"fmt"

	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/model"
)

// triggerRule is the required ordering of limit price, stop price and market
// price for one order type and side.
type triggerRule struct {
	limitAtOrAboveStop bool // otherwise limit at or below stop
	stopAboveMarket    bool // otherwise stop below market
}

// triggerRules:
//
//	STOP_LIMIT         BUY   price >= stop   stop > market
//	STOP_LIMIT         SELL  price <= stop   stop < market
//	TAKE_PROFIT_LIMIT  BUY   price >= stop   stop < market
//	TAKE_PROFIT_LIMIT  SELL  price <= stop   stop > market
var triggerRules = map[model.OrderType]map[model.Side]triggerRule{
	model.OrderTypeStopLimit: {
		model.SideBuy:  {limitAtOrAboveStop: true, stopAboveMarket: true},
		model.SideSell: {limitAtOrAboveStop: false, stopAboveMarket: false},
	},
	model.OrderTypeTakeProfitLimit: {
		model.SideBuy:  {limitAtOrAboveStop: true, stopAboveMarket: false},
		model.SideSell: {limitAtOrAboveStop: false, stopAboveMarket: true},
	},
}

// FloorToStep rounds v down to the nearest multiple of step using exact
// decimal arithmetic. A non-positive step leaves v unchanged.
func FloorToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	q, _ := v.QuoRem(step, 0)
	if v.IsNegative() && !q.Mul(step).Equal(v) {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.Mul(step)
}

// CeilToStep rounds v up to the nearest multiple of step.
func CeilToStep(v, step decimal.Decimal) decimal.Decimal {
	floor := FloorToStep(v, step)
	if floor.Equal(v) || !step.IsPositive() {
		return floor
	}
	return floor.Add(step)
}

// Validate normalizes req against filter without market-price context.
func Validate(req model.OrderRequest, filter model.SymbolFilter) (model.NormalizedOrder, error) {
	return ValidateAt(req, filter, decimal.Zero)
}

// ValidateAt normalizes req against filter. marketPrice is used for the
// notional check of MARKET orders and for trigger sanity checks; zero means
// unknown and skips those checks. The filter is never modified.
func ValidateAt(req model.OrderRequest, filter model.SymbolFilter, marketPrice decimal.Decimal) (model.NormalizedOrder, error) {
	if err := CheckFields(req); err != nil {
		return model.NormalizedOrder{}, err
	}

	symbol := model.NormalizeSymbol(req.Symbol)
	if filter.Symbol != "" && filter.Symbol != symbol {
		return model.NormalizedOrder{}, fmt.Errorf("filter for %s used to validate %s", filter.Symbol, symbol)
	}

	order := model.NormalizedOrder{
		Symbol: symbol,
		Side:   req.Side,
		Type:   req.Type,
	}

	step, minQty := filter.LotSize(req.Type)
	order.Quantity = FloorToStep(req.Quantity, step)
	if !order.Quantity.IsPositive() || order.Quantity.LessThan(minQty) {
		return order, model.NewValidationError(model.KindBelowMinimumQuantity, "quantity",
			"%s rounded to %s (step %s) is below minimum %s",
			req.Quantity, order.Quantity, step, minQty)
	}

	if req.Type.RequiresPrice() {
		order.Price = FloorToStep(req.Price, filter.TickSize)
		if !order.Price.IsPositive() {
			return order, model.NewValidationError(model.KindInvalidPrice, "price",
				"%s rounded to %s (tick %s) is not positive", req.Price, order.Price, filter.TickSize)
		}
	}
	if req.Type.RequiresStopPrice() {
		order.StopPrice = FloorToStep(req.StopPrice, filter.TickSize)
		if !order.StopPrice.IsPositive() {
			return order, model.NewValidationError(model.KindInvalidPrice, "stopPrice",
				"%s rounded to %s (tick %s) is not positive", req.StopPrice, order.StopPrice, filter.TickSize)
		}
	}

	if err := checkNotional(order, filter, marketPrice); err != nil {
		return order, err
	}
	if err := checkTrigger(order, marketPrice); err != nil {
		return order, err
	}
	return order, nil
}

// CheckFields rejects requests with missing or non-positive required fields.
// It needs no symbol rules, so callers can run it before any network call.
func CheckFields(req model.OrderRequest) error {
	if model.NormalizeSymbol(req.Symbol) == "" {
		return model.NewValidationError(model.KindMissingField, "symbol", "is required")
	}
	if !req.Side.Valid() {
		return model.NewValidationError(model.KindMissingField, "side", "must be BUY or SELL, got %q", req.Side)
	}
	if !req.Type.Valid() {
		return model.NewValidationError(model.KindMissingField, "type",
			"must be MARKET, LIMIT, STOP_LIMIT or TAKE_PROFIT_LIMIT, got %q", req.Type)
	}
	if !req.Quantity.IsPositive() {
		return model.NewValidationError(model.KindMissingField, "quantity", "must be greater than 0, got %s", req.Quantity)
	}
	if req.Type.RequiresPrice() && !req.Price.IsPositive() {
		return model.NewValidationError(model.KindMissingField, "price", "is required for %s orders", req.Type)
	}
	if req.Type.RequiresStopPrice() && !req.StopPrice.IsPositive() {
		return model.NewValidationError(model.KindMissingField, "stopPrice", "is required for %s orders", req.Type)
	}
	return nil
}

func checkNotional(order model.NormalizedOrder, filter model.SymbolFilter, marketPrice decimal.Decimal) error {
	if !filter.MinNotional.IsPositive() {
		return nil
	}

	price, notional := order.Price, order.Notional()
	if order.Type == model.OrderTypeMarket {
		price, notional = marketPrice, marketPrice.Mul(order.Quantity)
	}
	if !price.IsPositive() || notional.GreaterThanOrEqual(filter.MinNotional) {
		return nil
	}

	step, _ := filter.LotSize(order.Type)
	needed := CeilToStep(filter.MinNotional.Div(price), step)
	return model.NewValidationError(model.KindBelowMinimumNotional, "quantity",
		"notional %s (%s x %s) is below minimum %s; quantity %s would pass",
		notional, order.Quantity, price, filter.MinNotional, needed)
}

func checkTrigger(order model.NormalizedOrder, marketPrice decimal.Decimal) error {
	rule, ok := triggerRules[order.Type][order.Side]
	if !ok {
		return nil
	}

	if rule.limitAtOrAboveStop && order.Price.LessThan(order.StopPrice) {
		return model.NewValidationError(model.KindInvalidPrice, "price",
			"%s must be at or above stopPrice %s for %s %s", order.Price, order.StopPrice, order.Side, order.Type)
	}
	if !rule.limitAtOrAboveStop && order.Price.GreaterThan(order.StopPrice) {
		return model.NewValidationError(model.KindInvalidPrice, "price",
			"%s must be at or below stopPrice %s for %s %s", order.Price, order.StopPrice, order.Side, order.Type)
	}

	if !marketPrice.IsPositive() {
		return nil
	}
	if rule.stopAboveMarket && !order.StopPrice.GreaterThan(marketPrice) {
		return model.NewValidationError(model.KindInvalidPrice, "stopPrice",
			"%s must be above market price %s for %s %s", order.StopPrice, marketPrice, order.Side, order.Type)
	}
	if !rule.stopAboveMarket && !order.StopPrice.LessThan(marketPrice) {
		return model.NewValidationError(model.KindInvalidPrice, "stopPrice",
			"%s must be below market price %s for %s %s", order.StopPrice, marketPrice, order.Side, order.Type)
	}
	return nil
}
