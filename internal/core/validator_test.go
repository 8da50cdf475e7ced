package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures-testnet-bot/internal/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func btcFilter() model.SymbolFilter {
	return model.SymbolFilter{
		Symbol:      "BTCUSDT",
		TickSize:    d("0.1"),
		StepSize:    d("0.001"),
		MinQty:      d("0.001"),
		MinNotional: d("5"),
	}
}

func requireKind(t *testing.T, err error, kind model.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, model.KindOf(err), err.Error())
}

func TestFloorToStepProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	steps := []decimal.Decimal{d("0.001"), d("0.1"), d("0.5"), d("1"), d("0.00000001"), d("25")}

	for i := 0; i < 2000; i++ {
		v := decimal.New(rng.Int63n(1_000_000_000), -int32(rng.Intn(9)))
		step := steps[rng.Intn(len(steps))]

		got := FloorToStep(v, step)

		_, rem := got.QuoRem(step, 0)
		assert.True(t, rem.IsZero(), "%s not a multiple of %s", got, step)
		assert.True(t, got.LessThanOrEqual(v), "%s > %s", got, v)
		assert.True(t, v.Sub(got).LessThan(step), "%s - %s >= %s", v, got, step)
	}
}

func TestFloorToStepIsExact(t *testing.T) {
	testCases := []struct {
		v, step, want string
	}{
		{"0.0015", "0.001", "0.001"},
		{"50000.07", "0.1", "50000"},
		{"0.3", "0.1", "0.3"},
		{"0.0005", "0.001", "0"},
		{"123.456789", "0.00001", "123.45678"},
		{"-0.15", "0.1", "-0.2"},
	}

	for _, tc := range testCases {
		got := FloorToStep(d(tc.v), d(tc.step))
		assert.True(t, got.Equal(d(tc.want)), "floor(%s, %s) = %s, want %s", tc.v, tc.step, got, tc.want)
	}
	assert.Equal(t, "0.3", CeilToStep(d("0.21"), d("0.1")).String())
	assert.Equal(t, "0.2", CeilToStep(d("0.2"), d("0.1")).String())
}

func TestMarketOrderNotional(t *testing.T) {
	req := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket, Quantity: d("0.0015")}

	order, err := ValidateAt(req, btcFilter(), d("60000"))
	require.NoError(t, err)
	assert.Equal(t, "0.001", order.Quantity.String())
	assert.True(t, order.Price.IsZero())

	_, err = ValidateAt(req, btcFilter(), d("4000"))
	requireKind(t, err, model.KindBelowMinimumNotional)
	assert.ErrorIs(t, err, model.ErrBelowMinimumNotional)
	assert.Contains(t, err.Error(), "quantity 0.002 would pass")

	// unknown market price skips the notional check
	order, err = Validate(req, btcFilter())
	require.NoError(t, err)
	assert.Equal(t, "0.001", order.Quantity.String())
}

func TestMarketOrdersUseMarketLotSize(t *testing.T) {
	filter := btcFilter()
	filter.MarketStepSize = d("0.01")
	filter.MarketMinQty = d("0.01")

	market := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket, Quantity: d("0.0159")}
	order, err := ValidateAt(market, filter, d("60000"))
	require.NoError(t, err)
	assert.Equal(t, "0.01", order.Quantity.String())

	market.Quantity = d("0.009")
	_, err = ValidateAt(market, filter, d("60000"))
	requireKind(t, err, model.KindBelowMinimumQuantity)
	assert.Contains(t, err.Error(), "(step 0.01) is below minimum 0.01")

	// limit orders keep LOT_SIZE
	limit := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("0.0159"), Price: d("60000")}
	order, err = Validate(limit, filter)
	require.NoError(t, err)
	assert.Equal(t, "0.015", order.Quantity.String())
}

func TestQuantityRoundingToZeroIsRejected(t *testing.T) {
	req := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideSell, Type: model.OrderTypeLimit, Quantity: d("0.0005"), Price: d("60000")}

	_, err := Validate(req, btcFilter())
	requireKind(t, err, model.KindBelowMinimumQuantity)
	assert.ErrorIs(t, err, model.ErrBelowMinimumQuantity)
	assert.Contains(t, err.Error(), "rounded to 0")
}

func TestQuantityBelowMinQty(t *testing.T) {
	filter := btcFilter()
	filter.MinQty = d("0.01")
	req := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("0.0099"), Price: d("60000")}

	_, err := Validate(req, filter)
	requireKind(t, err, model.KindBelowMinimumQuantity)
	assert.Contains(t, err.Error(), "rounded to 0.009")
	assert.Contains(t, err.Error(), "below minimum 0.01")
}

func TestStopLimitPriceSnapsToTick(t *testing.T) {
	req := model.OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      model.SideSell,
		Type:      model.OrderTypeStopLimit,
		Quantity:  d("0.002"),
		Price:     d("50000.07"),
		StopPrice: d("50000.19"),
	}

	order, err := Validate(req, btcFilter())
	require.NoError(t, err)
	assert.True(t, order.Price.Equal(d("50000.0")))
	assert.True(t, order.StopPrice.Equal(d("50000.1")))
}

func TestMissingFields(t *testing.T) {
	testCases := []struct {
		desc  string
		req   model.OrderRequest
		field string
	}{
		{"no symbol", model.OrderRequest{Side: model.SideBuy, Type: model.OrderTypeMarket, Quantity: d("1")}, "symbol"},
		{"bad side", model.OrderRequest{Symbol: "BTCUSDT", Side: "HOLD", Type: model.OrderTypeMarket, Quantity: d("1")}, "side"},
		{"bad type", model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: "OCO", Quantity: d("1")}, "type"},
		{"zero quantity", model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket}, "quantity"},
		{"negative quantity", model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket, Quantity: d("-1")}, "quantity"},
		{"limit without price", model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("1")}, "price"},
		{"stop without stop price", model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeStopLimit, Quantity: d("1"), Price: d("1")}, "stopPrice"},
		{"take profit without price", model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideSell, Type: model.OrderTypeTakeProfitLimit, Quantity: d("1"), StopPrice: d("1")}, "price"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Validate(tc.req, btcFilter())
			requireKind(t, err, model.KindMissingField)

			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestPriceRoundingToZeroIsInvalid(t *testing.T) {
	req := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("1"), Price: d("0.05")}

	_, err := Validate(req, btcFilter())
	requireKind(t, err, model.KindInvalidPrice)
	assert.ErrorIs(t, err, model.ErrInvalidPrice)
}

func TestLimitNotional(t *testing.T) {
	req := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("0.001"), Price: d("4999.9")}

	_, err := Validate(req, btcFilter())
	requireKind(t, err, model.KindBelowMinimumNotional)
	assert.Contains(t, err.Error(), "notional 4.9999 (0.001 x 4999.9)")

	req.Price = d("5000")
	_, err = Validate(req, btcFilter())
	require.NoError(t, err)
}

func TestInapplicablePricesAreDropped(t *testing.T) {
	market := model.OrderRequest{Symbol: "btcusdt", Side: model.SideBuy, Type: model.OrderTypeMarket, Quantity: d("0.001"), Price: d("123"), StopPrice: d("456")}
	order, err := Validate(market, btcFilter())
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", order.Symbol)
	assert.True(t, order.Price.IsZero())
	assert.True(t, order.StopPrice.IsZero())

	limit := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("0.001"), Price: d("60000"), StopPrice: d("456")}
	order, err = Validate(limit, btcFilter())
	require.NoError(t, err)
	assert.True(t, order.StopPrice.IsZero())
}

func TestTriggerRules(t *testing.T) {
	market := d("60000")
	testCases := []struct {
		desc        string
		typ         model.OrderType
		side        model.Side
		price, stop string
		ok          bool
	}{
		{"stop buy above market", model.OrderTypeStopLimit, model.SideBuy, "61010", "61000", true},
		{"stop buy limit below stop", model.OrderTypeStopLimit, model.SideBuy, "60990", "61000", false},
		{"stop buy stop below market", model.OrderTypeStopLimit, model.SideBuy, "59100", "59000", false},
		{"stop sell below market", model.OrderTypeStopLimit, model.SideSell, "58990", "59000", true},
		{"stop sell limit above stop", model.OrderTypeStopLimit, model.SideSell, "59010", "59000", false},
		{"stop sell stop above market", model.OrderTypeStopLimit, model.SideSell, "60900", "61000", false},
		{"take profit buy below market", model.OrderTypeTakeProfitLimit, model.SideBuy, "59000", "59000", true},
		{"take profit buy stop above market", model.OrderTypeTakeProfitLimit, model.SideBuy, "61100", "61000", false},
		{"take profit buy limit below stop", model.OrderTypeTakeProfitLimit, model.SideBuy, "58900", "59000", false},
		{"take profit sell above market", model.OrderTypeTakeProfitLimit, model.SideSell, "61000", "61000", true},
		{"take profit sell stop below market", model.OrderTypeTakeProfitLimit, model.SideSell, "58900", "59000", false},
		{"take profit sell limit above stop", model.OrderTypeTakeProfitLimit, model.SideSell, "61100", "61000", false},
		{"stop at market is rejected", model.OrderTypeStopLimit, model.SideBuy, "60000", "60000", false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			req := model.OrderRequest{
				Symbol: "BTCUSDT", Side: tc.side, Type: tc.typ,
				Quantity: d("0.001"), Price: d(tc.price), StopPrice: d(tc.stop),
			}

			_, err := ValidateAt(req, btcFilter(), market)
			if tc.ok {
				require.NoError(t, err)
			} else {
				requireKind(t, err, model.KindInvalidPrice)
			}
		})
	}
}

func TestTriggerRulesWithoutMarketPrice(t *testing.T) {
	// only the limit/stop ordering applies
	req := model.OrderRequest{
		Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeStopLimit,
		Quantity: d("0.001"), Price: d("59100"), StopPrice: d("59000"),
	}
	_, err := Validate(req, btcFilter())
	require.NoError(t, err)

	req.Price = d("58900")
	_, err = Validate(req, btcFilter())
	requireKind(t, err, model.KindInvalidPrice)
}

func TestValidateIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []model.OrderType{model.OrderTypeMarket, model.OrderTypeLimit, model.OrderTypeStopLimit, model.OrderTypeTakeProfitLimit}
	filter := btcFilter()

	accepted := 0
	for i := 0; i < 500; i++ {
		price := decimal.New(50_000_000+rng.Int63n(20_000_000), -3)
		req := model.OrderRequest{
			Symbol:    "BTCUSDT",
			Side:      []model.Side{model.SideBuy, model.SideSell}[rng.Intn(2)],
			Type:      types[rng.Intn(len(types))],
			Quantity:  decimal.New(1+rng.Int63n(100_000), -5),
			Price:     price,
			StopPrice: price,
		}

		first, err := Validate(req, filter)
		if err != nil {
			continue
		}
		accepted++

		second, err := Validate(first.AsRequest(), filter)
		require.NoError(t, err)
		assert.True(t, first.Equal(second), "%+v != %+v", first, second)
	}
	assert.Greater(t, accepted, 100)
}

func TestValidateDoesNotMutateFilter(t *testing.T) {
	filter := btcFilter()
	before := filter

	req := model.OrderRequest{Symbol: "BTCUSDT", Side: model.SideBuy, Type: model.OrderTypeLimit, Quantity: d("0.0123"), Price: d("60000.55")}
	_, err := Validate(req, filter)
	require.NoError(t, err)

	assert.True(t, before.TickSize.Equal(filter.TickSize))
	assert.True(t, before.StepSize.Equal(filter.StepSize))
}

func TestValidateRejectsForeignFilter(t *testing.T) {
	req := model.OrderRequest{Symbol: "ETHUSDT", Side: model.SideBuy, Type: model.OrderTypeMarket, Quantity: d("1")}

	_, err := Validate(req, btcFilter())
	requireKind(t, err, model.KindInternal)
}
