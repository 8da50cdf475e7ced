package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/adshao/go-binance/v2/common"

	"futures-testnet-bot/internal/model"
)

// Exchange error codes the gateway gives special treatment.
const (
	codeUnknown          = 0
	codeDisconnected     = -1001
	codeUnexpectedResp   = -1006
	codeTimeout          = -1007
	codeTimestampWindow  = -1021
	codeInvalidSignature = -1022
	codePrecision        = -1111
	codeBadOrderParams   = -1116
	codeFilterFailure    = -1118
	codeInvalidSymbol    = -1121
	codeRejectedMbxKey   = -2008
	codeBadAPIKeyFormat  = -2014
	codeInvalidAPIKey    = -2015
	codeNoSuchOrder      = -2013
	codeMarginShortfall  = -2019
	codeWouldTrigger     = -2021
	codeDuplicateOrder   = -4116
	codeMinNotional      = -4164
)

var hints = map[int64]string{
	codeInvalidAPIKey:   "use Futures Testnet keys with futures enabled against https://testnet.binancefuture.com",
	codeBadAPIKeyFormat: "regenerate the testnet keys and reconfigure",
	codeRejectedMbxKey:  "the API key id is unknown to the testnet",
	codeTimestampWindow: "request timestamp is outside recvWindow; enable automatic time sync",
	codeMarginShortfall: "insufficient margin; reduce size, lower leverage or top up testnet balance",
	codePrecision:       "quantity or price does not match step size or tick size",
	codeBadOrderParams:  "invalid order type, side or symbol; use a USDT-M symbol such as BTCUSDT",
	codeFilterFailure:   "value out of bounds for minQty, stepSize or tickSize",
	codeWouldTrigger:    "stop price would trigger immediately against the current price",
	codeMinNotional:     "order notional is below the symbol minimum",
	codeDuplicateOrder:  "an order with this client order id already exists; check open orders before resubmitting",
}

// Hint returns an operator-facing explanation for common exchange codes.
func Hint(code int64) string {
	return hints[code]
}

// classify maps go-binance errors onto the model taxonomy so callers can
// dispatch on type instead of message text.
func classify(op, symbol string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(op, symbol, apiErr.Code, apiErr.Message)
	}

	if errors.Is(err, context.Canceled) {
		return model.NewFatalNetworkError(op, err)
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return model.NewNetworkError(op, err)
	}

	return model.NewFatalNetworkError(op, err)
}

func fromAPIError(op, symbol string, code int64, msg string) error {
	switch code {
	case codeInvalidAPIKey, codeBadAPIKeyFormat, codeInvalidSignature, codeRejectedMbxKey:
		return &model.AuthError{Code: code, Message: msg, Hint: Hint(code)}
	case codeInvalidSymbol:
		if symbol != "" {
			return &model.SymbolNotFoundError{Symbol: symbol}
		}
	case codeUnknown, codeDisconnected, codeUnexpectedResp, codeTimeout:
		return model.NewNetworkError(op, fmt.Errorf("exchange %d: %s", code, msg))
	case codeNoSuchOrder:
		return &model.ExchangeRejectedError{Code: code, Message: msg, Cause: model.ErrOrderNotFound}
	case codeDuplicateOrder:
		return &model.ExchangeRejectedError{Code: code, Message: msg, Hint: Hint(code), Cause: model.ErrDuplicateClientOrderID}
	}
	return &model.ExchangeRejectedError{Code: code, Message: msg, Hint: Hint(code)}
}
