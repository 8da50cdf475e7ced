package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("server_time", baseErr)

		assert.True(t, err.IsRetriable())
		assert.Equal(t, "server_time: connection refused", err.Error())
		assert.ErrorIs(t, err, baseErr)
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalNetworkError("decode", baseErr)
		assert.False(t, err.IsRetriable())
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		wrapped := fmt.Errorf("place order: %w", NewNetworkError("place_order", context.DeadlineExceeded))

		assert.True(t, IsRetriable(wrapped))
		assert.False(t, IsRetriable(NewFatalNetworkError("decode", baseErr)))
		assert.False(t, IsRetriable(&ExchangeRejectedError{Code: -2019, Message: "Margin is insufficient."}))
		assert.False(t, IsRetriable(errors.New("plain error")))
	})
}

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	testCases := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindMissingField, ErrMissingField},
		{KindBelowMinimumQuantity, ErrBelowMinimumQuantity},
		{KindBelowMinimumNotional, ErrBelowMinimumNotional},
		{KindInvalidPrice, ErrInvalidPrice},
	}

	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := NewValidationError(tc.kind, "quantity", "value %s", "0")
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, "quantity: value 0", err.Error())
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestKindOf(t *testing.T) {
	testCases := []struct {
		desc string
		err  error
		kind ErrorKind
	}{
		{"nil", nil, KindNone},
		{"symbol", &SymbolNotFoundError{Symbol: "FOOUSDT"}, KindSymbolNotFound},
		{"auth", &AuthError{Code: -2015, Message: "Invalid API-key"}, KindAuth},
		{"rejected", fmt.Errorf("wrap: %w", &ExchangeRejectedError{Code: -2019}), KindExchangeRejected},
		{"network", NewNetworkError("account", errors.New("eof")), KindNetwork},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
		})
	}
}

func TestRejectionFromExchangeError(t *testing.T) {
	r := RejectionFrom(&ExchangeRejectedError{Code: -1111, Message: "Precision is over the maximum defined for this asset.", Hint: "check tick size"})
	require.NotNil(t, r)

	assert.Equal(t, KindExchangeRejected, r.Kind)
	assert.Equal(t, int64(-1111), r.Code)
	assert.Equal(t, "Precision is over the maximum defined for this asset.", r.Message)
	assert.Equal(t, "check tick size", r.Hint)

	assert.Nil(t, RejectionFrom(nil))
}

func TestHealthStatusPolicy(t *testing.T) {
	ok := HealthStatus{Reachable: true, HasFuturesPermission: true}
	assert.True(t, ok.Healthy())
	assert.False(t, ok.Fatal())

	drift := ok
	drift.DriftExceeded = true
	assert.False(t, drift.Healthy())
	assert.False(t, drift.Fatal())

	auth := HealthStatus{Reachable: true, ErrorKind: KindAuth}
	assert.True(t, auth.Fatal())

	assert.True(t, HealthStatus{}.Fatal())
}
