package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futures-testnet-bot/internal/config"
	"futures-testnet-bot/internal/model"
)

func newChecker(ex *fakeExchange, maxDrift time.Duration, local time.Time) *HealthChecker {
	h := NewHealthChecker(ex, maxDrift)
	h.now = func() time.Time { return local }
	return h
}

func TestHealthyExchange(t *testing.T) {
	ex := newFakeExchange()
	server := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ex.serverTime = server

	status := newChecker(ex, config.DefaultMaxClockDrift, server.Add(-300*time.Millisecond)).Check(context.Background())

	assert.True(t, status.Reachable)
	assert.EqualValues(t, 300, status.ClockDriftMs)
	assert.False(t, status.DriftExceeded)
	assert.True(t, status.HasFuturesPermission)
	assert.Empty(t, status.ErrorDetail)
	assert.True(t, status.Healthy())
	assert.False(t, status.Fatal())
}

func TestClockDriftAboveLimitIsFlagged(t *testing.T) {
	ex := newFakeExchange()
	server := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ex.serverTime = server

	status := newChecker(ex, 5*time.Second, server.Add(10*time.Second)).Check(context.Background())

	assert.True(t, status.Reachable)
	assert.EqualValues(t, 10_000, status.ClockDriftMs)
	assert.True(t, status.DriftExceeded)
	assert.False(t, status.Healthy())
	// drift alone is recoverable
	assert.False(t, status.Fatal())
}

func TestUnreachableWithholdsLaterResults(t *testing.T) {
	ex := newFakeExchange()
	ex.timeErr = model.NewNetworkError("server_time", errConnReset)

	status := newChecker(ex, time.Second, time.Now()).Check(context.Background())

	assert.False(t, status.Reachable)
	assert.Zero(t, status.ClockDriftMs)
	assert.False(t, status.DriftExceeded)
	assert.False(t, status.HasFuturesPermission)
	assert.Equal(t, model.KindNetwork, status.ErrorKind)
	assert.Contains(t, status.ErrorDetail, "connection reset")
	assert.True(t, status.Fatal())
}

func TestAuthErrorIsReported(t *testing.T) {
	ex := newFakeExchange()
	ex.accountErr = &model.AuthError{Code: -2015, Message: "Invalid API-key, IP, or permissions for action.", Hint: "use testnet keys"}

	status := newChecker(ex, time.Second, ex.serverTime).Check(context.Background())

	assert.True(t, status.Reachable)
	assert.False(t, status.HasFuturesPermission)
	assert.Equal(t, model.KindAuth, status.ErrorKind)
	assert.Contains(t, status.ErrorDetail, "-2015")
	assert.Contains(t, status.ErrorDetail, "Invalid API-key")
	assert.True(t, status.Fatal())
}

func TestAccountWithoutTradePermission(t *testing.T) {
	ex := newFakeExchange()
	ex.account = &model.AccountSummary{CanTrade: false}

	status := newChecker(ex, time.Second, ex.serverTime).Check(context.Background())

	assert.False(t, status.HasFuturesPermission)
	assert.Equal(t, model.KindAuth, status.ErrorKind)
	assert.True(t, status.Fatal())
}

func TestNonPositiveDriftUsesDefault(t *testing.T) {
	h := NewHealthChecker(newFakeExchange(), 0)
	assert.Equal(t, config.DefaultMaxClockDrift, h.MaxDrift())
}
