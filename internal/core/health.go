package core

import (
	"context"
	"time"

	"futures-testnet-bot/internal/config"
	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

// HealthChecker runs the pre-flight diagnostics. It never returns an error
// and never exits; callers decide what a failing status means.
type HealthChecker struct {
	exchange Exchange
	maxDrift time.Duration
	now      func() time.Time
}

func NewHealthChecker(exchange Exchange, maxDrift time.Duration) *HealthChecker {
	if maxDrift <= 0 {
		maxDrift = config.DefaultMaxClockDrift
	}
	return &HealthChecker{
		exchange: exchange,
		maxDrift: maxDrift,
		now:      time.Now,
	}
}

func (h *HealthChecker) MaxDrift() time.Duration {
	return h.maxDrift
}

// Check probes connectivity, clock drift and futures permission, in that
// order. When the exchange is unreachable the later fields stay false.
func (h *HealthChecker) Check(ctx context.Context) model.HealthStatus {
	sent := h.now()
	status := model.HealthStatus{CheckedAt: sent}

	serverTime, err := h.exchange.ServerTime(ctx)
	if err != nil {
		status.ErrorKind = model.KindOf(err)
		status.ErrorDetail = err.Error()
		logger.Error("❌ Exchange unreachable", "error", err)
		return status
	}
	status.Reachable = true

	// compare against the midpoint of the round trip
	received := h.now()
	local := sent.Add(received.Sub(sent) / 2)
	drift := serverTime.Sub(local)
	if drift < 0 {
		drift = -drift
	}
	status.ClockDriftMs = drift.Milliseconds()
	status.DriftExceeded = drift > h.maxDrift
	if status.DriftExceeded {
		logger.Warn("⚠️ Clock drift above limit",
			"drift_ms", status.ClockDriftMs,
			"max_ms", h.maxDrift.Milliseconds(),
		)
	}

	acct, err := h.exchange.Account(ctx)
	if err != nil {
		status.ErrorKind = model.KindOf(err)
		status.ErrorDetail = err.Error()
		logger.Error("❌ Futures permission check failed", "kind", status.ErrorKind, "error", err)
		return status
	}

	status.HasFuturesPermission = acct.CanTrade
	if !acct.CanTrade {
		status.ErrorKind = model.KindAuth
		status.ErrorDetail = "account is not allowed to trade futures"
	}

	logger.Info("🩺 Health check",
		"reachable", status.Reachable,
		"clock_drift_ms", status.ClockDriftMs,
		"futures_permission", status.HasFuturesPermission,
	)
	return status
}
