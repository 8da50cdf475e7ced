package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futures-testnet-bot/internal/api"
	"futures-testnet-bot/internal/config"
	"futures-testnet-bot/internal/core"
	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/metrics"
	"futures-testnet-bot/internal/repository"
	"futures-testnet-bot/internal/service"
	"futures-testnet-bot/internal/web"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	checkOnly := flag.Bool("check", false, "run the pre-flight health check, print it and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.Logging.Dir, cfg.Logging.Level)
	logger.Info("Starting Futures Testnet order bot...")

	logger.Info("Configuration loaded successfully",
		"base_url", cfg.Exchange.BaseURL,
		"stream_url", cfg.Exchange.StreamURL,
		"request_timeout", cfg.Exchange.RequestTimeout,
		"max_clock_drift", cfg.Health.MaxClockDrift,
		"max_retries", cfg.Submit.MaxRetries,
		"price_symbols", cfg.Prices.Symbols,
		"web_addr", cfg.Web.Addr,
		"credentials", cfg.Credentials,
		"telegram", cfg.Telegram.Enabled(),
	)

	if err := run(cfg, *checkOnly); err != nil {
		logger.Error("❌ Bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, checkOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Exchange gateway
	client := api.NewFuturesClient(cfg.Credentials.APIKey, cfg.Credentials.APISecret, cfg.Exchange.BaseURL, cfg.Exchange.RequestTimeout)

	// Recorders
	audit, err := logger.NewAuditLog(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer audit.Close()

	db, err := repository.OpenDB(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("open order database: %w", err)
	}
	defer func() {
		if err := repository.CloseDB(db); err != nil {
			logger.Error("Failed to close order database", "error", err)
		}
	}()
	orders := repository.NewOrderRepository(db)

	telegram := service.NewTelegramService(cfg.Telegram)
	tracker := metrics.NewTracker()

	bot := core.NewBot(cfg, client, tracker, audit, orders, telegram)

	status, err := bot.Preflight(ctx)
	if checkOnly {
		out, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		if alertErr := telegram.SendHealthAlert(ctx, status); alertErr != nil {
			logger.Error("Failed to send health alert", "error", alertErr)
		}
		return err
	}
	logger.Info("✅ Pre-flight check passed",
		"drift_ms", status.ClockDriftMs,
		"futures_permission", status.HasFuturesPermission,
	)
	if checkOnly {
		return nil
	}

	go bot.Run(ctx)

	server := web.NewServer(cfg.Web.Addr, bot, orders, tracker.Handler())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("🛑 Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down web server", "error", err)
	}
	logger.Info("👋 Bot stopped")
	return nil
}
