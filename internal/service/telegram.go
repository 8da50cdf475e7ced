package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"futures-testnet-bot/internal/config"
	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

const telegramAPIURL = "https://api.telegram.org"

type TelegramService struct {
	cfg    config.Telegram
	apiURL string
	client *http.Client
}

func NewTelegramService(cfg config.Telegram) *TelegramService {
	return &TelegramService{
		cfg:    cfg,
		apiURL: telegramAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *TelegramService) SendMessage(ctx context.Context, text string) error {
	if !s.cfg.Enabled() {
		logger.Debug("Telegram credentials not set, skipping message")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.cfg.Token)
	payload := map[string]string{
		"chat_id":    s.cfg.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// the URL carries the bot token
		return fmt.Errorf("failed to send Telegram message: %s", redact(err.Error(), s.cfg.Token))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s", resp.Status)
	}
	return nil
}

// Record notifies accepted orders in the background; rejections stay in
// the logs. It never delays the order response.
func (s *TelegramService) Record(ctx context.Context, entry model.AuditEntry) error {
	if !entry.Result.Accepted || !s.cfg.Enabled() {
		return nil
	}

	msg := s.orderMessage(entry)
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.SendMessage(ctx, msg); err != nil {
			logger.Error("Failed to send Telegram order notification", "error", err)
		}
	}()
	return nil
}

// SendHealthAlert reports a failed pre-flight check.
func (s *TelegramService) SendHealthAlert(ctx context.Context, status model.HealthStatus) error {
	msg := fmt.Sprintf(
		"⚠️ *Futures Testnet - Health check failed*\n\n"+
			"🌐 Reachable: %t\n"+
			"⏰ Clock drift: %dms\n"+
			"🔐 Futures permission: %t\n"+
			"❗ %s\n\n"+
			"📅 %s",
		status.Reachable,
		status.ClockDriftMs,
		status.HasFuturesPermission,
		s.escapeMarkdown(status.ErrorDetail),
		status.CheckedAt.Format("02/01/2006, 15:04:05"),
	)
	return s.SendMessage(ctx, msg)
}

func (s *TelegramService) orderMessage(entry model.AuditEntry) string {
	order := entry.Result.Order

	side := "🟢 Side: BUY"
	if order.Side == model.SideSell {
		side = "🔴 Side: SELL"
	}

	var prices string
	if !order.Price.IsZero() {
		prices += fmt.Sprintf("💲 Price: %s\n", order.Price)
	}
	if !order.StopPrice.IsZero() {
		prices += fmt.Sprintf("🎯 Stop: %s\n", order.StopPrice)
	}

	return fmt.Sprintf(
		"🤖 Futures Testnet - %s\n"+
			"🆔 ID: %s\n"+
			"📊 Status: %s\n"+
			"%s\n"+
			"🧾 Type: %s\n"+
			"📦 Qty: %s\n"+
			"%s"+
			"📅 Date: %s",
		order.Symbol,
		s.escapeMarkdown(entry.Result.ExchangeOrderID),
		s.escapeMarkdown(entry.Result.Status),
		side,
		s.escapeMarkdown(string(order.Type)),
		order.Quantity,
		prices,
		entry.Time.Format("02/01/2006, 15:04:05"),
	)
}

func (s *TelegramService) escapeMarkdown(text string) string {
	return strings.ReplaceAll(text, "_", "\\_")
}

func redact(text, secret string) string {
	if secret == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, "***")
}
