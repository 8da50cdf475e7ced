package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

const markPriceEvent = "markPriceUpdate"

// MarkPriceUpdate is the payload of a <symbol>@markPrice event.
type MarkPriceUpdate struct {
	Event       string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	MarkPrice   string `json:"p"`
	IndexPrice  string `json:"i"`
	FundingRate string `json:"r"`
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// MarkPriceStream subscribes to mark price updates and feeds them into a
// PriceService, reconnecting with backoff until its context is cancelled.
type MarkPriceStream struct {
	url     string
	symbols []string
	prices  *PriceService
	dialer  *websocket.Dialer
	backoff *backoff.Backoff
}

func NewMarkPriceStream(url string, symbols []string, prices *PriceService) *MarkPriceStream {
	return &MarkPriceStream{
		url:     url,
		symbols: symbols,
		prices:  prices,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoff: &backoff.Backoff{Min: time.Second, Max: time.Minute, Factor: 2, Jitter: true},
	}
}

// Run blocks until ctx is done.
func (s *MarkPriceStream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		return
	}

	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			logger.Info("🛑 Mark price stream stopped")
			return
		}

		wait := s.backoff.Duration()
		logger.Warn("🔌 Mark price stream disconnected, reconnecting", "error", err, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session holds one connection open until it fails or ctx is cancelled.
func (s *MarkPriceStream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(sym)+"@markPrice@1s")
	}
	if err := conn.WriteJSON(subscribeRequest{Method: "SUBSCRIBE", Params: params, ID: 1}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	logger.Info("📡 Mark price stream connected", "symbols", s.symbols)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event MarkPriceUpdate
		if err := json.Unmarshal(message, &event); err != nil {
			logger.Error("❌ Failed to parse WebSocket message", "error", err, "msg", string(message))
			continue
		}
		if event.Event != markPriceEvent {
			// subscription acks and other events
			continue
		}

		price, err := decimal.NewFromString(event.MarkPrice)
		if err != nil {
			logger.Warn("Invalid mark price", "symbol", event.Symbol, "price", event.MarkPrice)
			continue
		}

		s.backoff.Reset()
		s.prices.Update(model.MarkPrice{
			Symbol: event.Symbol,
			Price:  price,
			Time:   time.UnixMilli(event.EventTime),
		})
	}
}
