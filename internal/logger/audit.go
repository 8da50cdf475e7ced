package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"futures-testnet-bot/internal/model"
)

// AuditLog writes one JSON line per order submission to orders.log.
type AuditLog struct {
	log    *slog.Logger
	closer io.Closer
}

func NewAuditLog(dir string) (*AuditLog, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	file := rotatingFile(dir, "orders.log")
	a := newAuditLog(file)
	a.closer = file
	return a, nil
}

func newAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{log: slog.New(slog.NewJSONHandler(w, nil))}
}

// Record implements core.Recorder.
func (a *AuditLog) Record(ctx context.Context, entry model.AuditEntry) error {
	res := entry.Result
	args := []any{
		slog.Time("submitted_at", entry.Time),
		slog.String("symbol", entry.Request.Symbol),
		slog.String("side", string(entry.Request.Side)),
		slog.String("type", string(entry.Request.Type)),
		slog.Group("requested",
			slog.String("quantity", entry.Request.Quantity.String()),
			slog.String("price", entry.Request.Price.String()),
			slog.String("stop_price", entry.Request.StopPrice.String()),
		),
		slog.Group("normalized",
			slog.String("quantity", res.Order.Quantity.String()),
			slog.String("price", res.Order.Price.String()),
			slog.String("stop_price", res.Order.StopPrice.String()),
			slog.String("client_order_id", res.Order.ClientOrderID),
		),
		slog.Int("attempts", entry.Attempts),
		slog.Int64("duration_ms", entry.Duration.Milliseconds()),
	}

	if res.Accepted {
		args = append(args,
			slog.String("outcome", "ACCEPTED"),
			slog.String("exchange_order_id", res.ExchangeOrderID),
			slog.String("status", res.Status),
			slog.String("executed_qty", res.ExecutedQty.String()),
			slog.String("response", string(res.RawResponse)),
		)
		a.log.InfoContext(ctx, "order", args...)
		return nil
	}

	args = append(args, slog.String("outcome", model.StatusRejected))
	if r := res.Rejection; r != nil {
		args = append(args,
			slog.String("error_kind", string(r.Kind)),
			slog.Int64("error_code", r.Code),
			slog.String("error", r.Message),
		)
	}
	if len(res.RawResponse) > 0 {
		args = append(args, slog.String("response", string(res.RawResponse)))
	}
	a.log.WarnContext(ctx, "order", args...)
	return nil
}

func (a *AuditLog) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
