package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"futures-testnet-bot/internal/model"
)

const maxRecentOrders = 500

// OrderRecord is one submission attempt as kept in the order history table.
type OrderRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SubmittedAt     time.Time `gorm:"index" json:"submittedAt"`
	Symbol          string    `gorm:"index;size:32" json:"symbol"`
	Side            string    `gorm:"size:8" json:"side"`
	Type            string    `gorm:"size:32" json:"type"`
	Quantity        string    `json:"quantity"`
	Price           string    `json:"price,omitempty"`
	StopPrice       string    `json:"stopPrice,omitempty"`
	ClientOrderID   string    `gorm:"size:64" json:"clientOrderId,omitempty"`
	ExchangeOrderID string    `gorm:"size:32" json:"exchangeOrderId,omitempty"`
	Accepted        bool      `json:"accepted"`
	Status          string    `gorm:"size:32" json:"status"`
	ExecutedQty     string    `json:"executedQty"`
	ErrorKind       string    `gorm:"size:32" json:"errorKind,omitempty"`
	ErrorCode       int64     `json:"errorCode,omitempty"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	Attempts        int       `json:"attempts"`
	DurationMs      int64     `json:"durationMs"`
}

// OrderRepository persists the order history. It is a Recorder for the
// submitter and the source of the recent-orders listing.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Record(ctx context.Context, entry model.AuditEntry) error {
	rec := newOrderRecord(entry)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save order %s: %w", rec.ClientOrderID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *OrderRepository) Recent(ctx context.Context, limit int) ([]OrderRecord, error) {
	if limit <= 0 || limit > maxRecentOrders {
		limit = maxRecentOrders
	}

	var records []OrderRecord
	err := r.db.WithContext(ctx).
		Order("submitted_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}
	return records, nil
}

func newOrderRecord(entry model.AuditEntry) OrderRecord {
	res := entry.Result

	// Prefer the normalized values; fall back to the request when
	// validation never produced them.
	qty, price, stop := res.Order.Quantity, res.Order.Price, res.Order.StopPrice
	if qty.IsZero() {
		qty, price, stop = entry.Request.Quantity, entry.Request.Price, entry.Request.StopPrice
	}

	rec := OrderRecord{
		SubmittedAt:     entry.Time,
		Symbol:          model.NormalizeSymbol(entry.Request.Symbol),
		Side:            string(entry.Request.Side),
		Type:            string(entry.Request.Type),
		Quantity:        qty.String(),
		ClientOrderID:   res.ClientOrderID,
		ExchangeOrderID: res.ExchangeOrderID,
		Accepted:        res.Accepted,
		Status:          res.Status,
		ExecutedQty:     res.ExecutedQty.String(),
		Attempts:        entry.Attempts,
		DurationMs:      entry.Duration.Milliseconds(),
	}
	if !price.IsZero() {
		rec.Price = price.String()
	}
	if !stop.IsZero() {
		rec.StopPrice = stop.String()
	}
	if rej := res.Rejection; rej != nil {
		rec.ErrorKind = string(rej.Kind)
		rec.ErrorCode = rej.Code
		rec.ErrorMessage = rej.Message
	}
	return rec
}
