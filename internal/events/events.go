// Package events carries stock movement notifications to subscribers after a
// unit of work commits.
package events

import (
	"context"
	"errors"
	"time"

	"stockflow/internal/model"

	"github.com/google/uuid"
)

type Action string

const (
	ActionTransactionCreated Action = "transaction_created"
	ActionTransactionUpdated Action = "transaction_updated"
	ActionTransactionDeleted Action = "transaction_deleted"
)

// TypeStockUpdate is the message type websocket clients listen for.
const TypeStockUpdate = "stock_update"

// StockEvent describes one committed stock movement.
type StockEvent struct {
	EventID         string                `json:"eventId"`
	Type            string                `json:"type"`
	Action          Action                `json:"action"`
	TransactionID   uuid.UUID             `json:"transactionId"`
	TransactionType model.TransactionType `json:"transactionType"`
	Quantity        int                   `json:"quantity"`
	ProductID       uuid.UUID             `json:"productId"`
	ProductName     string                `json:"productName"`
	SKU             string                `json:"sku"`
	NewQuantity     int                   `json:"newQuantity"`
	Actor           string                `json:"actor,omitempty"`
	Message         string                `json:"message"`
	Timestamp       time.Time             `json:"timestamp"`
}

// NewStockEvent fills the envelope fields of an event.
func NewStockEvent(action Action, t *model.Transaction, p *model.Product, actor string) StockEvent {
	return StockEvent{
		EventID:         uuid.NewString(),
		Type:            TypeStockUpdate,
		Action:          action,
		TransactionID:   t.ID,
		TransactionType: t.Type,
		Quantity:        t.Quantity,
		ProductID:       p.ID,
		ProductName:     p.Name,
		SKU:             p.SKU,
		NewQuantity:     p.Quantity,
		Actor:           actor,
		Message:         describe(action, t, p),
		Timestamp:       time.Now().UTC(),
	}
}

func describe(action Action, t *model.Transaction, p *model.Product) string {
	switch action {
	case ActionTransactionUpdated:
		return "Transaction updated for " + p.Name
	case ActionTransactionDeleted:
		return "Transaction deleted for " + p.Name
	}
	if t.Type == model.TxOut {
		return "Stock out: " + p.Name
	}
	return "Stock in: " + p.Name
}

// Notifier delivers stock events. Implementations must not block for long;
// delivery happens after the HTTP response data is committed.
type Notifier interface {
	Notify(ctx context.Context, event StockEvent) error
}

// Fanout delivers an event to every notifier and joins their failures.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event StockEvent) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, StockEvent) error { return nil }
