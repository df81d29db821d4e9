package webhook

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one verified change notification from Shopify. The log is
// append-only; events are never mutated or deleted here.
type Event struct {
	// ReceiptID uniquely identifies this delivery record.
	ReceiptID string `json:"receipt_id"`
	// EventID is derived from the payload's own id field when present,
	// falling back to the receipt timestamp. Best-effort dedup key only.
	EventID    string          `json:"event_id"`
	Shop       string          `json:"shop"`
	Topic      string          `json:"topic"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Repository defines the append-only webhook audit log.
type Repository interface {
	// Health is a simple check to verify repository works.
	Health() error
	// Disconnect gracefully closes resources. Should be safe to call on shutdown.
	Disconnect()
	// Append records a verified event.
	Append(ctx context.Context, ev *Event) error
	// List returns all recorded events, newest first.
	List(ctx context.Context) ([]*Event, error)
}
