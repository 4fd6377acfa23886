package amqp

import (
	"encoding/json"
	"time"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
)

const (
	EventAdded   = "added"
	EventRemoved = "removed"
)

// TransactionEvent announces a local mutation to external consumers. It
// carries the full transaction payload so a consumer can mirror the change
// without access to the publisher's local cache.
type TransactionEvent struct {
	Type        string           `json:"type"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewTransactionEvent(eventType string, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:        eventType,
		Transaction: t,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
