package amqp

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Channel names double as queue names and routing keys on the direct
// exchange. Both channels carry the same payload and are handled the same
// way downstream.
const (
	TransactionCreatedQueue = "transaction.created"
	TransactionUpdatedQueue = "transaction.updated"
)

// TransactionMessage is the wire form of a transaction event as published
// by the upstream transaction service. Amount and Date are pointers so a
// missing field survives decoding as nil instead of a zero value; the
// intake's null-guard depends on that distinction.
type TransactionMessage struct {
	TransactionID int64            `json:"transactionId"`
	UserID        string           `json:"userId"`
	Type          string           `json:"type"`
	Amount        *decimal.Decimal `json:"amount"`
	Date          *core.Date       `json:"date"`
	Description   string           `json:"description"`
}

// ToJSON converts the message to its wire form.
func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionMessageFromJSON decodes a message from its wire form.
func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Event maps the wire message onto the domain event. Absent wire fields stay
// absent on the event (nil amount, zero date) so the intake guard sees them.
func (m *TransactionMessage) Event() core.TransactionEvent {
	ev := core.TransactionEvent{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Type:          core.TransactionType(m.Type),
		Amount:        m.Amount,
		Description:   m.Description,
	}
	if m.Date != nil {
		ev.Date = *m.Date
	}
	return ev
}
