package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/velkoldin-dev/tratyallday/internal/core"
)

// EventType names what happened to an expense record.
type EventType string

const (
	EventCreated  EventType = "created"
	EventReplaced EventType = "replaced"
	EventDeleted  EventType = "deleted"
)

// ExpenseEvent is published after every successful mutation of the record store.
// Deleted events carry only the record id, plus the owner when known.
type ExpenseEvent struct {
	EventID     string    `json:"event_id"`
	Type        EventType `json:"type"`
	ExpenseID   int64     `json:"expense_id"`
	UserID      int64     `json:"user_id"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        string    `json:"date,omitempty"` // YYYY-MM-DD
	Timestamp   time.Time `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid expense event")

// NewExpenseEvent builds an event for e with a fresh id.
func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	ev := &ExpenseEvent{
		EventID:   uuid.NewString(),
		Type:      t,
		ExpenseID: e.ID,
		UserID:    e.UserID,
		Timestamp: time.Now().UTC(),
	}
	if t != EventDeleted {
		ev.AmountCents = e.Amount.Cents
		ev.Category = e.Category
		ev.Date = e.Date.String()
	}
	return ev
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate checks the fields a consumer relies on.
func (m *ExpenseEvent) Validate() error {
	switch m.Type {
	case EventCreated, EventReplaced:
		if m.Date == "" || m.AmountCents <= 0 || m.Category == "" || m.UserID == 0 {
			return ErrInvalidEvent
		}
	case EventDeleted:
	default:
		return ErrInvalidEvent
	}
	if m.ExpenseID <= 0 {
		return ErrInvalidEvent
	}
	return nil
}

// ExpenseEventFromJSON creates a message from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
