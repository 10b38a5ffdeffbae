package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"findash/internal/core"
)

// EventType names a committed mutation of the ledger.
type EventType string

const (
	EventTransactionAppended EventType = "transaction.appended"
	EventCardAdded           EventType = "card.added"
	EventCardDeleted         EventType = "card.deleted"
)

// MutationEvent carries one committed write so a consumer can replay it on
// another store. Exactly one of Transaction, Card or CardName is set,
// matching Type.
type MutationEvent struct {
	Type        EventType         `json:"type"`
	ID          string            `json:"id,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Card        *core.Card        `json:"card,omitempty"`
	CardName    string            `json:"cardName,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewTransactionAppended(id string, t core.Transaction) *MutationEvent {
	t.ID = id
	return &MutationEvent{Type: EventTransactionAppended, ID: id, Transaction: &t, Timestamp: time.Now()}
}

func NewCardAdded(c core.Card) *MutationEvent {
	return &MutationEvent{Type: EventCardAdded, ID: c.Name, Card: &c, Timestamp: time.Now()}
}

func NewCardDeleted(name string) *MutationEvent {
	return &MutationEvent{Type: EventCardDeleted, ID: name, CardName: name, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes
func (m *MutationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate reports whether the payload matches the event type.
func (m *MutationEvent) Validate() error {
	switch m.Type {
	case EventTransactionAppended:
		if m.Transaction == nil {
			return fmt.Errorf("%s event without transaction", m.Type)
		}
	case EventCardAdded:
		if m.Card == nil {
			return fmt.Errorf("%s event without card", m.Type)
		}
	case EventCardDeleted:
		if m.CardName == "" {
			return fmt.Errorf("%s event without card name", m.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	return nil
}

// MutationEventFromJSON decodes and validates a message body.
func MutationEventFromJSON(data []byte) (*MutationEvent, error) {
	var msg MutationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
