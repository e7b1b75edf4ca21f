package amqp

import (
	"encoding/json"
	"time"
)

// Collections and operations carried by change messages.
const (
	CollectionPayments = "payments"
	CollectionAgents   = "agents"

	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeMessage announces that a record changed. It carries identifiers only;
// consumers re-read the store for the data.
type ChangeMessage struct {
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         string `json:"id"`
	// BusinessDates lists every business date whose totals the change
	// affects: one for create and delete, the old and new date for an update
	// that moves a payment.
	BusinessDates []string  `json:"business_dates,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewChangeMessage stamps a change with the current time.
func NewChangeMessage(collection, op, id string, dates ...string) *ChangeMessage {
	return &ChangeMessage{
		Collection:    collection,
		Op:            op,
		ID:            id,
		BusinessDates: uniqueDates(dates),
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func uniqueDates(in []string) []string {
	var out []string
	for _, d := range in {
		if d == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == d {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}
