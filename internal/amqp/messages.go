package amqp

import (
	"encoding/json"
	"time"

	"registro/internal/core"
)

// LedgerEventMessage notifies downstream consumers (dashboards, cache
// invalidation) that a ledger entry was realized from a recurring rule.
// Consumers fetch any further detail from the store by entry id.
type LedgerEventMessage struct {
	EntryID     int64          `json:"entry_id"`
	RuleID      int64          `json:"rule_id"`
	UserID      int64          `json:"user_id"`
	Kind        core.EntryKind `json:"kind"`
	AmountCents int64          `json:"amount_cents"`
	EntryDate   string         `json:"entry_date"`
	Timestamp   time.Time      `json:"timestamp"`
}

// NewLedgerEventMessage builds an event for a realized entry.
func NewLedgerEventMessage(entryID int64, rule core.RecurringRule, entry core.LedgerEntry) *LedgerEventMessage {
	return &LedgerEventMessage{
		EntryID:     entryID,
		RuleID:      rule.ID,
		UserID:      entry.UserID,
		Kind:        entry.Kind,
		AmountCents: entry.Amount.Cents,
		EntryDate:   entry.Date.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
