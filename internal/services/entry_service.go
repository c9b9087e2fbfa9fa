package services

import (
	"context"
	"fmt"
	"log/slog"

	"registro/internal/amqp"
	"registro/internal/core"
	"registro/internal/ledger"
)

// EventPublisher publishes realized-entry events for downstream consumers.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// EntryService appends realized entries to the ledger and notifies
// downstream consumers. The store write is authoritative; a publish failure
// never fails the entry.
type EntryService struct {
	writer    ledger.EntryWriter
	publisher EventPublisher
}

func NewEntryService(writer ledger.EntryWriter, publisher EventPublisher) *EntryService {
	return &EntryService{
		writer:    writer,
		publisher: publisher,
	}
}

// RealizeEntry writes the entry produced by a rule firing and publishes the
// corresponding ledger event.
func (s *EntryService) RealizeEntry(ctx context.Context, rule core.RecurringRule, entry core.LedgerEntry) (int64, error) {
	id, err := s.writer.Append(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("append %s entry: %w", entry.Kind, err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publishing disabled, skipping ledger event",
			"entry_id", id, "rule_id", rule.ID)
		return id, nil
	}

	msg := amqp.NewLedgerEventMessage(id, rule, entry)
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		// Entry is committed; downstream consumers catch up from the store.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"entry_id", id,
			"rule_id", rule.ID,
			"error", err)
	}

	return id, nil
}
