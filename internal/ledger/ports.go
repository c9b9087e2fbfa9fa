package ledger

import (
	"context"

	"registro/internal/core"
)

// RuleAdvance is a partial update applied to a rule after a firing.
// Nil fields are left untouched.
type RuleAdvance struct {
	NextDueDate *core.Date
	IsActive    *bool
}

// Ports for outbound adapters.
type (
	// RuleSource provides access to persisted recurring rules.
	RuleSource interface {
		// FetchDue returns all active rules with a due date on or before
		// asOf, across all users. A failure here is fatal to a batch run.
		FetchDue(ctx context.Context, asOf core.Date) ([]core.RecurringRule, error)

		// Advance applies a partial schedule/state update to one rule.
		Advance(ctx context.Context, ruleID int64, upd RuleAdvance) error
	}

	// EntryWriter appends a realized entry to the income or expense ledger
	// matching the entry kind.
	EntryWriter interface {
		Append(ctx context.Context, e core.LedgerEntry) (id int64, err error)
	}
)
