package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"registro/internal/core"
	"registro/internal/ledger"
	"registro/internal/schedule"
)

// recurringPrefix marks ledger entries that originate from a recurring rule.
const recurringPrefix = "Ricorrente: "

// RuleStatus is the terminal outcome of one rule during a batch run.
type RuleStatus string

const (
	// StatusFired - entry written and schedule advanced.
	StatusFired RuleStatus = "fired"
	// StatusCompleted - entry written, next occurrence would pass the end
	// date, rule deactivated.
	StatusCompleted RuleStatus = "completed"
	// StatusWriteFailed - ledger append failed, rule untouched and still due.
	StatusWriteFailed RuleStatus = "write_failed"
	// StatusAdvanceFailed - entry written but the schedule update failed;
	// the rule stays due and risks firing twice on the next run.
	StatusAdvanceFailed RuleStatus = "advance_failed"
	// StatusSkipped - unrecognized frequency on the persisted rule; nothing
	// written, nothing mutated.
	StatusSkipped RuleStatus = "skipped"
)

// RuleResult reports the outcome of a single rule.
type RuleResult struct {
	RuleID int64
	Status RuleStatus
	Err    error
}

// RunReport aggregates the per-rule results of one batch run.
type RunReport struct {
	Results []RuleResult
}

// Processed counts rules whose ledger write succeeded. That is the
// user-visible effect of a firing, so it includes rules whose subsequent
// schedule advancement failed.
func (r RunReport) Processed() int {
	n := 0
	for _, res := range r.Results {
		switch res.Status {
		case StatusFired, StatusCompleted, StatusAdvanceFailed:
			n++
		}
	}
	return n
}

// Deactivated counts rules retired at their end of life during this run.
func (r RunReport) Deactivated() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// FailedRuleIDs returns the ids of rules whose firing did not fully complete.
func (r RunReport) FailedRuleIDs() []int64 {
	var ids []int64
	for _, res := range r.Results {
		switch res.Status {
		case StatusWriteFailed, StatusAdvanceFailed, StatusSkipped:
			ids = append(ids, res.RuleID)
		}
	}
	return ids
}

// BatchProcessor materializes due recurring rules into ledger entries and
// advances each rule's schedule. One run is a single-shot batch; the
// triggering deployment must guarantee at most one concurrent invocation,
// since no locking is performed on rule records here.
type BatchProcessor struct {
	rules       ledger.RuleSource
	entries     *EntryService
	maxParallel int
}

func NewBatchProcessor(rules ledger.RuleSource, entries *EntryService, maxParallel int) *BatchProcessor {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &BatchProcessor{
		rules:       rules,
		entries:     entries,
		maxParallel: maxParallel,
	}
}

// ProcessDueRules runs one full batch cycle for the given run date.
//
// A fetch failure aborts the whole run with zero rules processed. Every
// per-rule failure is isolated: the rule is reported in the RunReport and
// the run continues. Rules whose write failed keep their due date and are
// naturally retried on the next invocation.
func (p *BatchProcessor) ProcessDueRules(ctx context.Context, today core.Date) (RunReport, error) {
	due, err := p.rules.FetchDue(ctx, today)
	if err != nil {
		return RunReport{}, fmt.Errorf("fetch due rules: %w", err)
	}

	slog.InfoContext(ctx, "Processing due recurring rules",
		"total_due", len(due),
		"run_date", today.String())

	report := RunReport{Results: make([]RuleResult, len(due))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for i, rule := range due {
		g.Go(func() error {
			report.Results[i] = p.processRule(gctx, rule)
			return nil
		})
	}
	// Workers never return errors; failures live in the report.
	_ = g.Wait()

	slog.InfoContext(ctx, "Recurring rule processing complete",
		"processed", report.Processed(),
		"deactivated", report.Deactivated(),
		"failed", len(report.FailedRuleIDs()),
		"total_due", len(due))

	return report, nil
}

// processRule fires one rule: append the ledger entry, compute the next
// occurrence, then advance or deactivate the rule. The advancement strategy
// is resolved before any write so that a corrupt frequency value skips the
// rule without mutating anything.
func (p *BatchProcessor) processRule(ctx context.Context, rule core.RecurringRule) RuleResult {
	adv, err := schedule.GetAdvancer(rule.Every)
	if err != nil {
		slog.ErrorContext(ctx, "Unrecognized frequency on persisted rule, skipping",
			"rule_id", rule.ID,
			"frequency", rule.Every,
			"error", err)
		return RuleResult{RuleID: rule.ID, Status: StatusSkipped, Err: err}
	}

	// The entry is dated with the rule's due date, not the wall-clock run
	// time, so late runs backfill the intended occurrence.
	entry := core.LedgerEntry{
		UserID:      rule.UserID,
		Kind:        rule.Kind,
		Amount:      rule.Amount,
		Category:    rule.Category,
		Date:        rule.NextDueDate,
		Description: recurringDescription(rule),
	}

	entryID, err := p.entries.RealizeEntry(ctx, rule, entry)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to write ledger entry, rule left due",
			"rule_id", rule.ID,
			"kind", rule.Kind,
			"error", err)
		return RuleResult{RuleID: rule.ID, Status: StatusWriteFailed, Err: err}
	}

	candidate := adv.NextAfter(rule.NextDueDate)

	var upd ledger.RuleAdvance
	status := StatusFired
	if !rule.EndDate.IsEmpty() && candidate.After(rule.EndDate.Time) {
		// End of life: deactivate and keep next_due_date at the last fired
		// value as a historical marker.
		inactive := false
		upd.IsActive = &inactive
		status = StatusCompleted
	} else {
		upd.NextDueDate = &candidate
	}

	if err := p.rules.Advance(ctx, rule.ID, upd); err != nil {
		// The entry above is already committed, so this rule may fire twice
		// on the next run. Known gap, surfaced loudly instead of patched.
		slog.ErrorContext(ctx, "Failed to advance rule after write, duplicate firing possible",
			"rule_id", rule.ID,
			"entry_id", entryID,
			"error", err)
		return RuleResult{RuleID: rule.ID, Status: StatusAdvanceFailed, Err: err}
	}

	slog.InfoContext(ctx, "Fired recurring rule",
		"rule_id", rule.ID,
		"entry_id", entryID,
		"kind", rule.Kind,
		"amount_cents", rule.Amount.Cents,
		"status", status,
		"fired_for", rule.NextDueDate.String())

	return RuleResult{RuleID: rule.ID, Status: status}
}

func recurringDescription(rule core.RecurringRule) string {
	desc := strings.TrimSpace(rule.Description)
	if desc == "" {
		desc = strings.TrimSpace(rule.Category)
	}
	if desc == "" {
		desc = string(rule.Kind)
	}
	return recurringPrefix + desc
}
