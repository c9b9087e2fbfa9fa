package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"registro/internal/core"
	"registro/internal/ledger"
	"registro/internal/services"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRule(userID int64, due core.Date, active bool) core.RecurringRule {
	return core.RecurringRule{
		UserID:      userID,
		Kind:        core.Expense,
		Amount:      core.Money{Cents: 2500},
		Category:    "Casa",
		Every:       core.Monthly,
		StartDate:   core.NewDate(2024, 1, 1),
		NextDueDate: due,
		Description: "affitto box",
		IsActive:    active,
	}
}

// FetchDue against the real schema must return exactly the active rules
// with next_due_date on or before asOf.
func TestRepositoryFetchDueSelection(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	overdue, err := repo.CreateRule(ctx, testRule(1, core.NewDate(2024, 2, 28), true))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	dueToday, err := repo.CreateRule(ctx, testRule(1, core.NewDate(2024, 3, 1), true))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if _, err := repo.CreateRule(ctx, testRule(1, core.NewDate(2024, 3, 2), true)); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if _, err := repo.CreateRule(ctx, testRule(1, core.NewDate(2024, 2, 1), false)); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	due, err := repo.FetchDue(ctx, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("FetchDue: %v", err)
	}

	got := map[int64]bool{}
	for _, r := range due {
		got[r.ID] = true
	}
	if len(got) != 2 || !got[overdue] || !got[dueToday] {
		t.Fatalf("FetchDue returned ids %v, want {%d, %d}", got, overdue, dueToday)
	}
}

func TestRepositoryAdvancePartialUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateRule(ctx, testRule(1, core.NewDate(2024, 3, 1), true))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	next := core.NewDate(2024, 4, 1)
	if err := repo.Advance(ctx, id, ledger.RuleAdvance{NextDueDate: &next}); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	rules, err := repo.ListRules(ctx, 1)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("ListRules returned %d rules, want 1", len(rules))
	}
	if rules[0].NextDueDate.String() != "2024-04-01" || !rules[0].IsActive {
		t.Fatalf("after date-only advance: next=%s active=%t", rules[0].NextDueDate, rules[0].IsActive)
	}

	inactive := false
	if err := repo.Advance(ctx, id, ledger.RuleAdvance{IsActive: &inactive}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	rules, err = repo.ListRules(ctx, 1)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if rules[0].IsActive {
		t.Fatal("rule still active after deactivation")
	}
	if rules[0].NextDueDate.String() != "2024-04-01" {
		t.Fatalf("deactivation touched next due date: %s", rules[0].NextDueDate)
	}

	if err := repo.Advance(ctx, 9999, ledger.RuleAdvance{IsActive: &inactive}); err == nil {
		t.Fatal("expected error for unknown rule id")
	}
}

// Append must route each entry into the table matching its kind.
func TestRepositoryAppendKindRouting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := core.LedgerEntry{
		UserID:      1,
		Amount:      core.Money{Cents: 500},
		Date:        core.NewDate(2024, 3, 1),
		Description: "Ricorrente: abbonamento",
	}

	income := entry
	income.Kind = core.Income
	if _, err := repo.Append(ctx, income); err != nil {
		t.Fatalf("Append income: %v", err)
	}

	expense := entry
	expense.Kind = core.Expense
	if _, err := repo.Append(ctx, expense); err != nil {
		t.Fatalf("Append expense: %v", err)
	}

	if got := countRows(t, repo, "incomes"); got != 1 {
		t.Errorf("incomes rows = %d, want 1", got)
	}
	if got := countRows(t, repo, "expenses"); got != 1 {
		t.Errorf("expenses rows = %d, want 1", got)
	}

	bad := entry
	bad.Kind = "transfer"
	if _, err := repo.Append(ctx, bad); err == nil {
		t.Fatal("expected error for unknown entry kind")
	}
}

// A parallel batch run against the real store must fire every due rule.
// SQLite refuses concurrent writers, so the repository has to serialize
// them rather than surface SQLITE_BUSY as per-rule write failures.
func TestRepositoryParallelBatchRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const total = 50
	for i := int64(1); i <= total; i++ {
		if _, err := repo.CreateRule(ctx, testRule(i, core.NewDate(2024, 3, 1), true)); err != nil {
			t.Fatalf("CreateRule %d: %v", i, err)
		}
	}

	processor := services.NewBatchProcessor(repo, services.NewEntryService(repo, nil), 4)
	report, err := processor.ProcessDueRules(ctx, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("ProcessDueRules: %v", err)
	}

	if got := report.Processed(); got != total {
		t.Fatalf("Processed() = %d of %d, failures: %v", got, total, report.FailedRuleIDs())
	}
	if failed := report.FailedRuleIDs(); len(failed) != 0 {
		t.Fatalf("FailedRuleIDs() = %v, want none", failed)
	}
	if got := countRows(t, repo, "expenses"); got != total {
		t.Fatalf("expenses rows = %d, want %d", got, total)
	}

	// Every rule advanced past the run date, so a second fetch is empty.
	due, err := repo.FetchDue(ctx, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("FetchDue after run: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("%d rules still due after the run", len(due))
	}
}

func countRows(t *testing.T, repo *SQLiteRepository, table string) int {
	t.Helper()
	var n int
	if err := repo.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
