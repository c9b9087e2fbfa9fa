package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"registro/internal/core"
	"registro/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable store for recurring rules and realized
// ledger entries. It implements ledger.RuleSource and ledger.EntryWriter.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows a single writer; concurrent connections fail inserts
	// with SQLITE_BUSY. One pooled connection serializes batch workers at
	// the store instead.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchDue implements ledger.RuleSource. Dates are stored as YYYY-MM-DD
// text, so the comparison against asOf is date-only by construction.
func (r *SQLiteRepository) FetchDue(ctx context.Context, asOf core.Date) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount_cents, category, frequency,
		       start_date, next_due_date, end_date, description, is_active
		FROM recurring_rules
		WHERE is_active = 1 AND next_due_date <= ?
		ORDER BY id`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("query due rules: %w", err)
	}
	defer rows.Close()

	var due []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due rule: %w", err)
		}
		due = append(due, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due rules: %w", err)
	}
	return due, nil
}

// Advance implements ledger.RuleSource, applying a partial update to one rule.
func (r *SQLiteRepository) Advance(ctx context.Context, ruleID int64, upd ledger.RuleAdvance) error {
	sets := []string{"updated_at = datetime('now')"}
	args := []any{}
	if upd.NextDueDate != nil {
		sets = append(sets, "next_due_date = ?")
		args = append(args, upd.NextDueDate.String())
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}
	args = append(args, ruleID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE recurring_rules SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("advance rule %d: %w", ruleID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance rule %d: rows affected: %w", ruleID, err)
	}
	if affected == 0 {
		return fmt.Errorf("advance rule %d: not found", ruleID)
	}
	return nil
}

// Append implements ledger.EntryWriter, inserting into the income or
// expense table matching the entry kind.
func (r *SQLiteRepository) Append(ctx context.Context, e core.LedgerEntry) (int64, error) {
	table, err := tableFor(e.Kind)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO `+table+` (user_id, amount_cents, category, entry_date, description)
		VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, nullable(e.Category), e.Date.String(), nullable(e.Description))
	if err != nil {
		return 0, fmt.Errorf("insert %s entry: %w", e.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s entry: last id: %w", e.Kind, err)
	}

	slog.InfoContext(ctx, "Ledger entry saved",
		"id", id,
		"kind", e.Kind,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"entry_date", e.Date.String())

	return id, nil
}

// CreateRule inserts a new recurring rule. Used by the rule administration
// entry path, never by the scheduler itself.
func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.RecurringRule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_rules
			(user_id, kind, amount_cents, category, frequency,
			 start_date, next_due_date, end_date, description, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.UserID, string(rule.Kind), rule.Amount.Cents, nullable(rule.Category),
		string(rule.Every), rule.StartDate.String(), rule.NextDueDate.String(),
		nullableDate(rule.EndDate), nullable(rule.Description), boolToInt(rule.IsActive))
	if err != nil {
		return 0, fmt.Errorf("create rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create rule: last id: %w", err)
	}
	return id, nil
}

// ListRules returns all rules for a user, newest first.
func (r *SQLiteRepository) ListRules(ctx context.Context, userID int64) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, amount_cents, category, frequency,
		       start_date, next_due_date, end_date, description, is_active
		FROM recurring_rules
		WHERE user_id = ?
		ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

// SetRuleActive pauses or reactivates a rule.
func (r *SQLiteRepository) SetRuleActive(ctx context.Context, ruleID int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_rules
		SET is_active = ?, updated_at = datetime('now')
		WHERE id = ?`, boolToInt(active), ruleID)
	if err != nil {
		return fmt.Errorf("set rule %d active=%t: %w", ruleID, active, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set rule %d active: rows affected: %w", ruleID, err)
	}
	if affected == 0 {
		return fmt.Errorf("set rule %d active: not found", ruleID)
	}
	return nil
}

func scanRule(rows *sql.Rows) (core.RecurringRule, error) {
	var (
		rule                   core.RecurringRule
		kind, frequency        string
		startDate, nextDueDate string
		endDate                sql.NullString
		category, description  sql.NullString
		isActive               int64
	)
	err := rows.Scan(&rule.ID, &rule.UserID, &kind, &rule.Amount.Cents, &category,
		&frequency, &startDate, &nextDueDate, &endDate, &description, &isActive)
	if err != nil {
		return core.RecurringRule{}, err
	}

	rule.Kind = core.EntryKind(kind)
	rule.Every = core.Frequency(frequency)
	rule.Category = category.String
	rule.Description = description.String
	rule.IsActive = isActive != 0

	if rule.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.RecurringRule{}, fmt.Errorf("rule %d: start_date %q: %w", rule.ID, startDate, err)
	}
	if rule.NextDueDate, err = core.ParseDate(nextDueDate); err != nil {
		return core.RecurringRule{}, fmt.Errorf("rule %d: next_due_date %q: %w", rule.ID, nextDueDate, err)
	}
	if endDate.Valid && endDate.String != "" {
		if rule.EndDate, err = core.ParseDate(endDate.String); err != nil {
			return core.RecurringRule{}, fmt.Errorf("rule %d: end_date %q: %w", rule.ID, endDate.String, err)
		}
	}
	return rule, nil
}

func tableFor(kind core.EntryKind) (string, error) {
	switch kind {
	case core.Income:
		return "incomes", nil
	case core.Expense:
		return "expenses", nil
	default:
		return "", fmt.Errorf("%w: %s", core.ErrInvalidKind, kind)
	}
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullableDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
