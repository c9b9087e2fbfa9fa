package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  EntryKind = "income"
	Expense EntryKind = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	EntryKind string

	Frequency string

	// Date is a calendar date without a time-of-day component.
	// All comparisons between dates are date-only.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// RecurringRule is a user-owned schedule that produces ledger entries
	// over time. The scheduler only reads active rules, appends entries and
	// mutates NextDueDate/IsActive; rules are created and edited elsewhere.
	RecurringRule struct {
		ID          int64
		UserID      int64
		Kind        EntryKind
		Amount      Money
		Category    string
		Every       Frequency
		StartDate   Date
		NextDueDate Date
		EndDate     Date // zero when the rule never expires
		Description string
		IsActive    bool
	}

	// LedgerEntry is a realized income or expense record.
	LedgerEntry struct {
		UserID      int64
		Kind        EntryKind
		Amount      Money
		Category    string
		Date        Date
		Description string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid entry kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Truncated returns the calendar date of t with any time-of-day stripped.
func Truncated(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty reports whether the date is unset (for optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (k EntryKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a rule on the creation entry path. The scheduler assumes
// persisted rules were validated here and does not re-check amounts.
func (r RecurringRule) Validate() error {
	if r.UserID <= 0 {
		return errors.New("missing user reference")
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if err := r.Every.Validate(); err != nil {
		return err
	}
	if err := r.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := r.NextDueDate.Validate(); err != nil {
		return errors.New("invalid next due date: " + err.Error())
	}
	if r.NextDueDate.Before(r.StartDate.Time) {
		return errors.New("next due date must not precede start date")
	}
	if !r.EndDate.IsEmpty() && r.EndDate.Before(r.StartDate.Time) {
		return errors.New("end date must not precede start date")
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Validate checks an entry before it is appended to a ledger.
func (e LedgerEntry) Validate() error {
	if e.UserID <= 0 {
		return errors.New("missing user reference")
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	return nil
}
