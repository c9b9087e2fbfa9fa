// Package memory provides an in-memory implementation of the ledger ports.
// It backs tests and storeless local runs of the scheduler.
package memory

import (
	"context"
	"fmt"
	"sync"

	"registro/internal/core"
	"registro/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	rules   map[int64]core.RecurringRule
	nextID  int64
	entries []core.LedgerEntry
}

func New() *Store {
	return &Store{rules: make(map[int64]core.RecurringRule), nextID: 1}
}

// AddRule stores a rule and returns its assigned id.
func (s *Store) AddRule(r core.RecurringRule) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.nextID
	}
	if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	s.rules[r.ID] = r
	return r.ID
}

// Rule returns a copy of the stored rule.
func (s *Store) Rule(id int64) (core.RecurringRule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	return r, ok
}

// FetchDue implements ledger.RuleSource.
func (s *Store) FetchDue(_ context.Context, asOf core.Date) ([]core.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []core.RecurringRule
	for _, r := range s.rules {
		if r.IsActive && !r.NextDueDate.After(asOf.Time) {
			due = append(due, r)
		}
	}
	return due, nil
}

// Advance implements ledger.RuleSource.
func (s *Store) Advance(_ context.Context, ruleID int64, upd ledger.RuleAdvance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[ruleID]
	if !ok {
		return fmt.Errorf("rule %d not found", ruleID)
	}
	if upd.NextDueDate != nil {
		r.NextDueDate = *upd.NextDueDate
	}
	if upd.IsActive != nil {
		r.IsActive = *upd.IsActive
	}
	s.rules[ruleID] = r
	return nil
}

// Append implements ledger.EntryWriter.
func (s *Store) Append(_ context.Context, e core.LedgerEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return int64(len(s.entries)), nil
}

// Entries returns a copy of all appended entries.
func (s *Store) Entries() []core.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
