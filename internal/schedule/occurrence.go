// Package schedule provides calendar arithmetic for recurring rules.
//
// This file implements the Strategy Pattern for occurrence advancement.
// Each frequency type (daily, weekly, monthly, yearly) has its own strategy
// that encapsulates how a due date moves to the next occurrence.
package schedule

import (
	"fmt"
	"time"

	"registro/internal/core"
)

// Advancer is the strategy interface for computing the next occurrence of a
// recurring rule. Each implementation covers a single frequency type.
type Advancer interface {
	// NextAfter returns the occurrence that follows the given due date.
	// The result is always strictly greater than the input.
	NextAfter(due core.Date) core.Date
}

// DailyAdvancer implements Advancer for daily rules.
type DailyAdvancer struct{}

func (DailyAdvancer) NextAfter(due core.Date) core.Date {
	return core.Date{Time: due.AddDate(0, 0, 1)}
}

// WeeklyAdvancer implements Advancer for weekly rules.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) NextAfter(due core.Date) core.Date {
	return core.Date{Time: due.AddDate(0, 0, 7)}
}

// MonthlyAdvancer implements Advancer for monthly rules.
//
// Day-of-month overflow is clamped to the last valid day of the target month:
// Jan 31 advances to Feb 29 in leap years and Feb 28 otherwise. time.AddDate
// would normalize the overflow into the following month instead, which is why
// the target date is built explicitly here.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) NextAfter(due core.Date) core.Date {
	return addMonthsClamped(due, 1)
}

// YearlyAdvancer implements Advancer for yearly rules.
//
// The same clamping rule applies: Feb 29 advances to Feb 28 in non-leap years.
type YearlyAdvancer struct{}

func (YearlyAdvancer) NextAfter(due core.Date) core.Date {
	return addMonthsClamped(due, 12)
}

// addMonthsClamped moves the date forward by the given number of months,
// clamping the day to the last valid day of the target month.
func addMonthsClamped(d core.Date, months int) core.Date {
	year, month := d.Year(), d.Month()+months
	for month > 12 {
		month -= 12
		year++
	}
	day := d.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// advancers maps frequency types to their corresponding strategies.
var advancers = map[core.Frequency]Advancer{
	core.Daily:   DailyAdvancer{},
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// GetAdvancer returns the advancement strategy for a frequency.
// An unknown frequency on a persisted rule is a data-integrity error and is
// reported as such rather than falling back to any default.
func GetAdvancer(frequency core.Frequency) (Advancer, error) {
	adv, ok := advancers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return adv, nil
}

// Next computes the occurrence following due for the given frequency.
func Next(due core.Date, frequency core.Frequency) (core.Date, error) {
	adv, err := GetAdvancer(frequency)
	if err != nil {
		return core.Date{}, err
	}
	return adv.NextAfter(due), nil
}
