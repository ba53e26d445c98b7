// Package recurrence implements the restricted recurrence grammar used by job
// series: parsing and serializing rules, expanding them over bounded windows of
// wall-clock time, and storage-free previews.
package recurrence

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

func (f Frequency) valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Rule is a structured recurrence rule.
//
// ByWeekday is consulted only for Weekly and ByMonthDay only for Monthly. An
// empty modifier means "same weekday / day-of-month as the anchor".
type Rule struct {
	Frequency  Frequency
	Interval   int
	ByWeekday  []time.Weekday
	ByMonthDay int
	// Until is the inclusive last date of the series, wall-clock in the
	// series' zone.
	Until *civil.Date
}

// DailyRule builds a rule repeating every interval days.
func DailyRule(interval int) Rule {
	return Rule{Frequency: Daily, Interval: interval}.normalized()
}

// WeeklyRule builds a rule repeating every interval weeks on the given days.
func WeeklyRule(interval int, days ...time.Weekday) Rule {
	return Rule{Frequency: Weekly, Interval: interval, ByWeekday: days}.normalized()
}

// MonthlyRule builds a rule repeating every interval months on day (0 = anchor's day).
func MonthlyRule(interval, day int) Rule {
	return Rule{Frequency: Monthly, Interval: interval, ByMonthDay: day}.normalized()
}

// WithUntil returns a copy of r ending on until (inclusive).
func (r Rule) WithUntil(until civil.Date) Rule {
	r.Until = &until
	return r
}

// Validate rejects rules that cannot be expanded.
func (r Rule) Validate() error {
	if r.Frequency == "" {
		return apperr.Validation("FREQ", "missing")
	}
	if !r.Frequency.valid() {
		return apperr.Validationf("FREQ", "unsupported frequency %q", string(r.Frequency))
	}
	if r.Interval < 1 {
		return apperr.Validationf("INTERVAL", "must be at least 1, got %d", r.Interval)
	}
	for _, d := range r.ByWeekday {
		if d < time.Sunday || d > time.Saturday {
			return apperr.Validationf("BYDAY", "invalid weekday %d", int(d))
		}
	}
	if r.ByMonthDay < 0 || r.ByMonthDay > 31 {
		return apperr.Validationf("BYMONTHDAY", "must be within 1..31, got %d", r.ByMonthDay)
	}
	if r.Until != nil && !r.Until.IsValid() {
		return apperr.Validation("UNTIL", "not a valid date")
	}
	return nil
}

// IsZero reports whether r is the zero rule.
func (r Rule) IsZero() bool {
	return r.Frequency == "" && r.Interval == 0 && len(r.ByWeekday) == 0 && r.ByMonthDay == 0 && r.Until == nil
}

// Equal compares two rules after normalization.
func (r Rule) Equal(o Rule) bool {
	return r.normalized().String() == o.normalized().String()
}

// normalized drops modifiers the frequency does not consult, clamps the
// interval and orders weekdays Monday first without duplicates.
func (r Rule) normalized() Rule {
	if r.Interval < 1 {
		r.Interval = 1
	}

	if r.Frequency == Weekly && len(r.ByWeekday) > 0 {
		seen := make(map[time.Weekday]bool, len(r.ByWeekday))
		days := make([]time.Weekday, 0, len(r.ByWeekday))
		for _, d := range r.ByWeekday {
			if seen[d] {
				continue
			}
			seen[d] = true
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool {
			return mondayFirst(days[i]) < mondayFirst(days[j])
		})
		r.ByWeekday = days
	} else {
		r.ByWeekday = nil
	}

	if r.Frequency != Monthly {
		r.ByMonthDay = 0
	}

	return r
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
