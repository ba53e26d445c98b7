package recurrence

import (
	"cloud.google.com/go/civil"
)

// Window is an inclusive range of wall-clock dates.
type Window struct {
	Start civil.Date
	End   civil.Date
}

// NewGenerationWindow returns [today, today+monthsAhead], clamped to until
// when that is earlier. A rule that ended before today yields an empty window.
func NewGenerationWindow(today civil.Date, monthsAhead int, until *civil.Date) Window {
	if monthsAhead < 0 {
		monthsAhead = 0
	}
	w := Window{Start: today, End: today.AddMonths(monthsAhead)}
	if until != nil && until.Before(w.End) {
		w.End = *until
	}
	return w
}

// Empty reports whether the window contains no dates.
func (w Window) Empty() bool {
	return w.End.Before(w.Start)
}

// Contains reports whether d lies inside the window.
func (w Window) Contains(d civil.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of dates in the window.
func (w Window) Days() int {
	if w.Empty() {
		return 0
	}
	return w.End.DaysSince(w.Start) + 1
}
