package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/teambition/rrule-go"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

var rruleFrequencies = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
}

var endOfDay = civil.Time{Hour: 23, Minute: 59, Second: 59}

// Expansion is the result of expanding a rule over a window.
type Expansion struct {
	Starts []civil.DateTime
	// Truncated is set when the limit stopped expansion before the window end.
	Truncated bool
}

// Expand returns every wall-clock start of r inside w, in order. The window
// end is a hard cap, so expansion terminates for rules without UNTIL.
func Expand(r Rule, anchor civil.DateTime, w Window) ([]civil.DateTime, error) {
	exp, err := ExpandLimit(r, anchor, w, 0)
	if err != nil {
		return nil, err
	}
	return exp.Starts, nil
}

// ExpandLimit is Expand that stops after limit starts (0 means no limit).
//
// Expansion runs on floating times (the wall-clock value labelled UTC), so no
// zone rules take part; conversion to instants is the caller's job.
func ExpandLimit(r Rule, anchor civil.DateTime, w Window, limit int) (Expansion, error) {
	if err := r.Validate(); err != nil {
		return Expansion{}, err
	}
	if !anchor.IsValid() {
		return Expansion{}, apperr.Validation("anchor", "not a valid date and time")
	}

	end := w.End
	if r.Until != nil && r.Until.Before(end) {
		end = *r.Until
	}
	if w.Empty() || end.Before(w.Start) {
		return Expansion{}, nil
	}

	lower := floating(civil.DateTime{Date: w.Start})
	upper := floating(civil.DateTime{Date: end, Time: endOfDay})

	rr, err := rrule.NewRRule(toROption(r.normalized(), anchor, upper))
	if err != nil {
		return Expansion{}, apperr.Wrap(err, "build recurrence")
	}

	var exp Expansion
	next := rr.Iterator()
	for {
		t, ok := next()
		if !ok || t.After(upper) {
			break
		}
		if t.Before(lower) {
			continue
		}
		if limit > 0 && len(exp.Starts) == limit {
			exp.Truncated = true
			break
		}
		exp.Starts = append(exp.Starts, civil.DateTimeOf(t))
	}

	return exp, nil
}

func toROption(r Rule, anchor civil.DateTime, until time.Time) rrule.ROption {
	opt := rrule.ROption{
		Freq:     rruleFrequencies[r.Frequency],
		Interval: r.Interval,
		Dtstart:  floating(anchor),
		Wkst:     rrule.MO,
		Until:    until,
	}
	for _, d := range r.ByWeekday {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
	}
	if r.ByMonthDay > 0 {
		opt.Bymonthday = []int{r.ByMonthDay}
	}
	return opt
}

func floating(dt civil.DateTime) time.Time {
	return dt.In(time.UTC)
}
