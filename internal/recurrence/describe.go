package recurrence

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var shortWeekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders r for people, e.g. "Every 2 weeks on Tue, Thu at 09:00 until 2024-03-01".
func Describe(r Rule, start civil.Time) string {
	r = r.normalized()

	var b strings.Builder
	b.WriteString("Every ")
	b.WriteString(unit(r.Frequency, r.Interval))

	switch {
	case r.Frequency == Weekly && len(r.ByWeekday) > 0:
		b.WriteString(" on ")
		b.WriteString(FormatWeekdays(r.ByWeekday))
	case r.Frequency == Monthly && r.ByMonthDay > 0:
		fmt.Fprintf(&b, " on day %d", r.ByMonthDay)
	}

	fmt.Fprintf(&b, " at %02d:%02d", start.Hour, start.Minute)

	if r.Until != nil {
		b.WriteString(" until ")
		b.WriteString(r.Until.String())
	}
	return b.String()
}

// FormatWeekdays joins weekdays, collapsing Mon..Fri style runs: "Mon-Fri, Sun".
func FormatWeekdays(days []time.Weekday) string {
	valid := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			valid = append(valid, d)
		}
	}
	days = valid
	if len(days) == 0 {
		return ""
	}

	var parts []string
	for i := 0; i < len(days); {
		j := i
		for j+1 < len(days) && mondayFirst(days[j+1]) == mondayFirst(days[j])+1 {
			j++
		}
		if j-i >= 2 {
			parts = append(parts, shortWeekdays[days[i]]+"-"+shortWeekdays[days[j]])
		} else {
			for k := i; k <= j; k++ {
				parts = append(parts, shortWeekdays[days[k]])
			}
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}

func unit(f Frequency, interval int) string {
	name := map[Frequency]string{Daily: "day", Weekly: "week", Monthly: "month"}[f]
	if name == "" {
		name = strings.ToLower(string(f))
	}
	if interval <= 1 {
		return name
	}
	return fmt.Sprintf("%d %ss", interval, name)
}
