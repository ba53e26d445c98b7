package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

var weekdayNames = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// untilLayouts are tried in order; only the date part is kept.
var untilLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
	"2006-01-02",
}

// Parse decodes a rule such as "FREQ=WEEKLY;INTERVAL=1;BYDAY=TU,TH".
//
// Unknown keys and malformed pairs are ignored. A missing or unsupported FREQ
// is an error. INTERVAL falls back to 1 when absent, non-positive or not a
// number.
func Parse(text string) (Rule, error) {
	text = strings.TrimSpace(text)
	if len(text) >= 6 && strings.EqualFold(text[:6], "RRULE:") {
		text = text[6:]
	}

	var r Rule
	for _, part := range strings.Split(text, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			r.Frequency = Frequency(strings.ToUpper(value))
		case "INTERVAL":
			// not a number is treated like non-positive
			n, err := strconv.Atoi(value)
			if err != nil {
				n = 1
			}
			r.Interval = n
		case "BYDAY":
			days, err := parseWeekdays(value)
			if err != nil {
				return Rule{}, err
			}
			r.ByWeekday = days
		case "BYMONTHDAY":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 31 {
				return Rule{}, apperr.Validationf("BYMONTHDAY", "%q is not a day of month", value)
			}
			r.ByMonthDay = n
		case "UNTIL":
			until, err := parseUntil(value)
			if err != nil {
				return Rule{}, err
			}
			r.Until = &until
		}
	}

	if r.Frequency == "" {
		return Rule{}, apperr.Validation("FREQ", "missing")
	}
	if !r.Frequency.valid() {
		return Rule{}, apperr.Validationf("FREQ", "unsupported frequency %q", string(r.Frequency))
	}

	return r.normalized(), nil
}

// MustParse is Parse for rules known at compile time.
func MustParse(text string) Rule {
	r, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return r
}

// String serializes r. Parse(r.String()) yields r for every normalized rule.
func (r Rule) String() string {
	r = r.normalized()

	var b strings.Builder
	fmt.Fprintf(&b, "FREQ=%s;INTERVAL=%d", r.Frequency, r.Interval)

	if len(r.ByWeekday) > 0 {
		codes := make([]string, 0, len(r.ByWeekday))
		for _, d := range r.ByWeekday {
			// out of range days fail Validate and are not serialized
			if d < time.Sunday || d > time.Saturday {
				continue
			}
			codes = append(codes, weekdayNames[d])
		}
		if len(codes) > 0 {
			b.WriteString(";BYDAY=")
			b.WriteString(strings.Join(codes, ","))
		}
	}
	if r.ByMonthDay > 0 {
		fmt.Fprintf(&b, ";BYMONTHDAY=%d", r.ByMonthDay)
	}
	if r.Until != nil {
		// end of day keeps the last date inclusive for RFC 5545 consumers
		fmt.Fprintf(&b, ";UNTIL=%04d%02d%02dT235959", r.Until.Year, int(r.Until.Month), r.Until.Day)
	}

	return b.String()
}

func parseWeekdays(value string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, code := range strings.Split(value, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		d, ok := weekdayCodes[code]
		if !ok {
			return nil, apperr.Validationf("BYDAY", "unknown weekday code %q", code)
		}
		days = append(days, d)
	}
	return days, nil
}

func parseUntil(value string) (civil.Date, error) {
	for _, layout := range untilLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, apperr.Validationf("UNTIL", "%q is not a date", value)
}
