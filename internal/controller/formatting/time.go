package formatting

import (
	"fmt"
	"time"
)

// FormatDateTime форматирует t в loc, например "Tue 02.01.2024 09:00"
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon 02.01.2006 15:04")
}

// FormatTimeRange форматирует интервал "09:00-10:30" в loc
func FormatTimeRange(start, end time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s-%s", start.In(loc).Format("15:04"), end.In(loc).Format("15:04"))
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}

// FormatCost переводит центы в доллары
func FormatCost(cents int) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
