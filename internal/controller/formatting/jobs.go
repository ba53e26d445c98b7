package formatting

import (
	"fmt"
	"html"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/service"
)

// FormatSeries форматирует карточку серии (HTML)
func FormatSeries(s *model.JobSeries) string {
	statusEmoji, statusText := "✅", "Active"
	if !s.IsActive {
		statusEmoji, statusText = "⏸", "Inactive"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> (#%d)\n\n", statusEmoji, html.EscapeString(s.Title), s.ID)
	fmt.Fprintf(&b, "🔁 %s\n", html.EscapeString(recurrence.Describe(s.Recurrence, s.LocalStartTime)))
	fmt.Fprintf(&b, "📅 From %s, %s\n", s.StartDate, html.EscapeString(s.Timezone))
	fmt.Fprintf(&b, "⏱ %s\n", FormatDuration(s.DurationMinutes))

	p := Priority(s.Priority)
	fmt.Fprintf(&b, "%s Priority: %s\n", p.Emoji, p.Text)
	if s.EstimatedCost != nil {
		fmt.Fprintf(&b, "💰 %s\n", FormatCost(*s.EstimatedCost))
	}
	fmt.Fprintf(&b, "👤 Customer #%d\n", s.CustomerID)
	fmt.Fprintf(&b, "📊 Status: %s", statusText)

	if s.LastGeneratedUntil != nil {
		fmt.Fprintf(&b, "\n🧮 Generated until %s", s.LastGeneratedUntil.UTC().Format("02.01.2006 15:04 UTC"))
	}
	return b.String()
}

// FormatGeneration кратко описывает один запуск генерации
func FormatGeneration(res model.GenerationResult) string {
	if res.Inactive {
		return "⏸ Series is inactive, nothing generated."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Generated: %d new, %d already existed", res.Created, res.Skipped)
	if res.Failed > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d could not be written", res.Failed)
	}
	if res.Truncated {
		b.WriteString("\n✂️ Occurrence cap reached")
	}
	return b.String()
}

// FormatOutcome описывает результат изменения серии под заголовком heading
func FormatOutcome(out *service.MutationOutcome, heading string) string {
	var b strings.Builder

	switch out.State {
	case model.SeriesPendingRegeneration:
		fmt.Fprintf(&b, "⚠️ %s, jobs are pending regeneration", html.EscapeString(heading))
	default:
		fmt.Fprintf(&b, "✅ %s", html.EscapeString(heading))
	}

	if out.Generation != nil && out.State != model.SeriesPendingRegeneration {
		b.WriteString("\n")
		b.WriteString(FormatGeneration(*out.Generation))
	}
	for _, w := range out.Warnings {
		b.WriteString("\n⚠️ ")
		b.WriteString(html.EscapeString(w))
	}
	return b.String()
}

// FormatAgenda группирует работы по дням в loc (HTML)
func FormatAgenda(views []model.OccurrenceView, loc *time.Location) string {
	if len(views) == 0 {
		return "📭 No jobs in this period."
	}

	var (
		b       strings.Builder
		lastDay string
	)
	for _, v := range views {
		day := v.StartAt.In(loc).Format("Monday 02.01.2006")
		if day != lastDay {
			if lastDay != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "<b>%s</b>\n", day)
			lastDay = day
		}

		st := Priority(v.Priority)
		status := OccurrenceStatus(v.Status)
		fmt.Fprintf(&b, "%s %s %s %s - %s (#%d)\n",
			status.Emoji,
			FormatTimeRange(v.StartAt, v.EndAt, loc),
			st.Emoji,
			html.EscapeString(v.Title),
			html.EscapeString(v.CustomerName),
			v.ID,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// PreviewRow - одно начало в местном и абсолютном времени
type PreviewRow struct {
	Local civil.DateTime
	UTC   time.Time
}

// FormatPreview выводит даты под описанием правила
func FormatPreview(r recurrence.Rule, start civil.Time, zone string, rows []PreviewRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔁 %s (%s)\n", html.EscapeString(recurrence.Describe(r, start)), html.EscapeString(zone))

	if len(rows) == 0 {
		b.WriteString("\n📭 No upcoming occurrences.")
		return b.String()
	}

	b.WriteString("\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%d. %s %s %02d:%02d (%s UTC)\n",
			i+1,
			row.Local.Date.Weekday().String()[:3],
			row.Local.Date,
			row.Local.Time.Hour,
			row.Local.Time.Minute,
			row.UTC.UTC().Format("2006-01-02 15:04"),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatOccurrence форматирует одну работу (HTML)
func FormatOccurrence(eff *model.EffectiveOccurrence, loc *time.Location) string {
	status := OccurrenceStatus(eff.Status)
	p := Priority(eff.Priority)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> (#%d)\n\n", status.Emoji, html.EscapeString(eff.Title), eff.ID)
	fmt.Fprintf(&b, "📅 %s, %s\n", FormatDateTime(eff.StartAt, loc), FormatTimeRange(eff.StartAt, eff.EndAt, loc))
	fmt.Fprintf(&b, "📊 Status: %s\n", status.Text)
	fmt.Fprintf(&b, "%s Priority: %s\n", p.Emoji, p.Text)
	if eff.EstimatedCost != nil {
		fmt.Fprintf(&b, "💰 %s\n", FormatCost(*eff.EstimatedCost))
	}
	if eff.AssigneeID != nil {
		fmt.Fprintf(&b, "👷 Assignee #%d\n", *eff.AssigneeID)
	}
	if eff.Description != "" {
		fmt.Fprintf(&b, "\n📝 %s\n", html.EscapeString(eff.Description))
	}
	fmt.Fprintf(&b, "🔁 Series #%d", eff.SeriesID)
	return b.String()
}
