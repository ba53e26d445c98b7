package handlers

import (
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
)

const (
	newSeriesUsage  = "use /new_series <customer_id> | <title> | <YYYY-MM-DD HH:MM> | <minutes> | <zone> | <rule> [| priority]"
	editSeriesUsage = "use /edit_series <id> | field=value | ..."
	overrideUsage   = "use /override <job id> | title=... | description=... | cost=..."
)

// splitPipes делит хвост команды по "|" и обрезает пробелы
func splitPipes(text string) []string {
	tail := commandTail(text)
	if tail == "" {
		return nil
	}
	parts := strings.Split(tail, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseNewSeries разбирает /new_series в шаблон серии
func parseNewSeries(text string) (*model.JobSeries, error) {
	parts := splitPipes(text)
	if len(parts) < 6 || len(parts) > 7 {
		return nil, apperr.Validation("series", newSeriesUsage)
	}

	customerID, err := strconv.ParseInt(strings.TrimPrefix(parts[0], "#"), 10, 64)
	if err != nil || customerID <= 0 {
		return nil, apperr.Validationf("customer_id", "%q is not an id", parts[0])
	}

	start, err := time.Parse("2006-01-02 15:04", parts[2])
	if err != nil {
		return nil, apperr.Validationf("start", "%q is not YYYY-MM-DD HH:MM", parts[2])
	}

	minutes, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, apperr.Validationf("duration_minutes", "%q is not a number", parts[3])
	}

	rule, err := recurrence.Parse(parts[5])
	if err != nil {
		return nil, err
	}

	series := &model.JobSeries{
		CustomerID:      customerID,
		Title:           parts[1],
		StartDate:       civil.DateOf(start),
		LocalStartTime:  civil.Time{Hour: start.Hour(), Minute: start.Minute()},
		DurationMinutes: minutes,
		Timezone:        parts[4],
		Recurrence:      rule,
	}
	if len(parts) == 7 && parts[6] != "" {
		series.Priority = model.JobPriority(strings.ToLower(parts[6]))
	}
	return series, nil
}

// keyValue - одна пара field=value
type keyValue struct {
	Key   string
	Value string
}

// parseFieldArgs разбирает "/cmd <id> | a=b | c=d"
func parseFieldArgs(text, usage string) (int64, []keyValue, error) {
	parts := splitPipes(text)
	if len(parts) < 2 {
		return 0, nil, apperr.Validation("fields", usage)
	}

	id, err := parseID(parts[0])
	if err != nil {
		return 0, nil, err
	}

	pairs := make([]keyValue, 0, len(parts)-1)
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return 0, nil, apperr.Validationf("fields", "%q is not field=value", part)
		}
		pairs = append(pairs, keyValue{Key: key, Value: strings.TrimSpace(value)})
	}
	return id, pairs, nil
}

// parseSeriesEdit собирает частичное обновление серии из /edit_series
func parseSeriesEdit(text string) (int64, model.SeriesUpdate, error) {
	var upd model.SeriesUpdate

	id, pairs, err := parseFieldArgs(text, editSeriesUsage)
	if err != nil {
		return 0, upd, err
	}

	for _, kv := range pairs {
		v := kv.Value
		switch kv.Key {
		case "title":
			upd.Title = &v
		case "description":
			upd.Description = &v
		case "priority":
			p := model.JobPriority(strings.ToLower(v))
			upd.Priority = &p
		case "date":
			d, err := civil.ParseDate(v)
			if err != nil {
				return 0, upd, apperr.Validationf("start_date", "%q is not YYYY-MM-DD", v)
			}
			upd.StartDate = &d
		case "time":
			t, err := time.Parse("15:04", v)
			if err != nil {
				return 0, upd, apperr.Validationf("start_time", "%q is not HH:MM", v)
			}
			clock := civil.Time{Hour: t.Hour(), Minute: t.Minute()}
			upd.LocalStartTime = &clock
		case "minutes":
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, upd, apperr.Validationf("duration_minutes", "%q is not a number", v)
			}
			upd.DurationMinutes = &n
		case "zone":
			upd.Timezone = &v
		case "rule":
			rule, err := recurrence.Parse(v)
			if err != nil {
				return 0, upd, err
			}
			upd.Recurrence = &rule
		case "cost":
			cents, err := parseCost(v)
			if err != nil {
				return 0, upd, err
			}
			upd.EstimatedCost = &cents
		case "assignee":
			assignee, err := parseAssignee(v)
			if err != nil {
				return 0, upd, err
			}
			if assignee == nil {
				upd.ClearAssignee = true
			} else {
				upd.AssigneeID = assignee
			}
		default:
			return 0, upd, apperr.Validationf("fields", "unknown field %q", kv.Key)
		}
	}
	return id, upd, nil
}

// applyOverrideArgs накладывает пары из /override на текущие переопределения.
// Пустое значение снимает переопределение.
func applyOverrideArgs(cur model.Overrides, pairs []keyValue) (model.Overrides, error) {
	for _, kv := range pairs {
		v := kv.Value
		switch kv.Key {
		case "title":
			cur.Title = optionalString(v)
		case "description":
			cur.Description = optionalString(v)
		case "cost":
			if v == "" {
				cur.EstimatedCost = nil
				continue
			}
			cents, err := parseCost(v)
			if err != nil {
				return cur, err
			}
			cur.EstimatedCost = &cents
		default:
			return cur, apperr.Validationf("fields", "unknown field %q", kv.Key)
		}
	}
	return cur, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// parseCost переводит "125" или "$12.50" в центы
func parseCost(raw string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	whole, frac, hasFrac := strings.Cut(v, ".")

	dollars, err := strconv.Atoi(whole)
	if err != nil || dollars < 0 {
		return 0, apperr.Validationf("estimated_cost", "%q is not an amount", raw)
	}

	cents := 0
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, apperr.Validationf("estimated_cost", "%q is not an amount", raw)
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.Atoi(frac)
		if err != nil || cents < 0 {
			return 0, apperr.Validationf("estimated_cost", "%q is not an amount", raw)
		}
	}
	return dollars*100 + cents, nil
}

// parseAssignee возвращает nil для "none"
func parseAssignee(raw string) (*int64, error) {
	if strings.EqualFold(raw, "none") || raw == "-" {
		return nil, nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Validationf("assignee_id", "%q is not an id or none", raw)
	}
	return &id, nil
}

// parseAssign разбирает "/assign <job id> <assignee id|none>"
func parseAssign(text string) (int64, *int64, error) {
	args := commandArgs(text)
	if len(args) != 2 {
		return 0, nil, apperr.Validation("assignee_id", "use /assign <job id> <assignee id|none>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return 0, nil, err
	}
	assignee, err := parseAssignee(args[1])
	if err != nil {
		return 0, nil, err
	}
	return id, assignee, nil
}
