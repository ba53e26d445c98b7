// Package export renders the occurrence calendar projection for external
// calendar clients.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/Freeeeeet/servicejobs/internal/model"
)

const productID = "-//Freeeeeet//servicejobs//EN"

// uidNamespace makes event UIDs stable across exports of the same occurrence.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("servicejobs/occurrence"))

// EventUID returns the stable UID of an occurrence.
func EventUID(occurrenceID int64) string {
	return uuid.NewSHA1(uidNamespace, []byte(strconv.FormatInt(occurrenceID, 10))).String()
}

// Calendar builds a PUBLISH calendar from views. Times are written in UTC.
func Calendar(name string, views []model.OccurrenceView, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(name)
	cal.SetXWRCalName(name)

	for _, v := range views {
		event := cal.AddEvent(EventUID(v.ID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(v.StartAt)
		event.SetEndAt(v.EndAt)
		event.SetSummary(summary(v))
		event.SetDescription(fmt.Sprintf("Series #%d, job #%d, status %s", v.SeriesID, v.ID, v.Status))
		event.SetStatus(eventStatus(v.Status))
		event.SetPriority(icalPriority(v.Priority))
		event.AddCategory(string(v.Priority))
	}

	return cal
}

// WriteICS serializes the calendar with CRLF line endings.
func WriteICS(w io.Writer, name string, views []model.OccurrenceView, stamp time.Time) error {
	if err := Calendar(name, views, stamp).SerializeTo(w, ical.WithNewLineWindows); err != nil {
		return fmt.Errorf("serialize ics: %w", err)
	}
	return nil
}

func summary(v model.OccurrenceView) string {
	if v.CustomerName == "" {
		return v.Title
	}
	return v.Title + " - " + v.CustomerName
}

func eventStatus(s model.OccurrenceStatus) ical.ObjectStatus {
	if s == model.OccurrenceCancelled {
		return ical.ObjectStatusCancelled
	}
	return ical.ObjectStatusConfirmed
}

// icalPriority maps to RFC 5545 PRIORITY, 1 highest, 9 lowest.
func icalPriority(p model.JobPriority) int {
	switch p {
	case model.PriorityUrgent:
		return 1
	case model.PriorityHigh:
		return 3
	case model.PriorityLow:
		return 9
	default:
		return 5
	}
}
