package model

import "time"

type OccurrenceStatus string

const (
	OccurrenceScheduled  OccurrenceStatus = "scheduled"
	OccurrenceInProgress OccurrenceStatus = "in_progress"
	OccurrenceCompleted  OccurrenceStatus = "completed"
	OccurrenceCancelled  OccurrenceStatus = "cancelled"
)

var occurrenceTransitions = map[OccurrenceStatus][]OccurrenceStatus{
	OccurrenceScheduled:  {OccurrenceInProgress, OccurrenceCancelled},
	OccurrenceInProgress: {OccurrenceCompleted, OccurrenceCancelled},
	OccurrenceCancelled:  {OccurrenceScheduled},
}

// CanTransition reports whether a status change from s to next is allowed.
func (s OccurrenceStatus) CanTransition(next OccurrenceStatus) bool {
	for _, allowed := range occurrenceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether cascades must leave the occurrence alone.
func (s OccurrenceStatus) IsFinal() bool {
	return s == OccurrenceCompleted || s == OccurrenceCancelled
}

// JobOccurrence is one materialized instance of a series.
// (SeriesID, StartAt) is unique.
type JobOccurrence struct {
	ID       int64            `json:"id"`
	SeriesID int64            `json:"series_id"`
	StartAt  time.Time        `json:"start_at"` // UTC
	EndAt    time.Time        `json:"end_at"`   // UTC
	Status   OccurrenceStatus `json:"status"`

	Overrides  Overrides `json:"overrides"`
	AssigneeID *int64    `json:"assignee_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overrides take precedence over series defaults when set.
type Overrides struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	EstimatedCost *int    `json:"estimated_cost,omitempty"`
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.Title == nil && o.Description == nil && o.EstimatedCost == nil
}

// OccurrenceView is the read-only calendar projection. StartAt/EndAt are
// absolute instants; no wall-clock field is exposed.
type OccurrenceView struct {
	ID           int64            `json:"id"`
	SeriesID     int64            `json:"series_id"`
	StartAt      time.Time        `json:"start_at"`
	EndAt        time.Time        `json:"end_at"`
	Status       OccurrenceStatus `json:"status"`
	Priority     JobPriority      `json:"priority"`
	Title        string           `json:"title"`
	CustomerName string           `json:"customer_name"`
}
