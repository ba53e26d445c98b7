package model

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/Freeeeeet/servicejobs/internal/recurrence"
)

type JobPriority string

const (
	PriorityLow    JobPriority = "low"
	PriorityNormal JobPriority = "normal"
	PriorityHigh   JobPriority = "high"
	PriorityUrgent JobPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p JobPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// JobSeries is the template of a recurring job
type JobSeries struct {
	ID         int64 `json:"id"`
	CustomerID int64 `json:"customer_id"`

	StartDate       civil.Date      `json:"start_date"`       // first day of the series, wall-clock
	LocalStartTime  civil.Time      `json:"local_start_time"` // time of day in Timezone
	DurationMinutes int             `json:"duration_minutes"`
	Timezone        string          `json:"timezone"` // IANA name
	Recurrence      recurrence.Rule `json:"-"`

	IsActive           bool       `json:"is_active"`
	LastGeneratedUntil *time.Time `json:"last_generated_until"` // high-water mark of materialization

	// defaults copied into new occurrences
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Priority      JobPriority `json:"priority"`
	AssigneeID    *int64      `json:"assignee_id"`
	EstimatedCost *int        `json:"estimated_cost"` // cents

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Anchor returns the wall-clock start of the series.
func (s *JobSeries) Anchor() civil.DateTime {
	return civil.DateTime{Date: s.StartDate, Time: s.LocalStartTime}
}

// Duration returns the length of every occurrence.
func (s *JobSeries) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// SchedulingFields is the part of a series that decides where occurrences fall.
type SchedulingFields struct {
	StartDate       civil.Date
	LocalStartTime  civil.Time
	DurationMinutes int
	Timezone        string
	Recurrence      string
}

// Scheduling extracts the scheduling fields of s for change detection.
func (s *JobSeries) Scheduling() SchedulingFields {
	return SchedulingFields{
		StartDate:       s.StartDate,
		LocalStartTime:  s.LocalStartTime,
		DurationMinutes: s.DurationMinutes,
		Timezone:        s.Timezone,
		Recurrence:      s.Recurrence.String(),
	}
}

// SeriesUpdate is a partial update. Nil fields are left untouched.
type SeriesUpdate struct {
	// scheduling
	StartDate       *civil.Date
	LocalStartTime  *civil.Time
	DurationMinutes *int
	Timezone        *string
	Recurrence      *recurrence.Rule

	// cosmetic
	Title         *string
	Description   *string
	Priority      *JobPriority
	AssigneeID    *int64
	ClearAssignee bool
	EstimatedCost *int
}

// TouchesScheduling reports whether u sets any scheduling field.
func (u SeriesUpdate) TouchesScheduling() bool {
	return u.StartDate != nil || u.LocalStartTime != nil || u.DurationMinutes != nil ||
		u.Timezone != nil || u.Recurrence != nil
}

// Apply writes the set fields of u into s.
func (u SeriesUpdate) Apply(s *JobSeries) {
	if u.StartDate != nil {
		s.StartDate = *u.StartDate
	}
	if u.LocalStartTime != nil {
		s.LocalStartTime = *u.LocalStartTime
	}
	if u.DurationMinutes != nil {
		s.DurationMinutes = *u.DurationMinutes
	}
	if u.Timezone != nil {
		s.Timezone = *u.Timezone
	}
	if u.Recurrence != nil {
		s.Recurrence = *u.Recurrence
	}
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Priority != nil {
		s.Priority = *u.Priority
	}
	if u.ClearAssignee {
		s.AssigneeID = nil
	} else if u.AssigneeID != nil {
		id := *u.AssigneeID
		s.AssigneeID = &id
	}
	if u.EstimatedCost != nil {
		cost := *u.EstimatedCost
		s.EstimatedCost = &cost
	}
}

// SeriesState is the lifecycle position of a series after a mutation.
type SeriesState string

const (
	SeriesCreated             SeriesState = "created"
	SeriesUpdated             SeriesState = "updated"
	SeriesPendingRegeneration SeriesState = "pending_regeneration"
	SeriesRegenerated         SeriesState = "regenerated"
)
