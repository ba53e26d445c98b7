package model

import "time"

// EffectiveOccurrence is an occurrence with overrides merged over the
// series defaults.
type EffectiveOccurrence struct {
	ID            int64
	SeriesID      int64
	StartAt       time.Time
	EndAt         time.Time
	Status        OccurrenceStatus
	Title         string
	Description   string
	Priority      JobPriority
	EstimatedCost *int
	AssigneeID    *int64
}

// Resolve merges occ over the defaults of series.
func Resolve(series *JobSeries, occ *JobOccurrence) EffectiveOccurrence {
	eff := EffectiveOccurrence{
		ID:            occ.ID,
		SeriesID:      occ.SeriesID,
		StartAt:       occ.StartAt,
		EndAt:         occ.EndAt,
		Status:        occ.Status,
		Title:         series.Title,
		Description:   series.Description,
		Priority:      series.Priority,
		EstimatedCost: series.EstimatedCost,
		AssigneeID:    series.AssigneeID,
	}

	if occ.Overrides.Title != nil {
		eff.Title = *occ.Overrides.Title
	}
	if occ.Overrides.Description != nil {
		eff.Description = *occ.Overrides.Description
	}
	if occ.Overrides.EstimatedCost != nil {
		eff.EstimatedCost = occ.Overrides.EstimatedCost
	}
	if occ.AssigneeID != nil {
		eff.AssigneeID = occ.AssigneeID
	}

	return eff
}
