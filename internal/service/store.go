package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/servicejobs/internal/model"
)

// SeriesStore is implemented by repository.SeriesRepository.
// Lookups return nil, nil for missing rows.
type SeriesStore interface {
	Create(ctx context.Context, s *model.JobSeries) error
	GetByID(ctx context.Context, id int64) (*model.JobSeries, error)
	ListActive(ctx context.Context) ([]*model.JobSeries, error)
	Update(ctx context.Context, id int64, mutate func(s *model.JobSeries) error) (*model.JobSeries, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	UpdateLastGeneratedUntil(ctx context.Context, id int64, until time.Time) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// OccurrenceStore is implemented by repository.OccurrenceRepository.
// InsertIfAbsent must be atomic on (series_id, start_at).
type OccurrenceStore interface {
	InsertIfAbsent(ctx context.Context, occ *model.JobOccurrence) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.JobOccurrence, error)
	ListBySeries(ctx context.Context, seriesID int64, from, to time.Time) ([]*model.JobOccurrence, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.OccurrenceStatus) (bool, error)
	CancelCascade(ctx context.Context, id int64, now time.Time) (int64, error)
	SetOverrides(ctx context.Context, id int64, o model.Overrides) (bool, error)
	SetAssignee(ctx context.Context, id int64, assigneeID *int64) (bool, error)
	Calendar(ctx context.Context, from, to time.Time) ([]model.OccurrenceView, error)
}

type CustomerStore interface {
	GetByID(ctx context.Context, id int64) (*model.Customer, error)
}
