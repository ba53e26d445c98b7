package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/model"
)

// MaxCalendarRange bounds a single Calendar query.
const MaxCalendarRange = 366 * 24 * time.Hour

type OccurrenceService struct {
	occurrences OccurrenceStore
	series      SeriesStore
	logger      *zap.Logger

	now func() time.Time
}

func NewOccurrenceService(occurrences OccurrenceStore, series SeriesStore, logger *zap.Logger) *OccurrenceService {
	return &OccurrenceService{
		occurrences: occurrences,
		series:      series,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *OccurrenceService) Get(ctx context.Context, id int64) (*model.JobOccurrence, error) {
	occ, err := s.occurrences.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get occurrence")
	}
	if occ == nil {
		return nil, apperr.NotFound("occurrence", id)
	}
	return occ, nil
}

// Cancel cancels one occurrence. With cascade it also cancels every future
// occurrence of the same series that is not completed or already cancelled.
// It returns the number of cancelled rows.
func (s *OccurrenceService) Cancel(ctx context.Context, id int64, cascade bool) (int64, error) {
	occ, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	if !cascade {
		if err := s.transition(ctx, occ, model.OccurrenceCancelled); err != nil {
			return 0, err
		}
		return 1, nil
	}

	if occ.Status == model.OccurrenceCompleted {
		return 0, apperr.InvalidTransition(string(occ.Status), string(model.OccurrenceCancelled))
	}

	n, err := s.occurrences.CancelCascade(ctx, id, s.now())
	if err != nil {
		return 0, apperr.Wrap(err, "cancel occurrences")
	}

	s.logger.Info("Occurrences cancelled",
		zap.Int64("occurrence_id", id),
		zap.Int64("series_id", occ.SeriesID),
		zap.Int64("cancelled", n),
	)
	return n, nil
}

// Start marks a scheduled occurrence as in progress.
func (s *OccurrenceService) Start(ctx context.Context, id int64) error {
	return s.transitionByID(ctx, id, model.OccurrenceInProgress)
}

func (s *OccurrenceService) Complete(ctx context.Context, id int64) error {
	return s.transitionByID(ctx, id, model.OccurrenceCompleted)
}

// Restore brings a cancelled occurrence back to scheduled.
func (s *OccurrenceService) Restore(ctx context.Context, id int64) error {
	return s.transitionByID(ctx, id, model.OccurrenceScheduled)
}

// SetOverrides replaces the per-occurrence overrides. Regeneration never
// touches them.
func (s *OccurrenceService) SetOverrides(ctx context.Context, id int64, o model.Overrides) error {
	if o.Title != nil && *o.Title == "" {
		return apperr.Validation("title", "override must not be empty")
	}
	if o.EstimatedCost != nil && *o.EstimatedCost < 0 {
		return apperr.Validation("estimated_cost", "must not be negative")
	}

	found, err := s.occurrences.SetOverrides(ctx, id, o)
	if err != nil {
		return apperr.Wrap(err, "set overrides")
	}
	if !found {
		return apperr.NotFound("occurrence", id)
	}
	return nil
}

// Reassign sets the assignee of one occurrence; nil clears it.
func (s *OccurrenceService) Reassign(ctx context.Context, id int64, assigneeID *int64) error {
	found, err := s.occurrences.SetAssignee(ctx, id, assigneeID)
	if err != nil {
		return apperr.Wrap(err, "reassign occurrence")
	}
	if !found {
		return apperr.NotFound("occurrence", id)
	}
	return nil
}

// Effective returns the occurrence merged over its series defaults.
func (s *OccurrenceService) Effective(ctx context.Context, id int64) (*model.EffectiveOccurrence, error) {
	occ, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	series, err := s.series.GetByID(ctx, occ.SeriesID)
	if err != nil {
		return nil, apperr.Wrap(err, "get series")
	}
	if series == nil {
		return nil, apperr.NotFound("series", occ.SeriesID)
	}

	eff := model.Resolve(series, occ)
	return &eff, nil
}

// Calendar returns the display projection of occurrences starting in [from, to).
func (s *OccurrenceService) Calendar(ctx context.Context, from, to time.Time) ([]model.OccurrenceView, error) {
	if !to.After(from) {
		return nil, apperr.Validation("to", "must be after from")
	}
	if to.Sub(from) > MaxCalendarRange {
		return nil, apperr.Validation("to", "range is longer than a year")
	}

	views, err := s.occurrences.Calendar(ctx, from, to)
	if err != nil {
		return nil, apperr.Wrap(err, "query calendar")
	}
	return views, nil
}

func (s *OccurrenceService) transitionByID(ctx context.Context, id int64, to model.OccurrenceStatus) error {
	occ, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.transition(ctx, occ, to)
}

func (s *OccurrenceService) transition(ctx context.Context, occ *model.JobOccurrence, to model.OccurrenceStatus) error {
	if !occ.Status.CanTransition(to) {
		return apperr.InvalidTransition(string(occ.Status), string(to))
	}

	ok, err := s.occurrences.UpdateStatus(ctx, occ.ID, occ.Status, to)
	if err != nil {
		return apperr.Wrap(err, "update occurrence status")
	}
	if !ok {
		return apperr.Wrapf(apperr.ErrInvalidTransition, "occurrence %d changed concurrently", occ.ID)
	}

	s.logger.Info("Occurrence status changed",
		zap.Int64("occurrence_id", occ.ID),
		zap.String("from", string(occ.Status)),
		zap.String("to", string(to)),
	)
	occ.Status = to
	return nil
}
