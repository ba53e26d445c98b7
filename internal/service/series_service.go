package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/timezone"
)

// Options are the generation defaults of SeriesService.
type Options struct {
	GenerationMonthsAhead    int           // default window of Generate
	GenerationMaxOccurrences int           // default cap of Generate and of mutations
	MutationMonthsAhead      int           // window used after create/update/reactivate
	GenerationTimeout        time.Duration // per series
	Workers                  int           // GenerateAll fan-out
}

func DefaultOptions() Options {
	return Options{
		GenerationMonthsAhead:    6,
		GenerationMaxOccurrences: 200,
		MutationMonthsAhead:      3,
		GenerationTimeout:        2 * time.Minute,
		Workers:                  4,
	}
}

// GenerateRequest is the generation entry point input. Zero values take the defaults.
type GenerateRequest struct {
	SeriesID       int64
	MonthsAhead    int
	MaxOccurrences int
}

// MutationOutcome is returned by create, update and reactivate. The mutation
// itself succeeded; generation problems are reported in Warnings.
type MutationOutcome struct {
	Series     *model.JobSeries
	State      model.SeriesState
	Generation *model.GenerationResult
	Warnings   []string
}

// SweepSummary aggregates one GenerateAll run.
type SweepSummary struct {
	Series   int
	Created  int
	Skipped  int
	Failed   int
	Errors   int
	Duration time.Duration
}

type SeriesService struct {
	series       SeriesStore
	customers    CustomerStore
	materializer *Materializer
	tz           *timezone.Converter
	opts         Options
	logger       *zap.Logger

	now func() time.Time
}

func NewSeriesService(
	series SeriesStore,
	customers CustomerStore,
	materializer *Materializer,
	tz *timezone.Converter,
	opts Options,
	logger *zap.Logger,
) *SeriesService {
	def := DefaultOptions()
	if opts.GenerationMonthsAhead <= 0 {
		opts.GenerationMonthsAhead = def.GenerationMonthsAhead
	}
	if opts.GenerationMaxOccurrences <= 0 {
		opts.GenerationMaxOccurrences = def.GenerationMaxOccurrences
	}
	if opts.MutationMonthsAhead <= 0 {
		opts.MutationMonthsAhead = def.MutationMonthsAhead
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = def.GenerationTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}

	return &SeriesService{
		series:       series,
		customers:    customers,
		materializer: materializer,
		tz:           tz,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// Get returns the series or a NotFound error.
func (s *SeriesService) Get(ctx context.Context, id int64) (*model.JobSeries, error) {
	series, err := s.series.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get series")
	}
	if series == nil {
		return nil, apperr.NotFound("series", id)
	}
	return series, nil
}

// Create validates and persists a new active series, then materializes the
// mutation window.
func (s *SeriesService) Create(ctx context.Context, series *model.JobSeries) (*MutationOutcome, error) {
	series.IsActive = true
	series.LastGeneratedUntil = nil
	if series.Priority == "" {
		series.Priority = model.PriorityNormal
	}

	if err := s.validate(series); err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByID(ctx, series.CustomerID)
	if err != nil {
		return nil, apperr.Wrap(err, "get customer")
	}
	if customer == nil {
		return nil, apperr.Validationf("customer_id", "customer %d does not exist", series.CustomerID)
	}

	if err := s.series.Create(ctx, series); err != nil {
		s.logger.Error("Failed to create series", zap.Int64("customer_id", series.CustomerID), zap.Error(err))
		return nil, apperr.Wrap(err, "create series")
	}

	s.logger.Info("Series created",
		zap.Int64("series_id", series.ID),
		zap.Int64("customer_id", series.CustomerID),
		zap.String("rule", series.Recurrence.String()),
		zap.String("timezone", series.Timezone),
	)

	outcome := &MutationOutcome{Series: series, State: model.SeriesCreated}
	s.regenerate(ctx, outcome)
	if outcome.State == model.SeriesRegenerated {
		outcome.State = model.SeriesCreated
	}
	return outcome, nil
}

// Update applies upd atomically. When a scheduling field actually changed and
// the series is active, the mutation window is materialized again. Occurrences
// that no longer match the new schedule are left in place.
func (s *SeriesService) Update(ctx context.Context, id int64, upd model.SeriesUpdate) (*MutationOutcome, error) {
	var before model.SchedulingFields

	series, err := s.series.Update(ctx, id, func(cur *model.JobSeries) error {
		before = cur.Scheduling()
		upd.Apply(cur)
		return s.validate(cur)
	})
	if err != nil {
		if apperr.Is(err, apperr.ErrValidation) || apperr.Is(err, apperr.ErrTimeZone) {
			return nil, err
		}
		return nil, apperr.Wrap(err, "update series")
	}
	if series == nil {
		return nil, apperr.NotFound("series", id)
	}

	outcome := &MutationOutcome{Series: series, State: model.SeriesUpdated}

	changed := series.Scheduling() != before
	s.logger.Info("Series updated", zap.Int64("series_id", id), zap.Bool("scheduling_changed", changed))

	if !changed || !series.IsActive {
		return outcome, nil
	}

	outcome.State = model.SeriesPendingRegeneration
	s.regenerate(ctx, outcome)
	return outcome, nil
}

// Deactivate stops future generation. Existing occurrences stay.
func (s *SeriesService) Deactivate(ctx context.Context, id int64) error {
	found, err := s.series.SetActive(ctx, id, false)
	if err != nil {
		return apperr.Wrap(err, "deactivate series")
	}
	if !found {
		return apperr.NotFound("series", id)
	}

	s.logger.Info("Series deactivated", zap.Int64("series_id", id))
	return nil
}

// Reactivate turns generation back on and fills the mutation window.
func (s *SeriesService) Reactivate(ctx context.Context, id int64) (*MutationOutcome, error) {
	found, err := s.series.SetActive(ctx, id, true)
	if err != nil {
		return nil, apperr.Wrap(err, "reactivate series")
	}
	if !found {
		return nil, apperr.NotFound("series", id)
	}

	series, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Series reactivated", zap.Int64("series_id", id))

	outcome := &MutationOutcome{Series: series, State: model.SeriesPendingRegeneration}
	s.regenerate(ctx, outcome)
	return outcome, nil
}

// Delete removes the series together with all its occurrences.
func (s *SeriesService) Delete(ctx context.Context, id int64) error {
	found, err := s.series.Delete(ctx, id)
	if err != nil {
		return apperr.Wrap(err, "delete series")
	}
	if !found {
		return apperr.NotFound("series", id)
	}

	s.logger.Info("Series deleted", zap.Int64("series_id", id))
	return nil
}

// Generate materializes [today, today+MonthsAhead] in the series zone.
func (s *SeriesService) Generate(ctx context.Context, req GenerateRequest) (model.GenerationResult, error) {
	if req.MonthsAhead <= 0 {
		req.MonthsAhead = s.opts.GenerationMonthsAhead
	}
	if req.MaxOccurrences <= 0 {
		req.MaxOccurrences = s.opts.GenerationMaxOccurrences
	}

	series, err := s.Get(ctx, req.SeriesID)
	if err != nil {
		return model.GenerationResult{}, err
	}

	return s.generate(ctx, series, req.MonthsAhead, req.MaxOccurrences)
}

// GenerateAll rolls the default window forward for every active series.
// A failing series is logged and counted; it never stops the others.
func (s *SeriesService) GenerateAll(ctx context.Context) (SweepSummary, error) {
	started := s.now()

	list, err := s.series.ListActive(ctx)
	if err != nil {
		return SweepSummary{}, apperr.Wrap(err, "list active series")
	}

	var (
		mu      sync.Mutex
		summary = SweepSummary{Series: len(list)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, series := range list {
		g.Go(func() error {
			res, err := s.generate(gctx, series, s.opts.GenerationMonthsAhead, s.opts.GenerationMaxOccurrences)

			mu.Lock()
			defer mu.Unlock()

			summary.Created += res.Created
			summary.Skipped += res.Skipped
			summary.Failed += res.Failed
			if err != nil {
				summary.Errors++
				s.logger.Error("Failed to generate occurrences for series",
					zap.Int64("series_id", series.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = s.now().Sub(started)

	s.logger.Info("Generated occurrences for all active series",
		zap.Int("total_series", summary.Series),
		zap.Int("created", summary.Created),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("errors", summary.Errors),
	)

	return summary, ctx.Err()
}

func (s *SeriesService) generate(ctx context.Context, series *model.JobSeries, monthsAhead, maxOccurrences int) (model.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	today, err := s.tz.Today(s.now(), series.Timezone)
	if err != nil {
		return model.GenerationResult{}, err
	}

	w := recurrence.NewGenerationWindow(today, monthsAhead, series.Recurrence.Until)
	return s.materializer.Materialize(ctx, series, w, maxOccurrences)
}

// regenerate fills the mutation window and records the result on outcome.
func (s *SeriesService) regenerate(ctx context.Context, outcome *MutationOutcome) {
	res, err := s.generate(ctx, outcome.Series, s.opts.MutationMonthsAhead, s.opts.GenerationMaxOccurrences)
	if err != nil {
		s.logger.Warn("Generation after mutation failed",
			zap.Int64("series_id", outcome.Series.ID),
			zap.Error(err),
		)
		outcome.State = model.SeriesPendingRegeneration
		outcome.Generation = &res
		outcome.Warnings = append(outcome.Warnings, "occurrences not generated: "+err.Error())
		return
	}

	outcome.State = model.SeriesRegenerated
	outcome.Generation = &res
	outcome.Warnings = append(outcome.Warnings, res.Warnings...)
	if res.Truncated {
		outcome.Warnings = append(outcome.Warnings, "occurrence cap reached, window not fully generated")
	}
}

func (s *SeriesService) validate(series *model.JobSeries) error {
	if strings.TrimSpace(series.Title) == "" {
		return apperr.Validation("title", "must not be empty")
	}
	if series.DurationMinutes <= 0 {
		return apperr.Validationf("duration_minutes", "must be positive, got %d", series.DurationMinutes)
	}
	if !series.StartDate.IsValid() {
		return apperr.Validationf("start_date", "invalid date %s", series.StartDate)
	}
	if !series.LocalStartTime.IsValid() {
		return apperr.Validationf("start_time", "invalid time %s", series.LocalStartTime)
	}
	if !series.Priority.Valid() {
		return apperr.Validationf("priority", "unknown priority %q", series.Priority)
	}
	if err := series.Recurrence.Validate(); err != nil {
		return err
	}
	if until := series.Recurrence.Until; until != nil && until.Before(series.StartDate) {
		return apperr.Validationf("UNTIL", "%s is before start date %s", *until, series.StartDate)
	}
	if _, err := s.tz.Location(series.Timezone); err != nil {
		return err
	}
	return nil
}
