package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/timezone"
)

var endOfDay = civil.Time{Hour: 23, Minute: 59, Second: 59}

// Materializer turns a series and a window into occurrence rows.
//
// Runs are best-effort: a row that fails to write is counted and reported,
// the rest of the window is still written. Writes are insert-if-absent on
// (series_id, start_at), so concurrent or interrupted runs are safe to repeat.
// Identical concurrent requests share one run.
type Materializer struct {
	series      SeriesStore
	occurrences OccurrenceStore
	tz          *timezone.Converter
	logger      *zap.Logger

	group singleflight.Group
}

func NewMaterializer(series SeriesStore, occurrences OccurrenceStore, tz *timezone.Converter, logger *zap.Logger) *Materializer {
	return &Materializer{
		series:      series,
		occurrences: occurrences,
		tz:          tz,
		logger:      logger,
	}
}

// Materialize writes the occurrences of series inside w, at most
// maxOccurrences of them.
//
// An inactive series is a no-op with Inactive set. Invalid rules and unknown
// zones fail before any write. Row failures land in Failed and Warnings with
// a nil error. A cancelled ctx stops the run and returns the partial result
// together with the context error. Identical concurrent calls share one run;
// when the caller owning that run is cancelled, the others run again under
// their own context.
func (m *Materializer) Materialize(ctx context.Context, series *model.JobSeries, w recurrence.Window, maxOccurrences int) (model.GenerationResult, error) {
	if !series.IsActive {
		return model.GenerationResult{Inactive: true}, nil
	}

	sched := series.Scheduling()
	key := fmt.Sprintf("%d|%s|%s|%d|%v", series.ID, w.Start, w.End, maxOccurrences, sched)

	for {
		v, err, shared := m.group.Do(key, func() (any, error) {
			return m.run(ctx, series, w, maxOccurrences)
		})
		res := v.(model.GenerationResult)
		if !shared {
			return res, err
		}

		// the shared run belonged to a caller that went away; run again
		// under our own context
		if isContextErr(err) && ctx.Err() == nil {
			m.logger.Debug("Shared materialization was cancelled, retrying", zap.Int64("series_id", series.ID))
			continue
		}

		res.Warnings = append([]string(nil), res.Warnings...)
		m.logger.Debug("Materialization shared with concurrent caller", zap.Int64("series_id", series.ID))
		return res, err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Materializer) run(ctx context.Context, series *model.JobSeries, w recurrence.Window, maxOccurrences int) (model.GenerationResult, error) {
	var res model.GenerationResult

	log := m.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.Int64("series_id", series.ID),
		zap.String("window_start", w.Start.String()),
		zap.String("window_end", w.End.String()),
	)

	if _, err := m.tz.Location(series.Timezone); err != nil {
		log.Error("Unknown series timezone", zap.String("timezone", series.Timezone), zap.Error(err))
		return res, err
	}

	exp, err := recurrence.ExpandLimit(series.Recurrence, series.Anchor(), w, maxOccurrences)
	if err != nil {
		return res, err
	}
	res.Truncated = exp.Truncated

	var last time.Time
	for _, start := range exp.Starts {
		if err := ctx.Err(); err != nil {
			log.Warn("Materialization interrupted", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
			return res, err
		}

		startAt, err := m.tz.ToInstant(start.Date, start.Time, series.Timezone)
		if err != nil {
			return res, err
		}
		last = startAt

		occ := &model.JobOccurrence{
			SeriesID:   series.ID,
			StartAt:    startAt,
			EndAt:      startAt.Add(series.Duration()),
			Status:     model.OccurrenceScheduled,
			AssigneeID: series.AssigneeID,
		}

		created, err := m.occurrences.InsertIfAbsent(ctx, occ)
		switch {
		case err != nil && ctx.Err() != nil:
			log.Warn("Materialization interrupted", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
			return res, ctx.Err()
		case err != nil:
			res.Failed++
			res.Warnings = append(res.Warnings, fmt.Sprintf("occurrence at %s not written: %v", startAt.Format(time.RFC3339), err))
			log.Warn("⚠️ Failed to write occurrence", zap.Time("start_at", startAt), zap.Error(err))
		case created:
			res.Created++
		default:
			res.Skipped++
			log.Debug("Occurrence already exists", zap.Time("start_at", startAt))
		}
	}

	if !w.Empty() {
		mark, err := m.highWaterMark(series, w, exp, last)
		if err != nil {
			return res, err
		}
		if err := m.series.UpdateLastGeneratedUntil(ctx, series.ID, mark); err != nil {
			res.Warnings = append(res.Warnings, "generation mark not saved: "+err.Error())
			log.Warn("Failed to update last generated until", zap.Error(err))
		} else {
			res.WindowEnd = &mark
		}
	}

	log.Info("✅ Materialization finished",
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Bool("truncated", res.Truncated),
	)

	return res, nil
}

// highWaterMark is the end of the last window day in the series zone, or the
// last written start when the cap cut the window short.
func (m *Materializer) highWaterMark(series *model.JobSeries, w recurrence.Window, exp recurrence.Expansion, last time.Time) (time.Time, error) {
	if exp.Truncated && !last.IsZero() {
		return last, nil
	}
	return m.tz.ToInstant(w.End, endOfDay, series.Timezone)
}
