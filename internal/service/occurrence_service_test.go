package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/model"
)

var cascadeNow = utc(2024, time.January, 10, 12, 0)

type cascadeFixture struct {
	svc *OccurrenceService
	e   *testEnv

	pastCompleted    int64
	pastScheduled    int64
	futureScheduled  int64
	futureInProgress int64
	futureLater      int64
	otherSeries      int64
}

func newCascadeFixture(t *testing.T) *cascadeFixture {
	t.Helper()

	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=TU,TH", date(2024, time.January, 2), 9))
	other := e.stored(newSeries("FREQ=WEEKLY;BYDAY=TU,TH", date(2024, time.January, 2), 15))

	occ := func(seriesID int64, day int, status model.OccurrenceStatus) int64 {
		start := utc(2024, time.January, day, 14, 0)
		return e.occurrences.put(model.JobOccurrence{
			SeriesID: seriesID,
			StartAt:  start,
			EndAt:    start.Add(time.Hour),
			Status:   status,
		})
	}

	f := &cascadeFixture{
		e:                e,
		pastCompleted:    occ(s.ID, 2, model.OccurrenceCompleted),
		pastScheduled:    occ(s.ID, 4, model.OccurrenceScheduled),
		futureScheduled:  occ(s.ID, 11, model.OccurrenceScheduled),
		futureInProgress: occ(s.ID, 16, model.OccurrenceInProgress),
		futureLater:      occ(s.ID, 18, model.OccurrenceScheduled),
		otherSeries:      occ(other.ID, 11, model.OccurrenceScheduled),
	}

	f.svc = NewOccurrenceService(e.occurrences, e.series, zaptest.NewLogger(t))
	f.svc.now = func() time.Time { return cascadeNow }
	return f
}

func (f *cascadeFixture) status(t *testing.T, id int64) model.OccurrenceStatus {
	t.Helper()

	occ, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	return occ.Status
}

func TestCascadeCancelScope(t *testing.T) {
	for _, from := range []string{"first future", "last future"} {
		t.Run(from, func(t *testing.T) {
			f := newCascadeFixture(t)

			id := f.futureScheduled
			if from == "last future" {
				id = f.futureLater
			}

			n, err := f.svc.Cancel(context.Background(), id, true)
			require.NoError(t, err)
			assert.EqualValues(t, 3, n)

			assert.Equal(t, model.OccurrenceCancelled, f.status(t, f.futureScheduled))
			assert.Equal(t, model.OccurrenceCancelled, f.status(t, f.futureInProgress))
			assert.Equal(t, model.OccurrenceCancelled, f.status(t, f.futureLater))

			assert.Equal(t, model.OccurrenceCompleted, f.status(t, f.pastCompleted))
			assert.Equal(t, model.OccurrenceScheduled, f.status(t, f.pastScheduled))
			assert.Equal(t, model.OccurrenceScheduled, f.status(t, f.otherSeries))
		})
	}
}

func TestCancelSingleOccurrence(t *testing.T) {
	f := newCascadeFixture(t)

	n, err := f.svc.Cancel(context.Background(), f.futureScheduled, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, model.OccurrenceCancelled, f.status(t, f.futureScheduled))
	assert.Equal(t, model.OccurrenceInProgress, f.status(t, f.futureInProgress))
	assert.Equal(t, model.OccurrenceScheduled, f.status(t, f.futureLater))
}

func TestCancelCompletedOccurrenceIsRejected(t *testing.T) {
	f := newCascadeFixture(t)

	for _, cascade := range []bool{false, true} {
		_, err := f.svc.Cancel(context.Background(), f.pastCompleted, cascade)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.ErrInvalidTransition))
	}
	assert.Equal(t, model.OccurrenceScheduled, f.status(t, f.futureScheduled))
}

func TestCancelMissingOccurrence(t *testing.T) {
	f := newCascadeFixture(t)

	_, err := f.svc.Cancel(context.Background(), 404, true)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestStatusTransitions(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()
	id := f.futureScheduled

	assert.True(t, apperr.Is(f.svc.Complete(ctx, id), apperr.ErrInvalidTransition))
	assert.True(t, apperr.Is(f.svc.Restore(ctx, id), apperr.ErrInvalidTransition))

	require.NoError(t, f.svc.Start(ctx, id))
	assert.Equal(t, model.OccurrenceInProgress, f.status(t, id))

	require.NoError(t, f.svc.Complete(ctx, id))
	assert.Equal(t, model.OccurrenceCompleted, f.status(t, id))

	assert.True(t, apperr.Is(f.svc.Start(ctx, id), apperr.ErrInvalidTransition))

	_, err := f.svc.Cancel(ctx, f.futureLater, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.Restore(ctx, f.futureLater))
	assert.Equal(t, model.OccurrenceScheduled, f.status(t, f.futureLater))
}

func TestEffectiveMergesOverrides(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	eff, err := f.svc.Effective(ctx, f.futureScheduled)
	require.NoError(t, err)
	assert.Equal(t, "Pool cleaning", eff.Title)
	assert.Nil(t, eff.EstimatedCost)

	title := "Pool cleaning + pump check"
	cost := 12500
	require.NoError(t, f.svc.SetOverrides(ctx, f.futureScheduled, model.Overrides{Title: &title, EstimatedCost: &cost}))

	tech := int64(7)
	require.NoError(t, f.svc.Reassign(ctx, f.futureScheduled, &tech))

	eff, err = f.svc.Effective(ctx, f.futureScheduled)
	require.NoError(t, err)
	assert.Equal(t, title, eff.Title)
	assert.Equal(t, "", eff.Description)
	require.NotNil(t, eff.EstimatedCost)
	assert.Equal(t, cost, *eff.EstimatedCost)
	require.NotNil(t, eff.AssigneeID)
	assert.Equal(t, tech, *eff.AssigneeID)
}

func TestOverrideValidation(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	empty := ""
	err := f.svc.SetOverrides(ctx, f.futureScheduled, model.Overrides{Title: &empty})
	assert.Equal(t, "title", apperr.FieldOf(err))

	negative := -1
	err = f.svc.SetOverrides(ctx, f.futureScheduled, model.Overrides{EstimatedCost: &negative})
	assert.Equal(t, "estimated_cost", apperr.FieldOf(err))

	err = f.svc.SetOverrides(ctx, 404, model.Overrides{})
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	assert.True(t, apperr.Is(f.svc.Reassign(ctx, 404, nil), apperr.ErrNotFound))
}

func TestCalendarProjection(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	title := "Pool cleaning + pump check"
	require.NoError(t, f.svc.SetOverrides(ctx, f.futureScheduled, model.Overrides{Title: &title}))

	views, err := f.svc.Calendar(ctx, utc(2024, time.January, 10, 0, 0), utc(2024, time.January, 17, 0, 0))
	require.NoError(t, err)
	require.Len(t, views, 3)

	byID := map[int64]model.OccurrenceView{}
	for _, v := range views {
		assert.Equal(t, "Acme Pools", v.CustomerName)
		assert.Equal(t, model.PriorityNormal, v.Priority)
		assert.Equal(t, time.UTC, v.StartAt.Location())
		byID[v.ID] = v
	}
	assert.Equal(t, title, byID[f.futureScheduled].Title)
	assert.Equal(t, "Pool cleaning", byID[f.otherSeries].Title)
	assert.Equal(t, model.OccurrenceInProgress, byID[f.futureInProgress].Status)
}

func TestCalendarRangeValidation(t *testing.T) {
	f := newCascadeFixture(t)
	ctx := context.Background()

	_, err := f.svc.Calendar(ctx, cascadeNow, cascadeNow)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))

	_, err = f.svc.Calendar(ctx, cascadeNow, cascadeNow.AddDate(2, 0, 0))
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}
