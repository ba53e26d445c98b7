package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/timezone"
)

const newYork = "America/New_York"

type testEnv struct {
	series      *memSeries
	occurrences *memOccurrences
	customers   *memCustomers
	tz          *timezone.Converter
	mat         *Materializer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	series := newMemSeries()
	customers := newMemCustomers(model.Customer{ID: 1, Name: "Acme Pools"})
	occurrences := newMemOccurrences(series, customers)
	tz := timezone.NewConverter()

	return &testEnv{
		series:      series,
		occurrences: occurrences,
		customers:   customers,
		tz:          tz,
		mat:         NewMaterializer(series, occurrences, tz, zaptest.NewLogger(t)),
	}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func newSeries(rule string, start civil.Date, hour int) *model.JobSeries {
	return &model.JobSeries{
		CustomerID:      1,
		Title:           "Pool cleaning",
		Priority:        model.PriorityNormal,
		StartDate:       start,
		LocalStartTime:  civil.Time{Hour: hour},
		DurationMinutes: 60,
		Timezone:        newYork,
		Recurrence:      recurrence.MustParse(rule),
		IsActive:        true,
	}
}

// stored saves s in the fake store and returns it with its id.
func (e *testEnv) stored(s *model.JobSeries) *model.JobSeries {
	e.series.put(s)
	return s
}

func januaryWindow() recurrence.Window {
	return recurrence.Window{Start: date(2024, time.January, 1), End: date(2024, time.January, 15)}
}

func TestMaterializeTuesdayThursdayInNewYork(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;INTERVAL=1;BYDAY=TU,TH", date(2024, time.January, 2), 9))

	res, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Created)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, res.Truncated)

	rows := e.occurrences.all()
	require.Len(t, rows, 4)

	want := []time.Time{
		utc(2024, time.January, 2, 14, 0),
		utc(2024, time.January, 4, 14, 0),
		utc(2024, time.January, 9, 14, 0),
		utc(2024, time.January, 11, 14, 0),
	}
	for i, occ := range rows {
		assert.Equal(t, want[i], occ.StartAt)
		assert.Equal(t, want[i].Add(time.Hour), occ.EndAt)
		assert.Equal(t, model.OccurrenceScheduled, occ.Status)
		assert.True(t, occ.Overrides.IsZero())
	}

	stored, _ := e.series.GetByID(context.Background(), s.ID)
	require.NotNil(t, stored.LastGeneratedUntil)
	// Jan 15 23:59:59 EST
	assert.Equal(t, time.Date(2024, time.January, 16, 4, 59, 59, 0, time.UTC), stored.LastGeneratedUntil.UTC())
	assert.Equal(t, stored.LastGeneratedUntil, res.WindowEnd)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=MO,WE,FR", date(2024, time.January, 1), 8))
	w := recurrence.Window{Start: date(2024, time.January, 1), End: date(2024, time.March, 31)}

	first, err := e.mat.Materialize(context.Background(), s, w, 200)
	require.NoError(t, err)
	before := e.occurrences.all()

	second, err := e.mat.Materialize(context.Background(), s, w, 200)
	require.NoError(t, err)

	require.Positive(t, first.Created)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, first.Created, second.Skipped)
	assert.Equal(t, before, e.occurrences.all())
}

func TestMaterializeKeepsWallClockAcrossDST(t *testing.T) {
	e := newTestEnv(t)
	// DST starts in New York on 2024-03-10
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=MO", date(2024, time.March, 4), 9))
	w := recurrence.Window{Start: date(2024, time.March, 1), End: date(2024, time.March, 31)}

	_, err := e.mat.Materialize(context.Background(), s, w, 200)
	require.NoError(t, err)

	rows := e.occurrences.all()
	require.Len(t, rows, 4)

	assert.Equal(t, utc(2024, time.March, 4, 14, 0), rows[0].StartAt)
	assert.Equal(t, utc(2024, time.March, 11, 13, 0), rows[1].StartAt)

	for _, occ := range rows {
		_, clock, err := e.tz.ToWallClock(occ.StartAt, newYork)
		require.NoError(t, err)
		assert.Equal(t, civil.Time{Hour: 9}, clock, occ.StartAt.String())
	}
}

func TestMaterializeNeverClobbersExistingRows(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=TU,TH", date(2024, time.January, 2), 9))
	ctx := context.Background()

	_, err := e.mat.Materialize(ctx, s, januaryWindow(), 200)
	require.NoError(t, err)

	first := e.occurrences.all()[0]
	title := "Pool cleaning + filter swap"
	_, _ = e.occurrences.SetOverrides(ctx, first.ID, model.Overrides{Title: &title})
	_, _ = e.occurrences.UpdateStatus(ctx, first.ID, model.OccurrenceScheduled, model.OccurrenceCompleted)

	res, err := e.mat.Materialize(ctx, s, januaryWindow(), 200)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Skipped)

	got, _ := e.occurrences.GetByID(ctx, first.ID)
	assert.Equal(t, model.OccurrenceCompleted, got.Status)
	require.NotNil(t, got.Overrides.Title)
	assert.Equal(t, title, *got.Overrides.Title)
}

func TestMaterializeInactiveSeriesIsNoOp(t *testing.T) {
	e := newTestEnv(t)
	s := newSeries("FREQ=DAILY", date(2024, time.January, 1), 9)
	s.IsActive = false
	e.stored(s)

	res, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.NoError(t, err)

	assert.True(t, res.Inactive)
	assert.Zero(t, res.Created)
	assert.Zero(t, e.occurrences.inserts)

	stored, _ := e.series.GetByID(context.Background(), s.ID)
	assert.Nil(t, stored.LastGeneratedUntil)
}

func TestMaterializeUnknownZoneIsFatal(t *testing.T) {
	e := newTestEnv(t)
	s := newSeries("FREQ=DAILY", date(2024, time.January, 1), 9)
	s.Timezone = "Mars/Olympus_Mons"
	e.stored(s)

	_, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrTimeZone))
	assert.Zero(t, e.occurrences.inserts)
}

func TestMaterializeInvalidRuleWritesNothing(t *testing.T) {
	e := newTestEnv(t)
	s := newSeries("FREQ=DAILY", date(2024, time.January, 1), 9)
	s.Recurrence = recurrence.Rule{Frequency: "YEARLY", Interval: 1}
	e.stored(s)

	_, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
	assert.Zero(t, e.occurrences.inserts)
}

func TestMaterializeContinuesPastRowFailures(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=TU,TH", date(2024, time.January, 2), 9))
	broken := utc(2024, time.January, 9, 14, 0)

	e.occurrences.insertHook = func(occ *model.JobOccurrence) error {
		if occ.StartAt.Equal(broken) {
			return errDiskFull
		}
		return nil
	}

	res, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.Degraded())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "disk full")
	assert.Equal(t, 3, e.occurrences.count())

	// a later run fills the gap
	e.occurrences.insertHook = nil
	res, err = e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Skipped)
	assert.False(t, res.Degraded())
}

func TestMaterializeStopsOnCancellation(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=TU,TH", date(2024, time.January, 2), 9))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.occurrences.insertHook = func(occ *model.JobOccurrence) error {
		if occ.StartAt.Equal(utc(2024, time.January, 4, 14, 0)) {
			cancel()
		}
		return nil
	}

	res, err := e.mat.Materialize(ctx, s, januaryWindow(), 200)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, e.occurrences.count())

	stored, _ := e.series.GetByID(context.Background(), s.ID)
	assert.Nil(t, stored.LastGeneratedUntil)

	// resuming completes the window without duplicates
	e.occurrences.insertHook = nil
	res, err = e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
}

func TestMaterializeConcurrentRunsWriteEachKeyOnce(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=DAILY", date(2024, time.January, 1), 7))
	w := recurrence.Window{Start: date(2024, time.January, 1), End: date(2024, time.February, 29)}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]model.GenerationResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			series := *s
			results[i], errs[i] = e.mat.Materialize(context.Background(), &series, w, 200)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 60, e.occurrences.count())
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 60, results[i].Created+results[i].Skipped)
	}
}

func TestMaterializeSharedRunSurvivesOwnerCancellation(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=WEEKLY;BYDAY=TU,TH", date(2024, time.January, 2), 9))

	ownerCtx, cancelOwner := context.WithCancel(context.Background())
	defer cancelOwner()

	started := make(chan struct{})
	release := make(chan struct{})
	blocked := false
	e.occurrences.insertHook = func(occ *model.JobOccurrence) error {
		if !blocked {
			blocked = true
			close(started)
			<-release
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		ownerErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		series := *s
		_, ownerErr = e.mat.Materialize(ownerCtx, &series, januaryWindow(), 200)
	}()
	<-started

	var (
		joinerRes model.GenerationResult
		joinerErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		series := *s
		joinerRes, joinerErr = e.mat.Materialize(context.Background(), &series, januaryWindow(), 200)
	}()

	// give the second caller time to join the running materialization
	time.Sleep(50 * time.Millisecond)
	cancelOwner()
	close(release)
	wg.Wait()

	require.ErrorIs(t, ownerErr, context.Canceled)
	require.NoError(t, joinerErr)
	assert.Equal(t, 4, joinerRes.Created+joinerRes.Skipped)
	assert.Equal(t, 4, e.occurrences.count())

	stored, _ := e.series.GetByID(context.Background(), s.ID)
	assert.NotNil(t, stored.LastGeneratedUntil)
}

func TestMaterializeCapTruncatesWindow(t *testing.T) {
	e := newTestEnv(t)
	s := e.stored(newSeries("FREQ=DAILY", date(2024, time.January, 1), 9))

	res, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 5)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Created)
	assert.True(t, res.Truncated)

	stored, _ := e.series.GetByID(context.Background(), s.ID)
	require.NotNil(t, stored.LastGeneratedUntil)
	assert.Equal(t, utc(2024, time.January, 5, 14, 0), stored.LastGeneratedUntil.UTC())
}

func TestMaterializeCopiesSeriesAssignee(t *testing.T) {
	e := newTestEnv(t)
	s := newSeries("FREQ=WEEKLY;BYDAY=TU", date(2024, time.January, 2), 9)
	tech := int64(42)
	s.AssigneeID = &tech
	e.stored(s)

	_, err := e.mat.Materialize(context.Background(), s, januaryWindow(), 200)
	require.NoError(t, err)

	for _, occ := range e.occurrences.all() {
		require.NotNil(t, occ.AssigneeID)
		assert.Equal(t, tech, *occ.AssigneeID)
	}
}
