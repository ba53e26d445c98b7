package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/servicejobs/internal/model"
)

type memSeries struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.JobSeries
}

func newMemSeries() *memSeries {
	return &memSeries{rows: make(map[int64]*model.JobSeries)}
}

func (m *memSeries) Create(_ context.Context, s *model.JobSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	s.ID = m.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSeries) GetByID(_ context.Context, id int64) (*model.JobSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSeries) ListActive(_ context.Context) ([]*model.JobSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var list []*model.JobSeries
	for _, s := range m.rows {
		if s.IsActive {
			cp := *s
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *memSeries) Update(_ context.Context, id int64, mutate func(s *model.JobSeries) error) (*model.JobSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now()
	m.rows[id] = &cp
	out := cp
	return &out, nil
}

func (m *memSeries) SetActive(_ context.Context, id int64, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if ok {
		s.IsActive = active
	}
	return ok, nil
}

func (m *memSeries) UpdateLastGeneratedUntil(_ context.Context, id int64, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[id]
	if !ok {
		return nil
	}
	if s.LastGeneratedUntil == nil || until.After(*s.LastGeneratedUntil) {
		s.LastGeneratedUntil = &until
	}
	return nil
}

func (m *memSeries) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

// put stores s as is, skipping validation.
func (m *memSeries) put(s *model.JobSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	cp := *s
	m.rows[s.ID] = &cp
}

type occKey struct {
	seriesID int64
	startAt  int64
}

// memOccurrences enforces (series_id, start_at) uniqueness under one mutex.
type memOccurrences struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.JobOccurrence
	byKey  map[occKey]int64

	series    *memSeries
	customers *memCustomers

	// insertHook runs before each insert; a non-nil error fails that row.
	insertHook func(occ *model.JobOccurrence) error
	inserts    int
}

func newMemOccurrences(series *memSeries, customers *memCustomers) *memOccurrences {
	return &memOccurrences{
		rows:      make(map[int64]*model.JobOccurrence),
		byKey:     make(map[occKey]int64),
		series:    series,
		customers: customers,
	}
}

func (m *memOccurrences) InsertIfAbsent(_ context.Context, occ *model.JobOccurrence) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if m.insertHook != nil {
		if err := m.insertHook(occ); err != nil {
			return false, err
		}
	}

	key := occKey{occ.SeriesID, occ.StartAt.UnixNano()}
	if _, ok := m.byKey[key]; ok {
		return false, nil
	}

	m.nextID++
	occ.ID = m.nextID
	cp := *occ
	m.rows[occ.ID] = &cp
	m.byKey[key] = occ.ID
	return true, nil
}

func (m *memOccurrences) GetByID(_ context.Context, id int64) (*model.JobOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *occ
	return &cp, nil
}

func (m *memOccurrences) ListBySeries(_ context.Context, seriesID int64, from, to time.Time) ([]*model.JobOccurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var list []*model.JobOccurrence
	for _, occ := range m.rows {
		if occ.SeriesID == seriesID && !occ.StartAt.Before(from) && occ.StartAt.Before(to) {
			cp := *occ
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	return list, nil
}

func (m *memOccurrences) UpdateStatus(_ context.Context, id int64, from, to model.OccurrenceStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ, ok := m.rows[id]
	if !ok || occ.Status != from {
		return false, nil
	}
	occ.Status = to
	return true, nil
}

func (m *memOccurrences) CancelCascade(_ context.Context, id int64, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sel, ok := m.rows[id]
	if !ok {
		return 0, nil
	}

	var n int64
	for _, occ := range m.rows {
		if occ.SeriesID != sel.SeriesID || occ.Status.IsFinal() {
			continue
		}
		if occ.ID == sel.ID || occ.StartAt.After(now) {
			occ.Status = model.OccurrenceCancelled
			n++
		}
	}
	return n, nil
}

func (m *memOccurrences) SetOverrides(_ context.Context, id int64, o model.Overrides) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ, ok := m.rows[id]
	if ok {
		occ.Overrides = o
	}
	return ok, nil
}

func (m *memOccurrences) SetAssignee(_ context.Context, id int64, assigneeID *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occ, ok := m.rows[id]
	if ok {
		occ.AssigneeID = assigneeID
	}
	return ok, nil
}

func (m *memOccurrences) Calendar(ctx context.Context, from, to time.Time) ([]model.OccurrenceView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var views []model.OccurrenceView
	for _, occ := range m.rows {
		if occ.StartAt.Before(from) || !occ.StartAt.Before(to) {
			continue
		}
		series, _ := m.series.GetByID(ctx, occ.SeriesID)
		if series == nil {
			continue
		}
		customer, _ := m.customers.GetByID(ctx, series.CustomerID)
		if customer == nil {
			continue
		}

		title := series.Title
		if occ.Overrides.Title != nil {
			title = *occ.Overrides.Title
		}
		views = append(views, model.OccurrenceView{
			ID:           occ.ID,
			SeriesID:     occ.SeriesID,
			StartAt:      occ.StartAt,
			EndAt:        occ.EndAt,
			Status:       occ.Status,
			Priority:     series.Priority,
			Title:        title,
			CustomerName: customer.Name,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].StartAt.Before(views[j].StartAt) })
	return views, nil
}

func (m *memOccurrences) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memOccurrences) all() []*model.JobOccurrence {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*model.JobOccurrence, 0, len(m.rows))
	for _, occ := range m.rows {
		cp := *occ
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartAt.Before(list[j].StartAt) })
	return list
}

// put stores occ directly and returns its id.
func (m *memOccurrences) put(occ model.JobOccurrence) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	occ.ID = m.nextID
	m.rows[occ.ID] = &occ
	m.byKey[occKey{occ.SeriesID, occ.StartAt.UnixNano()}] = occ.ID
	return occ.ID
}

type memCustomers struct {
	mu   sync.Mutex
	rows map[int64]*model.Customer
}

func newMemCustomers(customers ...model.Customer) *memCustomers {
	m := &memCustomers{rows: make(map[int64]*model.Customer)}
	for i := range customers {
		c := customers[i]
		m.rows[c.ID] = &c
	}
	return m
}

func (m *memCustomers) GetByID(_ context.Context, id int64) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

var errDiskFull = errors.New("disk full")
