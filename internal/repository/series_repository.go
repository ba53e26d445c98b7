package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/repository/base"
)

const seriesColumns = `
	id, customer_id, title, description, priority, assignee_id, estimated_cost,
	start_date, start_time, duration_minutes, timezone, recurrence_rule,
	is_active, last_generated_until, created_at, updated_at
`

// SeriesRepository управляет шаблонами повторяющихся работ
type SeriesRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewSeriesRepository(b *base.Repository, logger *zap.Logger) *SeriesRepository {
	return &SeriesRepository{Repository: b, logger: logger}
}

// Create вставляет серию и заполняет ID и временные метки
func (r *SeriesRepository) Create(ctx context.Context, s *model.JobSeries) error {
	query := `
		INSERT INTO job_series (
			customer_id, title, description, priority, assignee_id, estimated_cost,
			start_date, start_time, duration_minutes, timezone, recurrence_rule, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.Pool().QueryRow(
		ctx, query,
		s.CustomerID,
		s.Title,
		s.Description,
		s.Priority,
		s.AssigneeID,
		s.EstimatedCost,
		s.StartDate.String(),
		s.LocalStartTime.String(),
		s.DurationMinutes,
		s.Timezone,
		s.Recurrence.String(),
		s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create job series: %w", err)
	}

	return nil
}

// GetByID возвращает nil, nil если серии нет
func (r *SeriesRepository) GetByID(ctx context.Context, id int64) (*model.JobSeries, error) {
	return r.getByID(ctx, r.Pool(), id, false)
}

func (r *SeriesRepository) getByID(ctx context.Context, q base.Querier, id int64, forUpdate bool) (*model.JobSeries, error) {
	query := `SELECT ` + seriesColumns + ` FROM job_series WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	s, err := scanSeries(q.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job series by id: %w", err)
	}
	return s, nil
}

// ListActive возвращает все активные серии по порядку id
func (r *SeriesRepository) ListActive(ctx context.Context) ([]*model.JobSeries, error) {
	query := `SELECT ` + seriesColumns + ` FROM job_series WHERE is_active = TRUE ORDER BY id`

	rows, err := r.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active job series: %w", err)
	}
	defer rows.Close()

	var list []*model.JobSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job series: %w", err)
		}
		list = append(list, s)
	}

	return list, rows.Err()
}

// Update блокирует строку, даёт mutate изменить её и записывает обратно
// в одной транзакции. Возвращает nil, nil если серии нет.
func (r *SeriesRepository) Update(ctx context.Context, id int64, mutate func(s *model.JobSeries) error) (*model.JobSeries, error) {
	var updated *model.JobSeries

	err := r.InTx(ctx, func(q base.Querier) error {
		s, err := r.getByID(ctx, q, id, true)
		if err != nil || s == nil {
			return err
		}

		if err := mutate(s); err != nil {
			return err
		}

		query := `
			UPDATE job_series
			SET customer_id = $2, title = $3, description = $4, priority = $5,
			    assignee_id = $6, estimated_cost = $7, start_date = $8, start_time = $9,
			    duration_minutes = $10, timezone = $11, recurrence_rule = $12,
			    is_active = $13, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		err = q.QueryRow(
			ctx, query,
			s.ID,
			s.CustomerID,
			s.Title,
			s.Description,
			s.Priority,
			s.AssigneeID,
			s.EstimatedCost,
			s.StartDate.String(),
			s.LocalStartTime.String(),
			s.DurationMinutes,
			s.Timezone,
			s.Recurrence.String(),
			s.IsActive,
		).Scan(&s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update job series: %w", err)
		}

		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// SetActive возвращает false, если серии нет
func (r *SeriesRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	query := `UPDATE job_series SET is_active = $2, updated_at = NOW() WHERE id = $1`

	n, err := base.ExecAffected(ctx, r.Pool(), query, id, active)
	if err != nil {
		return false, fmt.Errorf("set job series active: %w", err)
	}
	return n > 0, nil
}

// UpdateLastGeneratedUntil сдвигает отметку генерации, только вперёд
func (r *SeriesRepository) UpdateLastGeneratedUntil(ctx context.Context, id int64, until time.Time) error {
	query := `
		UPDATE job_series
		SET last_generated_until = GREATEST(COALESCE(last_generated_until, $2), $2)
		WHERE id = $1
	`

	if _, err := r.Pool().Exec(ctx, query, id, until); err != nil {
		return fmt.Errorf("update last generated until: %w", err)
	}
	return nil
}

// Delete удаляет серию вместе с работами (ON DELETE CASCADE)
func (r *SeriesRepository) Delete(ctx context.Context, id int64) (bool, error) {
	n, err := base.ExecAffected(ctx, r.Pool(), `DELETE FROM job_series WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete job series: %w", err)
	}

	r.logger.Debug("Job series deleted", zap.Int64("series_id", id), zap.Bool("found", n > 0))
	return n > 0, nil
}

func scanSeries(row pgx.Row) (*model.JobSeries, error) {
	var (
		s    model.JobSeries
		rule string
	)

	err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.Title,
		&s.Description,
		&s.Priority,
		&s.AssigneeID,
		&s.EstimatedCost,
		&s.StartDate,
		&s.LocalStartTime,
		&s.DurationMinutes,
		&s.Timezone,
		&rule,
		&s.IsActive,
		&s.LastGeneratedUntil,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Recurrence, err = recurrence.Parse(rule)
	if err != nil {
		return nil, fmt.Errorf("series %d has bad recurrence rule %q: %w", s.ID, rule, err)
	}

	return &s, nil
}
