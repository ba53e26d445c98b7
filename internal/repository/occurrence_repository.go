package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/model"
	"github.com/Freeeeeet/servicejobs/internal/repository/base"
)

const occurrenceColumns = `
	id, series_id, start_at, end_at, status,
	title_override, description_override, estimated_cost_override,
	assignee_id, created_at, updated_at
`

// OccurrenceRepository управляет материализованными работами
type OccurrenceRepository struct {
	*base.Repository
	logger *zap.Logger
}

func NewOccurrenceRepository(b *base.Repository, logger *zap.Logger) *OccurrenceRepository {
	return &OccurrenceRepository{Repository: b, logger: logger}
}

// InsertIfAbsent вставляет occ, если (series_id, start_at) ещё нет.
// Возвращает true, если строка создана. Существующая строка не меняется.
func (r *OccurrenceRepository) InsertIfAbsent(ctx context.Context, occ *model.JobOccurrence) (bool, error) {
	query := `
		INSERT INTO job_occurrences (series_id, start_at, end_at, status, assignee_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (series_id, start_at) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.Pool().QueryRow(
		ctx, query,
		occ.SeriesID,
		occ.StartAt.UTC(),
		occ.EndAt.UTC(),
		occ.Status,
		occ.AssigneeID,
	).Scan(&occ.ID, &occ.CreatedAt, &occ.UpdatedAt)

	if base.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert job occurrence: %w", err)
	}

	return true, nil
}

// GetByID возвращает nil, nil если работы нет
func (r *OccurrenceRepository) GetByID(ctx context.Context, id int64) (*model.JobOccurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM job_occurrences WHERE id = $1`

	occ, err := scanOccurrence(r.Pool().QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job occurrence by id: %w", err)
	}
	return occ, nil
}

// ListBySeries возвращает работы серии с началом в [from, to)
func (r *OccurrenceRepository) ListBySeries(ctx context.Context, seriesID int64, from, to time.Time) ([]*model.JobOccurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM job_occurrences
		WHERE series_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at
	`

	rows, err := r.Pool().Query(ctx, query, seriesID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list job occurrences by series: %w", err)
	}
	defer rows.Close()

	var list []*model.JobOccurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job occurrence: %w", err)
		}
		list = append(list, occ)
	}

	return list, rows.Err()
}

// UpdateStatus меняет статус, только если он всё ещё from.
// Возвращает false, если строки нет или её уже изменили.
func (r *OccurrenceRepository) UpdateStatus(ctx context.Context, id int64, from, to model.OccurrenceStatus) (bool, error) {
	query := `
		UPDATE job_occurrences
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	n, err := base.ExecAffected(ctx, r.Pool(), query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update job occurrence status: %w", err)
	}
	return n > 0, nil
}

// CancelCascade одним запросом отменяет работу id и все работы той же серии,
// которые начинаются после now. Выполненные и отменённые строки не трогаются.
func (r *OccurrenceRepository) CancelCascade(ctx context.Context, id int64, now time.Time) (int64, error) {
	query := `
		UPDATE job_occurrences o
		SET status = 'cancelled', updated_at = NOW()
		FROM job_occurrences sel
		WHERE sel.id = $1
		  AND o.series_id = sel.series_id
		  AND (o.id = sel.id OR o.start_at > $2)
		  AND o.status NOT IN ('completed', 'cancelled')
	`

	n, err := base.ExecAffected(ctx, r.Pool(), query, id, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("cancel job occurrences cascade: %w", err)
	}

	r.logger.Debug("Cascade cancel", zap.Int64("occurrence_id", id), zap.Int64("cancelled", n))
	return n, nil
}

// SetOverrides заменяет переопределения работы
func (r *OccurrenceRepository) SetOverrides(ctx context.Context, id int64, o model.Overrides) (bool, error) {
	query := `
		UPDATE job_occurrences
		SET title_override = $2, description_override = $3, estimated_cost_override = $4, updated_at = NOW()
		WHERE id = $1
	`

	n, err := base.ExecAffected(ctx, r.Pool(), query, id, o.Title, o.Description, o.EstimatedCost)
	if err != nil {
		return false, fmt.Errorf("set job occurrence overrides: %w", err)
	}
	return n > 0, nil
}

// SetAssignee назначает или снимает (nil) исполнителя работы
func (r *OccurrenceRepository) SetAssignee(ctx context.Context, id int64, assigneeID *int64) (bool, error) {
	query := `UPDATE job_occurrences SET assignee_id = $2, updated_at = NOW() WHERE id = $1`

	n, err := base.ExecAffected(ctx, r.Pool(), query, id, assigneeID)
	if err != nil {
		return false, fmt.Errorf("set job occurrence assignee: %w", err)
	}
	return n > 0, nil
}

// Calendar возвращает работы для показа с началом в [from, to)
func (r *OccurrenceRepository) Calendar(ctx context.Context, from, to time.Time) ([]model.OccurrenceView, error) {
	query := `
		SELECT o.id, o.series_id, o.start_at, o.end_at, o.status, s.priority,
		       COALESCE(o.title_override, s.title), c.name
		FROM job_occurrences o
		JOIN job_series s ON s.id = o.series_id
		JOIN customers c ON c.id = s.customer_id
		WHERE o.start_at >= $1 AND o.start_at < $2
		ORDER BY o.start_at, o.id
	`

	rows, err := r.Pool().Query(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	var views []model.OccurrenceView
	for rows.Next() {
		var v model.OccurrenceView
		err := rows.Scan(&v.ID, &v.SeriesID, &v.StartAt, &v.EndAt, &v.Status, &v.Priority, &v.Title, &v.CustomerName)
		if err != nil {
			return nil, fmt.Errorf("scan calendar row: %w", err)
		}
		v.StartAt = v.StartAt.UTC()
		v.EndAt = v.EndAt.UTC()
		views = append(views, v)
	}

	return views, rows.Err()
}

func scanOccurrence(row pgx.Row) (*model.JobOccurrence, error) {
	var occ model.JobOccurrence

	err := row.Scan(
		&occ.ID,
		&occ.SeriesID,
		&occ.StartAt,
		&occ.EndAt,
		&occ.Status,
		&occ.Overrides.Title,
		&occ.Overrides.Description,
		&occ.Overrides.EstimatedCost,
		&occ.AssigneeID,
		&occ.CreatedAt,
		&occ.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	occ.StartAt = occ.StartAt.UTC()
	occ.EndAt = occ.EndAt.UTC()
	return &occ, nil
}
