package timesheet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, user_id, project_id, work_date, start_time, end_time,
break1_start, break1_end, break2_start, break2_end, note, total_hours,
hours_overridden, status, deleted_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.ProjectID, &rec.WorkDate, &rec.Start, &rec.End,
		&rec.Break1Start, &rec.Break1End, &rec.Break2Start, &rec.Break2End, &rec.Note, &rec.TotalHours,
		&rec.HoursOverridden, &status, &rec.DeletedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.Status = RecordStatus(status)
	return rec, nil
}

// Get fetches a live record by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM performance_records
WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanRecord(row)
}

// Insert creates a new record row.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO performance_records
(id, user_id, project_id, work_date, start_time, end_time, break1_start, break1_end, break2_start, break2_end,
 note, total_hours, hours_overridden, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
RETURNING created_at, updated_at`,
		rec.ID, rec.UserID, rec.ProjectID, rec.WorkDate, rec.Start, rec.End,
		rec.Break1Start, rec.Break1End, rec.Break2Start, rec.Break2End,
		rec.Note, rec.TotalHours, rec.HoursOverridden, string(rec.Status)).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update rewrites the mutable fields of a record.
func (r *Repository) Update(ctx context.Context, rec Record) error {
	tag, err := r.pool.Exec(ctx, `UPDATE performance_records SET
project_id = $2, work_date = $3, start_time = $4, end_time = $5,
break1_start = $6, break1_end = $7, break2_start = $8, break2_end = $9,
note = $10, total_hours = $11, hours_overridden = $12, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`,
		rec.ID, rec.ProjectID, rec.WorkDate, rec.Start, rec.End,
		rec.Break1Start, rec.Break1End, rec.Break2Start, rec.Break2End,
		rec.Note, rec.TotalHours, rec.HoursOverridden)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a record deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE performance_records SET deleted_at = $2, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListForUserWeek returns a user's live records with dates inside [from, to].
func (r *Repository) ListForUserWeek(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	return r.list(ctx, `SELECT `+recordColumns+` FROM performance_records
WHERE user_id = $1 AND work_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY work_date, start_time`, userID, from, to)
}

// ListForProjectWeek returns all live records for a project inside [from, to].
func (r *Repository) ListForProjectWeek(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]Record, error) {
	return r.list(ctx, `SELECT `+recordColumns+` FROM performance_records
WHERE project_id = $1 AND work_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY user_id, work_date, start_time`, projectID, from, to)
}

// ListForUserRange returns a user's live records inside an arbitrary range.
func (r *Repository) ListForUserRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	return r.list(ctx, `SELECT `+recordColumns+` FROM performance_records
WHERE user_id = $1 AND work_date BETWEEN $2 AND $3 AND deleted_at IS NULL
ORDER BY work_date, start_time`, userID, from, to)
}
