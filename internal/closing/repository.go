package closing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/werkzeit/werkzeit/internal/platform/db"
	"github.com/werkzeit/werkzeit/internal/shared"
	"github.com/werkzeit/werkzeit/internal/timesheet"
)

// Repository persists closings and drives the batch record transitions
// that accompany each lifecycle step.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

const closingColumns = `id, user_id, iso_year, iso_week, status, submitted_at, approved_at, approved_by, return_comment, deleted_at, created_at, updated_at`

func scanClosing(row pgx.Row) (Closing, error) {
	var c Closing
	var status string
	err := row.Scan(&c.ID, &c.UserID, &c.ISOYear, &c.ISOWeek, &status, &c.SubmittedAt, &c.ApprovedAt, &c.ApprovedBy, &c.ReturnComment, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Closing{}, ErrNotFound
		}
		return Closing{}, err
	}
	c.Status = Status(status)
	return c, nil
}

// UpsertSubmitted creates or resubmits the closing for one worker-week
// in a single statement. The conditional update only fires from the
// open and returned states, so a concurrent submit or a review in
// flight surfaces as ErrInvalidTransition instead of a lost write.
func (r *Repository) UpsertSubmitted(ctx context.Context, tx pgx.Tx, userID uuid.UUID, week shared.Week, at time.Time) (Closing, error) {
	row := tx.QueryRow(ctx, `INSERT INTO performance_closings (id, user_id, iso_year, iso_week, status, submitted_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'submitted', $5, $5, $5)
ON CONFLICT (user_id, iso_year, iso_week) WHERE deleted_at IS NULL
DO UPDATE SET status = 'submitted', submitted_at = $5, return_comment = '', updated_at = $5
WHERE performance_closings.status IN ('open', 'returned')
RETURNING `+closingColumns, uuid.New(), userID, week.Year, week.Week, at)
	c, err := scanClosing(row)
	if errors.Is(err, ErrNotFound) {
		return Closing{}, ErrInvalidTransition
	}
	return c, err
}

// GetForUpdate loads a closing and locks its row for the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Closing, error) {
	row := tx.QueryRow(ctx, `SELECT `+closingColumns+` FROM performance_closings WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	return scanClosing(row)
}

// Get loads a closing by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Closing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+closingColumns+` FROM performance_closings WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanClosing(row)
}

// FindForUser loads the closing covering one worker-week, if any.
func (r *Repository) FindForUser(ctx context.Context, userID uuid.UUID, week shared.Week) (Closing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+closingColumns+` FROM performance_closings
WHERE user_id = $1 AND iso_year = $2 AND iso_week = $3 AND deleted_at IS NULL`, userID, week.Year, week.Week)
	return scanClosing(row)
}

func (r *Repository) transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from Status, set string, args ...any) error {
	args = append([]any{id, string(from)}, args...)
	tag, err := tx.Exec(ctx, `UPDATE performance_closings SET `+set+` WHERE id = $1 AND status = $2 AND deleted_at IS NULL`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkApproved moves a submitted closing to approved.
func (r *Repository) MarkApproved(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, at time.Time) error {
	return r.transition(ctx, tx, id, StatusSubmitted,
		`status = 'approved', approved_at = $3, approved_by = $4, updated_at = $3`, at, reviewerID)
}

// MarkReturned moves a submitted closing back to the worker.
func (r *Repository) MarkReturned(ctx context.Context, tx pgx.Tx, id uuid.UUID, comment string, at time.Time) error {
	return r.transition(ctx, tx, id, StatusSubmitted,
		`status = 'returned', return_comment = $3, updated_at = $4`, comment, at)
}

// MarkResubmitted reverts an approval back to submitted, keeping the
// original submission timestamp.
func (r *Repository) MarkResubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, tx, id, StatusApproved,
		`status = 'submitted', approved_at = NULL, approved_by = NULL, updated_at = $3`, at)
}

// MarkLocked moves an approved closing to the terminal locked state.
func (r *Repository) MarkLocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, tx, id, StatusApproved,
		`status = 'locked', updated_at = $3`, at)
}

// ShiftRecordStatuses moves every record of the worker-week that sits
// in one of the from statuses into the target status. Runs inside the
// same transaction as the closing transition so the two writes commit
// or roll back together.
func (r *Repository) ShiftRecordStatuses(ctx context.Context, tx pgx.Tx, userID uuid.UUID, week shared.Week, from []timesheet.RecordStatus, to timesheet.RecordStatus, at time.Time) (int64, error) {
	statuses := make([]string, 0, len(from))
	for _, st := range from {
		statuses = append(statuses, string(st))
	}
	tag, err := tx.Exec(ctx, `UPDATE performance_records SET status = $1, updated_at = $2
WHERE user_id = $3 AND work_date BETWEEN $4 AND $5 AND status = ANY($6) AND deleted_at IS NULL`,
		string(to), at, userID, week.Monday(), week.Sunday(), statuses)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// WeekLocked reports whether the worker's week reached the terminal
// state. Satisfies the record service's guard interface.
func (r *Repository) WeekLocked(ctx context.Context, userID uuid.UUID, week shared.Week) (bool, error) {
	var locked bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM performance_closings
WHERE user_id = $1 AND iso_year = $2 AND iso_week = $3 AND status = 'locked' AND deleted_at IS NULL)`,
		userID, week.Year, week.Week).Scan(&locked)
	return locked, err
}

// HasInvoice reports whether a live invoice was issued for the closing.
func (r *Repository) HasInvoice(ctx context.Context, closingID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM invoices
WHERE closing_id = $1 AND status <> 'void' AND deleted_at IS NULL)`,
		closingID).Scan(&exists)
	return exists, err
}

const summaryQuery = `SELECT ` + prefixedClosingColumns + `, p.name, COALESCE(r.total, 0), COALESCE(r.days, 0)
FROM performance_closings c
JOIN profiles p ON p.id = c.user_id
LEFT JOIN (
	SELECT user_id, status,
		EXTRACT(isoyear FROM work_date)::int AS iso_year,
		EXTRACT(week FROM work_date)::int AS iso_week,
		SUM(total_hours) AS total,
		COUNT(DISTINCT work_date) AS days
	FROM performance_records
	WHERE deleted_at IS NULL
	GROUP BY 1, 2, 3, 4
) r ON r.user_id = c.user_id AND r.iso_year = c.iso_year AND r.iso_week = c.iso_week AND r.status = c.status
WHERE c.deleted_at IS NULL`

const prefixedClosingColumns = `c.id, c.user_id, c.iso_year, c.iso_week, c.status, c.submitted_at, c.approved_at, c.approved_by, c.return_comment, c.deleted_at, c.created_at, c.updated_at`

func (r *Repository) listSummaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var status string
		err := rows.Scan(&s.Closing.ID, &s.Closing.UserID, &s.Closing.ISOYear, &s.Closing.ISOWeek, &status,
			&s.Closing.SubmittedAt, &s.Closing.ApprovedAt, &s.Closing.ApprovedBy, &s.Closing.ReturnComment,
			&s.Closing.DeletedAt, &s.Closing.CreatedAt, &s.Closing.UpdatedAt,
			&s.WorkerName, &s.TotalHours, &s.DayCount)
		if err != nil {
			return nil, err
		}
		s.Closing.Status = Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListPendingReview returns submitted closings oldest first.
func (r *Repository) ListPendingReview(ctx context.Context) ([]Summary, error) {
	return r.listSummaries(ctx, summaryQuery+` AND c.status = 'submitted' ORDER BY c.submitted_at ASC`)
}

// ListRecentlyApproved returns approvals newer than the cutoff, most
// recent first. Feeds the reviewer's undo list.
func (r *Repository) ListRecentlyApproved(ctx context.Context, since time.Time) ([]Summary, error) {
	return r.listSummaries(ctx, summaryQuery+` AND c.status = 'approved' AND c.approved_at >= $1 ORDER BY c.approved_at DESC`, since)
}

// ListForUser returns the worker's closings, newest week first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Closing, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+closingColumns+` FROM performance_closings
WHERE user_id = $1 AND deleted_at IS NULL ORDER BY iso_year DESC, iso_week DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Closing
	for rows.Next() {
		c, err := scanClosing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
