package invoices

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/werkzeit/werkzeit/internal/platform/db"
)

// Repository persists invoices and runs the billing queries.
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

const invoiceColumns = `id, number, sequence, issue_year, user_id, closing_id, iso_year, iso_week, worker_name, worker_iban, hours, hourly_rate, subtotal, tax_rate, tax_amount, total, status, issued_at, due_at, paid_at, deleted_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.Number, &inv.Sequence, &inv.IssueYear, &inv.UserID, &inv.ClosingID,
		&inv.ISOYear, &inv.ISOWeek, &inv.WorkerName, &inv.WorkerIBAN, &inv.Hours, &inv.HourlyRate,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &status,
		&inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	inv.Status = Status(status)
	return inv, nil
}

// NextSequence allocates the next invoice number for the year. The
// counter upsert is atomic, so concurrent issuers never share a number.
func (r *Repository) NextSequence(ctx context.Context, tx pgx.Tx, year int) (int, error) {
	var seq int
	err := tx.QueryRow(ctx, `INSERT INTO invoice_counters (issue_year, last_sequence) VALUES ($1, 1)
ON CONFLICT (issue_year) DO UPDATE SET last_sequence = invoice_counters.last_sequence + 1
RETURNING last_sequence`, year).Scan(&seq)
	return seq, err
}

// BillableClosing loads and locks the billing basis for one closing:
// worker identity, hourly rate and the week's approved hour total. Only
// approved and locked closings qualify.
type BillableClosing struct {
	ClosingID  uuid.UUID
	UserID     uuid.UUID
	ISOYear    int
	ISOWeek    int
	WorkerName string
	WorkerIBAN string
	HourlyRate float64
	Hours      float64
}

// LoadBillable locks the closing row and resolves the billing basis.
func (r *Repository) LoadBillable(ctx context.Context, tx pgx.Tx, closingID uuid.UUID) (BillableClosing, error) {
	var b BillableClosing
	var status string
	err := tx.QueryRow(ctx, `SELECT c.id, c.user_id, c.iso_year, c.iso_week, c.status, p.name, p.iban, p.hourly_rate
FROM performance_closings c
JOIN profiles p ON p.id = c.user_id
WHERE c.id = $1 AND c.deleted_at IS NULL
FOR UPDATE OF c`, closingID).Scan(&b.ClosingID, &b.UserID, &b.ISOYear, &b.ISOWeek, &status, &b.WorkerName, &b.WorkerIBAN, &b.HourlyRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BillableClosing{}, ErrNotFound
		}
		return BillableClosing{}, err
	}
	if status != "approved" && status != "locked" {
		return BillableClosing{}, ErrClosingNotBillable
	}
	err = tx.QueryRow(ctx, `SELECT COALESCE(SUM(total_hours), 0) FROM performance_records
WHERE user_id = $1
AND EXTRACT(isoyear FROM work_date)::int = $2
AND EXTRACT(week FROM work_date)::int = $3
AND status = 'approved' AND deleted_at IS NULL`, b.UserID, b.ISOYear, b.ISOWeek).Scan(&b.Hours)
	if err != nil {
		return BillableClosing{}, err
	}
	return b, nil
}

// Insert writes a new invoice. A partial unique index on closing_id
// rejects a second live invoice for the same week.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, inv Invoice) error {
	_, err := tx.Exec(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		inv.ID, inv.Number, inv.Sequence, inv.IssueYear, inv.UserID, inv.ClosingID,
		inv.ISOYear, inv.ISOWeek, inv.WorkerName, inv.WorkerIBAN, inv.Hours, inv.HourlyRate,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total, string(inv.Status),
		inv.IssuedAt, inv.DueAt, inv.PaidAt, inv.DeletedAt, inv.CreatedAt, inv.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyInvoiced
	}
	return err
}

// Get loads an invoice by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanInvoice(row)
}

// List returns invoices newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE deleted_at IS NULL`
	args := []any{}
	if status != "" {
		args = append(args, string(status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY issued_at DESC, number DESC`
	args = append(args, limit, offset)
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListForUser returns a worker's own invoices, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE user_id = $1 AND deleted_at IS NULL ORDER BY issued_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// SetStatus moves an invoice between payment states, asserting the
// allowed source states in the statement itself.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, paidAt *time.Time, at time.Time) error {
	statuses := make([]string, 0, len(from))
	for _, st := range from {
		statuses = append(statuses, string(st))
	}
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = $1, paid_at = $2, updated_at = $3
WHERE id = $4 AND status = ANY($5) AND deleted_at IS NULL`, string(to), paidAt, at, id, statuses)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// RefreshDueStatuses rolls pending invoices forward as their due dates
// close in. Returns how many rows changed state.
func (r *Repository) RefreshDueStatuses(ctx context.Context, now time.Time, dueSoonWindow time.Duration) (int64, error) {
	overdue, err := r.pool.Exec(ctx, `UPDATE invoices SET status = 'overdue', updated_at = $1
WHERE status IN ('pending', 'due_soon') AND due_at < $1 AND deleted_at IS NULL`, now)
	if err != nil {
		return 0, err
	}
	dueSoon, err := r.pool.Exec(ctx, `UPDATE invoices SET status = 'due_soon', updated_at = $1
WHERE status = 'pending' AND due_at >= $1 AND due_at <= $2 AND deleted_at IS NULL`, now, now.Add(dueSoonWindow))
	if err != nil {
		return 0, err
	}
	return overdue.RowsAffected() + dueSoon.RowsAffected(), nil
}

// SummaryForUser aggregates a worker's wage, deductions and housing
// costs over a date range. Only approved hours count towards the wage.
func (r *Repository) SummaryForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) (FinancialSummary, error) {
	s := FinancialSummary{UserID: userID, From: from, To: to}
	err := r.pool.QueryRow(ctx, `SELECT p.name,
COALESCE(r.hours, 0),
COALESCE(r.hours, 0) * p.hourly_rate,
COALESCE(s.total, 0),
COALESCE(a.total, 0),
COALESCE(h.total, 0)
FROM profiles p
LEFT JOIN (
	SELECT user_id, SUM(total_hours) AS hours FROM performance_records
	WHERE status = 'approved' AND deleted_at IS NULL AND work_date BETWEEN $2 AND $3 GROUP BY user_id
) r ON r.user_id = p.id
LEFT JOIN (
	SELECT user_id, SUM(amount) AS total FROM sanctions
	WHERE deleted_at IS NULL AND levied_on BETWEEN $2 AND $3 GROUP BY user_id
) s ON s.user_id = p.id
LEFT JOIN (
	SELECT user_id, SUM(amount) AS total FROM advances
	WHERE deleted_at IS NULL AND paid_on BETWEEN $2 AND $3 GROUP BY user_id
) a ON a.user_id = p.id
LEFT JOIN (
	SELECT user_id, SUM(cost) AS total FROM accommodation_assignments
	WHERE deleted_at IS NULL AND starts_on <= $3 AND (ends_on IS NULL OR ends_on >= $2) GROUP BY user_id
) h ON h.user_id = p.id
WHERE p.id = $1 AND p.deleted_at IS NULL`,
		userID, from, to).Scan(&s.WorkerName, &s.TotalHours, &s.GrossWage, &s.SanctionTotal, &s.AdvanceTotal, &s.AccommodationTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialSummary{}, ErrNotFound
		}
		return FinancialSummary{}, err
	}
	s.NetPay = s.GrossWage - s.SanctionTotal - s.AdvanceTotal - s.AccommodationTotal
	return s, nil
}
