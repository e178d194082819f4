package export

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/werkzeit/werkzeit/internal/shared"
)

// Repository runs the read-only queries the exports are built from.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TimesheetRow is one record line destined for the Excel timesheet.
type TimesheetRow struct {
	WorkerName string
	WorkDate   time.Time
	Start      string
	End        string
	Hours      float64
	Note       string
}

// TimesheetRows loads all records of one project-week with worker
// names, ordered by worker and date.
func (r *Repository) TimesheetRows(ctx context.Context, projectID uuid.UUID, week shared.Week) ([]TimesheetRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.name, r.work_date, r.start_time, r.end_time, r.total_hours, r.note
FROM performance_records r
JOIN profiles p ON p.id = r.user_id
WHERE r.project_id = $1 AND r.work_date BETWEEN $2 AND $3 AND r.deleted_at IS NULL
ORDER BY p.name ASC, r.work_date ASC`, projectID, week.Monday(), week.Sunday())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimesheetRow
	for rows.Next() {
		var row TimesheetRow
		if err := rows.Scan(&row.WorkerName, &row.WorkDate, &row.Start, &row.End, &row.Hours, &row.Note); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ProjectCode resolves a project's short code for filenames.
func (r *Repository) ProjectCode(ctx context.Context, projectID uuid.UUID) (string, error) {
	var code string
	err := r.pool.QueryRow(ctx, `SELECT code FROM projects WHERE id = $1 AND deleted_at IS NULL`, projectID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return code, err
}

// snapshotQuery pulls one table into backup rows via a generic scan.
func snapshotQuery[T any](ctx context.Context, pool *pgxpool.Pool, query string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// SnapshotProfiles returns all live profiles for the backup. Password
// hashes never leave the database.
func (r *Repository) SnapshotProfiles(ctx context.Context) ([]BackupProfile, error) {
	return snapshotQuery(ctx, r.pool, `SELECT id, email, name, role, hourly_rate, iban, is_active FROM profiles WHERE deleted_at IS NULL ORDER BY name`,
		func(rows pgx.Rows) (BackupProfile, error) {
			var p BackupProfile
			err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.HourlyRate, &p.IBAN, &p.IsActive)
			return p, err
		})
}

// SnapshotProjects returns all live projects.
func (r *Repository) SnapshotProjects(ctx context.Context) ([]BackupProject, error) {
	return snapshotQuery(ctx, r.pool, `SELECT id, name, code, address, client_name, is_active FROM projects WHERE deleted_at IS NULL ORDER BY name`,
		func(rows pgx.Rows) (BackupProject, error) {
			var p BackupProject
			err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Address, &p.ClientName, &p.IsActive)
			return p, err
		})
}

// SnapshotRecords returns all live performance records.
func (r *Repository) SnapshotRecords(ctx context.Context) ([]BackupRecord, error) {
	return snapshotQuery(ctx, r.pool, `SELECT id, user_id, project_id, work_date, start_time, end_time, break1_start, break1_end, break2_start, break2_end, note, total_hours, hours_overridden, status FROM performance_records WHERE deleted_at IS NULL ORDER BY work_date`,
		func(rows pgx.Rows) (BackupRecord, error) {
			var rec BackupRecord
			var workDate time.Time
			err := rows.Scan(&rec.ID, &rec.UserID, &rec.ProjectID, &workDate, &rec.Start, &rec.End,
				&rec.Break1Start, &rec.Break1End, &rec.Break2Start, &rec.Break2End,
				&rec.Note, &rec.TotalHours, &rec.HoursOverridden, &rec.Status)
			rec.WorkDate = workDate.Format("2006-01-02")
			return rec, err
		})
}

// SnapshotInvoices returns all live invoices.
func (r *Repository) SnapshotInvoices(ctx context.Context) ([]BackupInvoice, error) {
	return snapshotQuery(ctx, r.pool, `SELECT id, number, user_id, closing_id, iso_year, iso_week, hours, hourly_rate, subtotal, tax_amount, total, status, issued_at, due_at, paid_at FROM invoices WHERE deleted_at IS NULL ORDER BY number`,
		func(rows pgx.Rows) (BackupInvoice, error) {
			var inv BackupInvoice
			err := rows.Scan(&inv.ID, &inv.Number, &inv.UserID, &inv.ClosingID, &inv.ISOYear, &inv.ISOWeek,
				&inv.Hours, &inv.HourlyRate, &inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.Status,
				&inv.IssuedAt, &inv.DueAt, &inv.PaidAt)
			return inv, err
		})
}

// SnapshotAccommodations returns all live accommodations.
func (r *Repository) SnapshotAccommodations(ctx context.Context) ([]BackupAccommodation, error) {
	return snapshotQuery(ctx, r.pool, `SELECT id, name, address, capacity, monthly_cost FROM accommodations WHERE deleted_at IS NULL ORDER BY name`,
		func(rows pgx.Rows) (BackupAccommodation, error) {
			var a BackupAccommodation
			err := rows.Scan(&a.ID, &a.Name, &a.Address, &a.Capacity, &a.MonthlyCost)
			return a, err
		})
}

// SnapshotAssignments returns all live accommodation assignments.
func (r *Repository) SnapshotAssignments(ctx context.Context) ([]BackupAssignment, error) {
	return snapshotQuery(ctx, r.pool, `SELECT id, accommodation_id, user_id, starts_on, ends_on, cost FROM accommodation_assignments WHERE deleted_at IS NULL ORDER BY starts_on`,
		func(rows pgx.Rows) (BackupAssignment, error) {
			var a BackupAssignment
			var starts time.Time
			var ends *time.Time
			err := rows.Scan(&a.ID, &a.AccommodationID, &a.UserID, &starts, &ends, &a.Cost)
			a.StartsOn = starts.Format("2006-01-02")
			if ends != nil {
				v := ends.Format("2006-01-02")
				a.EndsOn = &v
			}
			return a, err
		})
}
