package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists all masterdata entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const projectColumns = `id, name, code, address, client_name, is_active, deleted_at, created_at, updated_at`

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Address, &p.ClientName, &p.IsActive, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

// GetProject loads a project by id.
func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanProject(row)
}

// ListProjects returns projects ordered by name. activeOnly hides
// finished sites from worker-facing pickers.
func (r *Repository) ListProjects(ctx context.Context, activeOnly bool) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active`
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertProject creates a project.
func (r *Repository) InsertProject(ctx context.Context, p Project) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO projects (id, name, code, address, client_name, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, p.ID, p.Name, p.Code, p.Address, p.ClientName, p.IsActive, p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrCodeTaken
	}
	return err
}

// UpdateProject rewrites a project.
func (r *Repository) UpdateProject(ctx context.Context, p Project) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET name = $1, code = $2, address = $3, client_name = $4, is_active = $5, updated_at = $6
WHERE id = $7 AND deleted_at IS NULL`, p.Name, p.Code, p.Address, p.ClientName, p.IsActive, p.UpdatedAt, p.ID)
	if isUniqueViolation(err) {
		return ErrCodeTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteProject hides a project from listings.
func (r *Repository) SoftDeleteProject(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.softDelete(ctx, "projects", id, at)
}

const accommodationColumns = `id, name, address, capacity, monthly_cost, note, deleted_at, created_at, updated_at`

func scanAccommodation(row pgx.Row) (Accommodation, error) {
	var a Accommodation
	err := row.Scan(&a.ID, &a.Name, &a.Address, &a.Capacity, &a.MonthlyCost, &a.Note, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Accommodation{}, ErrNotFound
	}
	return a, err
}

// GetAccommodation loads one accommodation.
func (r *Repository) GetAccommodation(ctx context.Context, id uuid.UUID) (Accommodation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accommodationColumns+` FROM accommodations WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanAccommodation(row)
}

// ListAccommodations returns all live accommodations.
func (r *Repository) ListAccommodations(ctx context.Context) ([]Accommodation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accommodationColumns+` FROM accommodations WHERE deleted_at IS NULL ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Accommodation
	for rows.Next() {
		a, err := scanAccommodation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAccommodation creates an accommodation.
func (r *Repository) InsertAccommodation(ctx context.Context, a Accommodation) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO accommodations (id, name, address, capacity, monthly_cost, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, a.ID, a.Name, a.Address, a.Capacity, a.MonthlyCost, a.Note, a.CreatedAt)
	return err
}

// UpdateAccommodation rewrites an accommodation.
func (r *Repository) UpdateAccommodation(ctx context.Context, a Accommodation) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accommodations SET name = $1, address = $2, capacity = $3, monthly_cost = $4, note = $5, updated_at = $6
WHERE id = $7 AND deleted_at IS NULL`, a.Name, a.Address, a.Capacity, a.MonthlyCost, a.Note, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteAccommodation hides an accommodation.
func (r *Repository) SoftDeleteAccommodation(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.softDelete(ctx, "accommodations", id, at)
}

const assignmentColumns = `id, accommodation_id, user_id, starts_on, ends_on, cost, deleted_at, created_at, updated_at`

func scanAssignment(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.AccommodationID, &a.UserID, &a.StartsOn, &a.EndsOn, &a.Cost, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

// InsertAssignment places a worker in an accommodation.
func (r *Repository) InsertAssignment(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO accommodation_assignments (id, accommodation_id, user_id, starts_on, ends_on, cost, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, a.ID, a.AccommodationID, a.UserID, a.StartsOn, a.EndsOn, a.Cost, a.CreatedAt)
	return err
}

// ListAssignments returns a worker's housing assignments, or all when
// userID is nil.
func (r *Repository) ListAssignments(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM accommodation_assignments WHERE deleted_at IS NULL`
	args := []any{}
	if userID != uuid.Nil {
		query += ` AND user_id = $1`
		args = append(args, userID)
	}
	rows, err := r.pool.Query(ctx, query+` ORDER BY starts_on DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// EndAssignment closes an open assignment.
func (r *Repository) EndAssignment(ctx context.Context, id uuid.UUID, endsOn time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accommodation_assignments SET ends_on = $1, updated_at = $1
WHERE id = $2 AND ends_on IS NULL AND deleted_at IS NULL`, endsOn, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteAssignment removes an assignment.
func (r *Repository) SoftDeleteAssignment(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.softDelete(ctx, "accommodation_assignments", id, at)
}

const sanctionColumns = `id, user_id, amount, reason, levied_on, created_by, deleted_at, created_at, updated_at`

// InsertSanction records a deduction.
func (r *Repository) InsertSanction(ctx context.Context, s Sanction) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sanctions (id, user_id, amount, reason, levied_on, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, s.ID, s.UserID, s.Amount, s.Reason, s.LeviedOn, s.CreatedBy, s.CreatedAt)
	return err
}

// ListSanctions returns a worker's sanctions, newest first.
func (r *Repository) ListSanctions(ctx context.Context, userID uuid.UUID) ([]Sanction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sanctionColumns+` FROM sanctions
WHERE user_id = $1 AND deleted_at IS NULL ORDER BY levied_on DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sanction
	for rows.Next() {
		var s Sanction
		if err := rows.Scan(&s.ID, &s.UserID, &s.Amount, &s.Reason, &s.LeviedOn, &s.CreatedBy, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SoftDeleteSanction withdraws a sanction.
func (r *Repository) SoftDeleteSanction(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.softDelete(ctx, "sanctions", id, at)
}

const advanceColumns = `id, user_id, amount, note, paid_on, created_by, deleted_at, created_at, updated_at`

// InsertAdvance records a wage advance.
func (r *Repository) InsertAdvance(ctx context.Context, a Advance) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO advances (id, user_id, amount, note, paid_on, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, a.ID, a.UserID, a.Amount, a.Note, a.PaidOn, a.CreatedBy, a.CreatedAt)
	return err
}

// ListAdvances returns a worker's advances, newest first.
func (r *Repository) ListAdvances(ctx context.Context, userID uuid.UUID) ([]Advance, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+advanceColumns+` FROM advances
WHERE user_id = $1 AND deleted_at IS NULL ORDER BY paid_on DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Advance
	for rows.Next() {
		var a Advance
		if err := rows.Scan(&a.ID, &a.UserID, &a.Amount, &a.Note, &a.PaidOn, &a.CreatedBy, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SoftDeleteAdvance withdraws an advance record.
func (r *Repository) SoftDeleteAdvance(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.softDelete(ctx, "advances", id, at)
}

const announcementColumns = `id, title, body, audience, published_at, expires_at, created_by, deleted_at, created_at, updated_at`

// InsertAnnouncement publishes a notice.
func (r *Repository) InsertAnnouncement(ctx context.Context, a Announcement) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO announcements (id, title, body, audience, published_at, expires_at, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`, a.ID, a.Title, a.Body, a.Audience, a.PublishedAt, a.ExpiresAt, a.CreatedBy, a.CreatedAt)
	return err
}

// ListAnnouncements returns current notices, newest first. Expired
// notices are filtered out.
func (r *Repository) ListAnnouncements(ctx context.Context, now time.Time) ([]Announcement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+announcementColumns+` FROM announcements
WHERE deleted_at IS NULL AND (expires_at IS NULL OR expires_at > $1) ORDER BY published_at DESC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Audience, &a.PublishedAt, &a.ExpiresAt, &a.CreatedBy, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SoftDeleteAnnouncement takes a notice down.
func (r *Repository) SoftDeleteAnnouncement(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.softDelete(ctx, "announcements", id, at)
}

func (r *Repository) softDelete(ctx context.Context, table string, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE `+table+` SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
