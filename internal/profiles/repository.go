package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/werkzeit/werkzeit/internal/rbac"
)

const profileColumns = `id, email, name, password_hash, role, hourly_rate, iban, is_active, deleted_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var role string
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.PasswordHash, &role, &p.HourlyRate, &p.IBAN, &p.IsActive, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.Role = rbac.Role(role)
	return p, nil
}

// Get fetches a live profile by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanProfile(row)
}

// FindByEmail fetches a live profile by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1 AND deleted_at IS NULL`, email)
	return scanProfile(row)
}

// List returns all live profiles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Insert creates a new profile row.
func (r *Repository) Insert(ctx context.Context, p Profile) (Profile, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO profiles (id, email, name, password_hash, role, hourly_rate, iban, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`,
		p.ID, p.Email, p.Name, p.PasswordHash, string(p.Role), p.HourlyRate, p.IBAN, p.IsActive).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, err
	}
	return p, nil
}

// Update mutates name, rate, iban and active flag.
func (r *Repository) Update(ctx context.Context, in UpdateInput) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET name = $2, hourly_rate = $3, iban = $4, is_active = $5, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NULL`, in.ID, in.Name, in.HourlyRate, in.IBAN, in.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRole changes the profile role.
func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks the profile deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE profiles SET deleted_at = $2, is_active = FALSE, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
