package export

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates a referenced entity does not exist.
var ErrNotFound = errors.New("export: not found")

// Backup is the full JSON snapshot an admin can download. Password
// hashes and soft-deleted rows are excluded.
type Backup struct {
	ExportedAt     time.Time             `json:"exported_at"`
	Version        string                `json:"version"`
	Profiles       []BackupProfile       `json:"profiles"`
	Projects       []BackupProject       `json:"projects"`
	Records        []BackupRecord        `json:"performance_records"`
	Invoices       []BackupInvoice       `json:"invoices"`
	Accommodations []BackupAccommodation `json:"accommodations"`
	Assignments    []BackupAssignment    `json:"accommodation_assignments"`
}

// BackupProfile mirrors one profile row.
type BackupProfile struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	HourlyRate float64   `json:"hourly_rate"`
	IBAN       string    `json:"iban"`
	IsActive   bool      `json:"is_active"`
}

// BackupProject mirrors one project row.
type BackupProject struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Address    string    `json:"address"`
	ClientName string    `json:"client_name"`
	IsActive   bool      `json:"is_active"`
}

// BackupRecord mirrors one performance record row.
type BackupRecord struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	ProjectID       uuid.UUID `json:"project_id"`
	WorkDate        string    `json:"work_date"`
	Start           string    `json:"start_time"`
	End             string    `json:"end_time"`
	Break1Start     string    `json:"break1_start,omitempty"`
	Break1End       string    `json:"break1_end,omitempty"`
	Break2Start     string    `json:"break2_start,omitempty"`
	Break2End       string    `json:"break2_end,omitempty"`
	Note            string    `json:"note,omitempty"`
	TotalHours      float64   `json:"total_hours"`
	HoursOverridden bool      `json:"hours_overridden"`
	Status          string    `json:"status"`
}

// BackupInvoice mirrors one invoice row.
type BackupInvoice struct {
	ID         uuid.UUID  `json:"id"`
	Number     string     `json:"number"`
	UserID     uuid.UUID  `json:"user_id"`
	ClosingID  uuid.UUID  `json:"closing_id"`
	ISOYear    int        `json:"iso_year"`
	ISOWeek    int        `json:"iso_week"`
	Hours      float64    `json:"hours"`
	HourlyRate float64    `json:"hourly_rate"`
	Subtotal   float64    `json:"subtotal"`
	TaxAmount  float64    `json:"tax_amount"`
	Total      float64    `json:"total"`
	Status     string     `json:"status"`
	IssuedAt   time.Time  `json:"issued_at"`
	DueAt      time.Time  `json:"due_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// BackupAccommodation mirrors one accommodation row.
type BackupAccommodation struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Capacity    int       `json:"capacity"`
	MonthlyCost float64   `json:"monthly_cost"`
}

// BackupAssignment mirrors one accommodation assignment row.
type BackupAssignment struct {
	ID              uuid.UUID `json:"id"`
	AccommodationID uuid.UUID `json:"accommodation_id"`
	UserID          uuid.UUID `json:"user_id"`
	StartsOn        string    `json:"starts_on"`
	EndsOn          *string   `json:"ends_on,omitempty"`
	Cost            float64   `json:"cost"`
}
