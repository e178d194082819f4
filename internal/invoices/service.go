package invoices

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store abstracts invoice persistence.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	NextSequence(ctx context.Context, tx pgx.Tx, year int) (int, error)
	LoadBillable(ctx context.Context, tx pgx.Tx, closingID uuid.UUID) (BillableClosing, error)
	Insert(ctx context.Context, tx pgx.Tx, inv Invoice) error
	Get(ctx context.Context, id uuid.UUID) (Invoice, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Invoice, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Invoice, error)
	SetStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, paidAt *time.Time, at time.Time) error
	RefreshDueStatuses(ctx context.Context, now time.Time, dueSoonWindow time.Duration) (int64, error)
	SummaryForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) (FinancialSummary, error)
}

// Config carries the billing parameters.
type Config struct {
	TaxRate   float64
	DueIn     time.Duration
	DueSoonIn time.Duration
}

// Service issues invoices and drives their payment lifecycle.
type Service struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Generate issues an invoice for one approved or locked worker-week.
// Number allocation, the billing snapshot and the insert share one
// transaction.
func (s *Service) Generate(ctx context.Context, closingID uuid.UUID) (Invoice, error) {
	now := s.now()
	var inv Invoice
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		basis, err := s.store.LoadBillable(ctx, tx, closingID)
		if err != nil {
			return err
		}
		if basis.Hours <= 0 {
			return ErrNoBillableHours
		}
		seq, err := s.store.NextSequence(ctx, tx, now.Year())
		if err != nil {
			return err
		}
		subtotal := roundMoney(basis.Hours * basis.HourlyRate)
		tax := roundMoney(subtotal * s.cfg.TaxRate)
		inv = Invoice{
			ID:         uuid.New(),
			Number:     FormatNumber(now.Year(), seq),
			Sequence:   seq,
			IssueYear:  now.Year(),
			UserID:     basis.UserID,
			ClosingID:  basis.ClosingID,
			ISOYear:    basis.ISOYear,
			ISOWeek:    basis.ISOWeek,
			WorkerName: basis.WorkerName,
			WorkerIBAN: basis.WorkerIBAN,
			Hours:      basis.Hours,
			HourlyRate: basis.HourlyRate,
			Subtotal:   subtotal,
			TaxRate:    s.cfg.TaxRate,
			TaxAmount:  tax,
			Total:      roundMoney(subtotal + tax),
			Status:     StatusPending,
			IssuedAt:   now,
			DueAt:      now.Add(s.cfg.DueIn),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return s.store.Insert(ctx, tx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Get loads a single invoice.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return s.store.Get(ctx, id)
}

// List returns invoices, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]Invoice, error) {
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, status)
	}
	limit, offset = clampPage(limit, offset)
	return s.store.List(ctx, status, limit, offset)
}

// ListForUser returns one worker's invoices.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Invoice, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.ListForUser(ctx, userID, limit, offset)
}

// MarkPaid settles an invoice. Allowed from any unpaid live state.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (Invoice, error) {
	now := s.now()
	err := s.store.SetStatus(ctx, id, []Status{StatusPending, StatusDueSoon, StatusOverdue}, StatusPaid, &now, now)
	if err != nil {
		return Invoice{}, err
	}
	return s.store.Get(ctx, id)
}

// Void cancels an unpaid invoice. The week becomes billable again.
func (s *Service) Void(ctx context.Context, id uuid.UUID) (Invoice, error) {
	now := s.now()
	err := s.store.SetStatus(ctx, id, []Status{StatusPending, StatusDueSoon, StatusOverdue}, StatusVoid, nil, now)
	if err != nil {
		return Invoice{}, err
	}
	return s.store.Get(ctx, id)
}

// RefreshDueStatuses advances pending invoices towards due_soon and
// overdue based on the current time. Run nightly by the worker.
func (s *Service) RefreshDueStatuses(ctx context.Context) (int64, error) {
	return s.store.RefreshDueStatuses(ctx, s.now(), s.cfg.DueSoonIn)
}

// Summary aggregates a worker's financials over a date range.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, from, to time.Time) (FinancialSummary, error) {
	if to.Before(from) {
		return FinancialSummary{}, fmt.Errorf("%w: range end precedes start", ErrInvalidFilter)
	}
	return s.store.SummaryForUser(ctx, userID, from, to)
}

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusDueSoon, StatusOverdue, StatusPaid, StatusVoid:
		return true
	}
	return false
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
