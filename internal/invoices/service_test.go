package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type memoryInvoiceStore struct {
	invoices  map[uuid.UUID]Invoice
	billables map[uuid.UUID]BillableClosing
	counters  map[int]int
}

func newMemoryInvoiceStore() *memoryInvoiceStore {
	return &memoryInvoiceStore{
		invoices:  make(map[uuid.UUID]Invoice),
		billables: make(map[uuid.UUID]BillableClosing),
		counters:  make(map[int]int),
	}
}

func (m *memoryInvoiceStore) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *memoryInvoiceStore) NextSequence(ctx context.Context, tx pgx.Tx, year int) (int, error) {
	m.counters[year]++
	return m.counters[year], nil
}

func (m *memoryInvoiceStore) LoadBillable(ctx context.Context, tx pgx.Tx, closingID uuid.UUID) (BillableClosing, error) {
	b, ok := m.billables[closingID]
	if !ok {
		return BillableClosing{}, ErrNotFound
	}
	return b, nil
}

func (m *memoryInvoiceStore) Insert(ctx context.Context, tx pgx.Tx, inv Invoice) error {
	for _, existing := range m.invoices {
		if existing.ClosingID == inv.ClosingID && existing.Status != StatusVoid {
			return ErrAlreadyInvoiced
		}
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memoryInvoiceStore) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *memoryInvoiceStore) List(ctx context.Context, status Status, limit, offset int) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if status == "" || inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryInvoiceStore) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memoryInvoiceStore) SetStatus(ctx context.Context, id uuid.UUID, from []Status, to Status, paidAt *time.Time, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrInvalidStatus
	}
	allowed := false
	for _, st := range from {
		if inv.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidStatus
	}
	inv.Status = to
	inv.PaidAt = paidAt
	m.invoices[id] = inv
	return nil
}

func (m *memoryInvoiceStore) RefreshDueStatuses(ctx context.Context, now time.Time, dueSoonWindow time.Duration) (int64, error) {
	var changed int64
	for id, inv := range m.invoices {
		switch {
		case (inv.Status == StatusPending || inv.Status == StatusDueSoon) && inv.DueAt.Before(now):
			inv.Status = StatusOverdue
			m.invoices[id] = inv
			changed++
		case inv.Status == StatusPending && !inv.DueAt.Before(now) && !inv.DueAt.After(now.Add(dueSoonWindow)):
			inv.Status = StatusDueSoon
			m.invoices[id] = inv
			changed++
		}
	}
	return changed, nil
}

func (m *memoryInvoiceStore) SummaryForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) (FinancialSummary, error) {
	return FinancialSummary{}, ErrNotFound
}

var testConfig = Config{
	TaxRate:   0.20,
	DueIn:     14 * 24 * time.Hour,
	DueSoonIn: 7 * 24 * time.Hour,
}

func TestGenerateInvoice(t *testing.T) {
	store := newMemoryInvoiceStore()
	closingID := uuid.New()
	store.billables[closingID] = BillableClosing{
		ClosingID:  closingID,
		UserID:     uuid.New(),
		ISOYear:    2025,
		ISOWeek:    42,
		WorkerName: "Jozef Kovac",
		WorkerIBAN: "SK3112000000198742637541",
		HourlyRate: 14.50,
		Hours:      42.5,
	}

	svc := NewService(store, testConfig)
	issued := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return issued })

	inv, err := svc.Generate(context.Background(), closingID)
	require.NoError(t, err)
	require.Equal(t, "FA-2025-0001", inv.Number)
	require.Equal(t, 616.25, inv.Subtotal)
	require.Equal(t, 123.25, inv.TaxAmount)
	require.Equal(t, 739.5, inv.Total)
	require.Equal(t, StatusPending, inv.Status)
	require.Equal(t, issued.Add(testConfig.DueIn), inv.DueAt)

	// Sequence increments per year.
	second := uuid.New()
	store.billables[second] = store.billables[closingID]
	store.billables[second] = BillableClosing{ClosingID: second, UserID: uuid.New(), HourlyRate: 10, Hours: 8}
	inv2, err := svc.Generate(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, "FA-2025-0002", inv2.Number)
}

func TestGenerateRejectsDuplicate(t *testing.T) {
	store := newMemoryInvoiceStore()
	closingID := uuid.New()
	store.billables[closingID] = BillableClosing{ClosingID: closingID, UserID: uuid.New(), HourlyRate: 12, Hours: 40}

	svc := NewService(store, testConfig)
	_, err := svc.Generate(context.Background(), closingID)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), closingID)
	require.ErrorIs(t, err, ErrAlreadyInvoiced)
}

func TestGenerateRejectsEmptyWeek(t *testing.T) {
	store := newMemoryInvoiceStore()
	closingID := uuid.New()
	store.billables[closingID] = BillableClosing{ClosingID: closingID, UserID: uuid.New(), HourlyRate: 12, Hours: 0}

	svc := NewService(store, testConfig)
	_, err := svc.Generate(context.Background(), closingID)
	require.ErrorIs(t, err, ErrNoBillableHours)
}

func TestPaymentLifecycle(t *testing.T) {
	store := newMemoryInvoiceStore()
	closingID := uuid.New()
	store.billables[closingID] = BillableClosing{ClosingID: closingID, UserID: uuid.New(), HourlyRate: 12, Hours: 40}

	svc := NewService(store, testConfig)
	inv, err := svc.Generate(context.Background(), closingID)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	// Paid invoices can be neither voided nor paid again.
	_, err = svc.Void(context.Background(), inv.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.MarkPaid(context.Background(), inv.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRefreshDueStatuses(t *testing.T) {
	store := newMemoryInvoiceStore()
	svc := NewService(store, testConfig)

	now := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	fresh := Invoice{ID: uuid.New(), Status: StatusPending, DueAt: now.Add(10 * 24 * time.Hour)}
	closeBy := Invoice{ID: uuid.New(), Status: StatusPending, DueAt: now.Add(3 * 24 * time.Hour)}
	late := Invoice{ID: uuid.New(), Status: StatusPending, DueAt: now.Add(-time.Hour)}
	paid := Invoice{ID: uuid.New(), Status: StatusPaid, DueAt: now.Add(-time.Hour)}
	for _, inv := range []Invoice{fresh, closeBy, late, paid} {
		store.invoices[inv.ID] = inv
	}

	changed, err := svc.RefreshDueStatuses(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, changed)
	require.Equal(t, StatusPending, store.invoices[fresh.ID].Status)
	require.Equal(t, StatusDueSoon, store.invoices[closeBy.ID].Status)
	require.Equal(t, StatusOverdue, store.invoices[late.ID].Status)
	require.Equal(t, StatusPaid, store.invoices[paid.ID].Status)
}

func TestVoidFreesClosingForReissue(t *testing.T) {
	store := newMemoryInvoiceStore()
	closingID := uuid.New()
	store.billables[closingID] = BillableClosing{ClosingID: closingID, UserID: uuid.New(), HourlyRate: 12, Hours: 40}

	svc := NewService(store, testConfig)
	svc.WithNow(func() time.Time { return time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC) })
	inv, err := svc.Generate(context.Background(), closingID)
	require.NoError(t, err)

	_, err = svc.Void(context.Background(), inv.ID)
	require.NoError(t, err)

	reissued, err := svc.Generate(context.Background(), closingID)
	require.NoError(t, err)
	require.Equal(t, "FA-2025-0002", reissued.Number)
}
