package closing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/werkzeit/werkzeit/internal/shared"
	"github.com/werkzeit/werkzeit/internal/timesheet"
)

type memoryClosingStore struct {
	closings map[uuid.UUID]Closing
	records  map[uuid.UUID]timesheet.Record
	invoiced map[uuid.UUID]bool
}

func newMemoryClosingStore() *memoryClosingStore {
	return &memoryClosingStore{
		closings: make(map[uuid.UUID]Closing),
		records:  make(map[uuid.UUID]timesheet.Record),
		invoiced: make(map[uuid.UUID]bool),
	}
}

func (m *memoryClosingStore) addRecord(userID uuid.UUID, date time.Time, hours float64, status timesheet.RecordStatus) uuid.UUID {
	id := uuid.New()
	m.records[id] = timesheet.Record{
		ID:         id,
		UserID:     userID,
		ProjectID:  uuid.New(),
		WorkDate:   date,
		TotalHours: hours,
		Status:     status,
	}
	return id
}

func (m *memoryClosingStore) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

func (m *memoryClosingStore) find(userID uuid.UUID, week shared.Week) (Closing, bool) {
	for _, c := range m.closings {
		if c.UserID == userID && c.ISOYear == week.Year && c.ISOWeek == week.Week && c.DeletedAt == nil {
			return c, true
		}
	}
	return Closing{}, false
}

func (m *memoryClosingStore) UpsertSubmitted(ctx context.Context, tx pgx.Tx, userID uuid.UUID, week shared.Week, at time.Time) (Closing, error) {
	if c, ok := m.find(userID, week); ok {
		if c.Status != StatusOpen && c.Status != StatusReturned {
			return Closing{}, ErrInvalidTransition
		}
		c.Status = StatusSubmitted
		c.SubmittedAt = &at
		c.ReturnComment = ""
		m.closings[c.ID] = c
		return c, nil
	}
	c := Closing{
		ID:          uuid.New(),
		UserID:      userID,
		ISOYear:     week.Year,
		ISOWeek:     week.Week,
		Status:      StatusSubmitted,
		SubmittedAt: &at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	m.closings[c.ID] = c
	return c, nil
}

func (m *memoryClosingStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Closing, error) {
	c, ok := m.closings[id]
	if !ok || c.DeletedAt != nil {
		return Closing{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryClosingStore) MarkApproved(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, at time.Time) error {
	return m.mark(id, StatusSubmitted, func(c *Closing) {
		c.Status = StatusApproved
		c.ApprovedAt = &at
		c.ApprovedBy = &reviewerID
	})
}

func (m *memoryClosingStore) MarkReturned(ctx context.Context, tx pgx.Tx, id uuid.UUID, comment string, at time.Time) error {
	return m.mark(id, StatusSubmitted, func(c *Closing) {
		c.Status = StatusReturned
		c.ReturnComment = comment
	})
}

func (m *memoryClosingStore) MarkResubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	return m.mark(id, StatusApproved, func(c *Closing) {
		c.Status = StatusSubmitted
		c.ApprovedAt = nil
		c.ApprovedBy = nil
	})
}

func (m *memoryClosingStore) MarkLocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	return m.mark(id, StatusApproved, func(c *Closing) {
		c.Status = StatusLocked
	})
}

func (m *memoryClosingStore) mark(id uuid.UUID, expected Status, apply func(*Closing)) error {
	c, ok := m.closings[id]
	if !ok || c.Status != expected {
		return ErrInvalidTransition
	}
	apply(&c)
	m.closings[id] = c
	return nil
}

func (m *memoryClosingStore) ShiftRecordStatuses(ctx context.Context, tx pgx.Tx, userID uuid.UUID, week shared.Week, from []timesheet.RecordStatus, to timesheet.RecordStatus, at time.Time) (int64, error) {
	var moved int64
	for id, rec := range m.records {
		if rec.UserID != userID || !week.Contains(rec.WorkDate) || rec.DeletedAt != nil {
			continue
		}
		for _, st := range from {
			if rec.Status == st {
				rec.Status = to
				m.records[id] = rec
				moved++
				break
			}
		}
	}
	return moved, nil
}

func (m *memoryClosingStore) Get(ctx context.Context, id uuid.UUID) (Closing, error) {
	return m.GetForUpdate(ctx, nil, id)
}

func (m *memoryClosingStore) FindForUser(ctx context.Context, userID uuid.UUID, week shared.Week) (Closing, error) {
	if c, ok := m.find(userID, week); ok {
		return c, nil
	}
	return Closing{}, ErrNotFound
}

func (m *memoryClosingStore) ListPendingReview(ctx context.Context) ([]Summary, error) {
	var out []Summary
	for _, c := range m.closings {
		if c.Status == StatusSubmitted && c.DeletedAt == nil {
			out = append(out, Summary{Closing: c})
		}
	}
	return out, nil
}

func (m *memoryClosingStore) ListRecentlyApproved(ctx context.Context, since time.Time) ([]Summary, error) {
	var out []Summary
	for _, c := range m.closings {
		if c.Status == StatusApproved && c.ApprovedAt != nil && !c.ApprovedAt.Before(since) {
			out = append(out, Summary{Closing: c})
		}
	}
	return out, nil
}

func (m *memoryClosingStore) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Closing, error) {
	var out []Closing
	for _, c := range m.closings {
		if c.UserID == userID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryClosingStore) HasInvoice(ctx context.Context, closingID uuid.UUID) (bool, error) {
	return m.invoiced[closingID], nil
}

var testWeek = shared.Week{Year: 2025, Week: 42}

func newClosingService(store Store, at time.Time) *Service {
	svc := NewService(store, nil, nil, 5*time.Minute)
	svc.WithNow(func() time.Time { return at })
	return svc
}

func TestSubmitApproveUndoRoundTrip(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}
	manager := shared.Actor{ID: uuid.New(), Role: "manager"}

	monday := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	first := store.addRecord(worker.ID, monday, 8.5, timesheet.StatusDraft)
	second := store.addRecord(worker.ID, monday.AddDate(0, 0, 1), 7.5, timesheet.StatusDraft)

	start := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	svc := newClosingService(store, start)

	c, err := svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, c.Status)
	require.Equal(t, timesheet.StatusSubmitted, store.records[first].Status)
	require.Equal(t, timesheet.StatusSubmitted, store.records[second].Status)

	c, err = svc.Approve(context.Background(), manager, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, c.Status)
	require.Equal(t, manager.ID, *c.ApprovedBy)
	require.Equal(t, timesheet.StatusApproved, store.records[first].Status)

	// Hour values survive the round trip untouched.
	require.Equal(t, 8.5, store.records[first].TotalHours)
	require.Equal(t, 7.5, store.records[second].TotalHours)

	svc.WithNow(func() time.Time { return start.Add(4*time.Minute + 59*time.Second) })
	c, err = svc.Undo(context.Background(), manager, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, c.Status)
	require.Nil(t, c.ApprovedAt)
	require.Equal(t, timesheet.StatusSubmitted, store.records[first].Status)
}

func TestSubmitLeavesOtherWeeksAlone(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}

	inWeek := store.addRecord(worker.ID, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), 8, timesheet.StatusDraft)
	nextWeek := store.addRecord(worker.ID, time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC), 6, timesheet.StatusDraft)

	svc := newClosingService(store, time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC))
	_, err := svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)

	require.Equal(t, timesheet.StatusSubmitted, store.records[inWeek].Status)
	require.Equal(t, timesheet.StatusDraft, store.records[nextWeek].Status)
}

func TestUndoWindowExpires(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}
	manager := shared.Actor{ID: uuid.New(), Role: "manager"}
	store.addRecord(worker.ID, time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC), 8, timesheet.StatusDraft)

	start := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	svc := newClosingService(store, start)

	c, err := svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)
	c, err = svc.Approve(context.Background(), manager, c.ID)
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return start.Add(5*time.Minute + time.Second) })
	_, err = svc.Undo(context.Background(), manager, c.ID)
	require.ErrorIs(t, err, ErrUndoWindowExpired)

	// The approval stands.
	got, err := store.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)
}

func TestSubmitWithoutRecords(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}
	svc := newClosingService(store, time.Now())

	_, err := svc.Submit(context.Background(), worker, testWeek)
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestDoubleSubmitRejected(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}
	store.addRecord(worker.ID, time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC), 8, timesheet.StatusDraft)
	svc := newClosingService(store, time.Now())

	_, err := svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), worker, testWeek)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReturnRequiresComment(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}
	manager := shared.Actor{ID: uuid.New(), Role: "manager"}
	rec := store.addRecord(worker.ID, time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC), 8, timesheet.StatusDraft)
	svc := newClosingService(store, time.Now())

	c, err := svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)

	_, err = svc.Return(context.Background(), manager, c.ID, "  ")
	require.ErrorIs(t, err, ErrReturnCommentRequired)

	c, err = svc.Return(context.Background(), manager, c.ID, "missing tuesday entry")
	require.NoError(t, err)
	require.Equal(t, StatusReturned, c.Status)
	require.Equal(t, "missing tuesday entry", c.ReturnComment)
	require.Equal(t, timesheet.StatusReturned, store.records[rec].Status)

	// A returned week can be submitted again, clearing the comment.
	c, err = svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, c.Status)
	require.Empty(t, c.ReturnComment)
}

func TestLockOnlyFromApproved(t *testing.T) {
	store := newMemoryClosingStore()
	worker := shared.Actor{ID: uuid.New(), Role: "monter"}
	admin := shared.Actor{ID: uuid.New(), Role: "admin"}
	store.addRecord(worker.ID, time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC), 8, timesheet.StatusDraft)
	svc := newClosingService(store, time.Now())

	c, err := svc.Submit(context.Background(), worker, testWeek)
	require.NoError(t, err)

	_, err = svc.Lock(context.Background(), admin, c.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	c, err = svc.Approve(context.Background(), admin, c.ID)
	require.NoError(t, err)
	c, err = svc.Lock(context.Background(), admin, c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusLocked, c.Status)

	// Terminal: no transition leaves the locked state.
	_, err = svc.Approve(context.Background(), admin, c.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Undo(context.Background(), admin, c.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Submit(context.Background(), worker, testWeek)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWeekStatusDefaultsToOpen(t *testing.T) {
	store := newMemoryClosingStore()
	svc := newClosingService(store, time.Now())

	c, err := svc.WeekStatus(context.Background(), uuid.New(), testWeek)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, c.Status)
}
