package timesheet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/werkzeit/werkzeit/internal/shared"
)

type memoryStore struct {
	records map[uuid.UUID]Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]Record)}
}

func (m *memoryStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, ok := m.records[id]
	if !ok || rec.DeletedAt != nil {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryStore) Insert(ctx context.Context, rec Record) (Record, error) {
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memoryStore) Update(ctx context.Context, rec Record) error {
	if _, ok := m.records[rec.ID]; !ok {
		return ErrNotFound
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memoryStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	rec, ok := m.records[id]
	if !ok || rec.DeletedAt != nil {
		return ErrNotFound
	}
	rec.DeletedAt = &at
	m.records[id] = rec
	return nil
}

func (m *memoryStore) ListForUserWeek(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	return m.listRange(userID, from, to), nil
}

func (m *memoryStore) ListForUserRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	return m.listRange(userID, from, to), nil
}

func (m *memoryStore) ListForProjectWeek(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]Record, error) {
	var out []Record
	for _, rec := range m.records {
		if rec.ProjectID != projectID || rec.DeletedAt != nil {
			continue
		}
		if rec.WorkDate.Before(from) || rec.WorkDate.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryStore) listRange(userID uuid.UUID, from, to time.Time) []Record {
	var out []Record
	for _, rec := range m.records {
		if rec.UserID != userID || rec.DeletedAt != nil {
			continue
		}
		if rec.WorkDate.Before(from) || rec.WorkDate.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

type stubGuard struct {
	lockedWeeks map[shared.Week]bool
}

func (g stubGuard) WeekLocked(ctx context.Context, userID uuid.UUID, week shared.Week) (bool, error) {
	return g.lockedWeeks[week], nil
}

func newTestService(store *memoryStore, guard stubGuard) *Service {
	return NewService(store, guard, nil, nil)
}

func validInput() Input {
	return Input{
		ProjectID:   uuid.New(),
		WorkDate:    time.Date(2025, 10, 14, 0, 0, 0, 0, time.UTC),
		Start:       "07:00",
		End:         "16:00",
		Break1Start: "12:00",
		Break1End:   "12:30",
	}
}

func TestCreateComputesHours(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})

	actor := shared.Actor{ID: uuid.New(), Role: "monter"}
	rec, err := svc.Create(context.Background(), actor, validInput())
	require.NoError(t, err)
	require.Equal(t, 8.5, rec.TotalHours)
	require.Equal(t, StatusDraft, rec.Status)
	require.False(t, rec.HoursOverridden)
}

func TestCreateManualOverride(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})

	in := validInput()
	in.TotalHours = 9.0
	in.HoursOverridden = true

	actor := shared.Actor{ID: uuid.New(), Role: "monter"}
	rec, err := svc.Create(context.Background(), actor, in)
	require.NoError(t, err)
	require.Equal(t, 9.0, rec.TotalHours)
	require.True(t, rec.HoursOverridden)
}

func TestUpdateKeepsOverrideUntilTimesChange(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})
	actor := shared.Actor{ID: uuid.New(), Role: "monter"}

	rec, err := svc.Create(context.Background(), actor, validInput())
	require.NoError(t, err)

	// Manual value with unchanged times stays put.
	in := validInput()
	in.ProjectID = rec.ProjectID
	in.TotalHours = 10.0
	in.HoursOverridden = true
	rec, err = svc.Update(context.Background(), actor, rec.ID, in)
	require.NoError(t, err)
	require.Equal(t, 10.0, rec.TotalHours)
	require.True(t, rec.HoursOverridden)

	// Touching a time field re-arms recalculation.
	in.End = "17:00"
	rec, err = svc.Update(context.Background(), actor, rec.ID, in)
	require.NoError(t, err)
	require.Equal(t, 9.5, rec.TotalHours)
	require.False(t, rec.HoursOverridden)
}

func TestCreateRejectsNegativeDuration(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})
	actor := shared.Actor{ID: uuid.New(), Role: "monter"}

	in := validInput()
	in.Start = "16:00"
	in.End = "07:00"
	_, err := svc.Create(context.Background(), actor, in)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRejectsZeroHours(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})
	actor := shared.Actor{ID: uuid.New(), Role: "monter"}

	in := validInput()
	in.Start = "08:00"
	in.End = "08:00"
	in.Break1Start = ""
	in.Break1End = ""
	_, err := svc.Create(context.Background(), actor, in)
	require.ErrorIs(t, err, ErrNonPositiveHours)
}

func TestUpdateForeignRecordRejected(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})
	owner := shared.Actor{ID: uuid.New(), Role: "monter"}

	rec, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	other := shared.Actor{ID: uuid.New(), Role: "monter"}
	_, err = svc.Update(context.Background(), other, rec.ID, validInput())
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdateSubmittedRecordRejected(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})
	actor := shared.Actor{ID: uuid.New(), Role: "monter"}

	rec, err := svc.Create(context.Background(), actor, validInput())
	require.NoError(t, err)

	rec.Status = StatusSubmitted
	store.records[rec.ID] = rec

	_, err = svc.Update(context.Background(), actor, rec.ID, validInput())
	require.ErrorIs(t, err, ErrNotEditable)

	err = svc.Delete(context.Background(), actor, rec.ID)
	require.ErrorIs(t, err, ErrNotEditable)
}

func TestLockedWeekBlocksEdits(t *testing.T) {
	store := newMemoryStore()
	actor := shared.Actor{ID: uuid.New(), Role: "monter"}

	open := stubGuard{lockedWeeks: map[shared.Week]bool{}}
	svc := newTestService(store, open)
	rec, err := svc.Create(context.Background(), actor, validInput())
	require.NoError(t, err)

	locked := stubGuard{lockedWeeks: map[shared.Week]bool{{Year: 2025, Week: 42}: true}}
	svc = newTestService(store, locked)

	_, err = svc.Create(context.Background(), actor, validInput())
	require.ErrorIs(t, err, ErrWeekLocked)

	_, err = svc.Update(context.Background(), actor, rec.ID, validInput())
	require.ErrorIs(t, err, ErrWeekLocked)

	err = svc.Delete(context.Background(), actor, rec.ID)
	require.ErrorIs(t, err, ErrWeekLocked)
}

func TestWeekTotals(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, stubGuard{})
	actor := shared.Actor{ID: uuid.New(), Role: "monter"}

	first := validInput()
	_, err := svc.Create(context.Background(), actor, first)
	require.NoError(t, err)

	second := validInput()
	second.WorkDate = time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	second.Break1Start = ""
	second.Break1End = ""
	_, err = svc.Create(context.Background(), actor, second)
	require.NoError(t, err)

	// A record in the following week must not count.
	outside := validInput()
	outside.WorkDate = time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), actor, outside)
	require.NoError(t, err)

	records, total, err := svc.Week(context.Background(), actor.ID, shared.Week{Year: 2025, Week: 42})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 17.5, total)
}
