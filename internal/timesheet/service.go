package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/shared"
)

// Store abstracts record persistence for the service.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	ListForUserWeek(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error)
	ListForUserRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error)
	ListForProjectWeek(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]Record, error)
}

// WeekGuard answers whether a user's week has reached the locked state.
// Implemented by the closing repository; an interface here avoids a
// package cycle.
type WeekGuard interface {
	WeekLocked(ctx context.Context, userID uuid.UUID, week shared.Week) (bool, error)
}

// Service orchestrates record entry rules.
type Service struct {
	store  Store
	guard  WeekGuard
	audit  *shared.AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, guard WeekGuard, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{store: store, guard: guard, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// resolveHours applies the manual-override contract: a manual value wins
// until any time field differs from what is stored, after which the
// server recomputes and the override disarms.
func (s *Service) resolveHours(in Input, prev *Record) (hours float64, overridden bool, err error) {
	timesChanged := prev == nil ||
		prev.Start != in.Start || prev.End != in.End ||
		prev.Break1Start != in.Break1Start || prev.Break1End != in.Break1End ||
		prev.Break2Start != in.Break2Start || prev.Break2End != in.Break2End

	if in.HoursOverridden && !timesChanged {
		return round2(in.TotalHours), true, nil
	}

	computed, err := WorkedHours(in.Start, in.End,
		Break{Start: in.Break1Start, End: in.Break1End},
		Break{Start: in.Break2Start, End: in.Break2End})
	if err != nil {
		return 0, false, err
	}
	return computed, false, nil
}

// Create books a new draft record for the acting worker.
func (s *Service) Create(ctx context.Context, actor shared.Actor, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	if err := s.ensureWeekOpen(ctx, actor.ID, in.WorkDate); err != nil {
		return Record{}, err
	}
	hours, overridden, err := s.resolveHours(in, nil)
	if err != nil {
		if errors.Is(err, ErrNegativeDuration) {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Record{}, err
	}
	if in.HoursOverridden {
		// A fresh entry carries no prior time fields to compare against,
		// so an explicit manual value is accepted as given.
		hours, overridden = round2(in.TotalHours), true
	}
	if hours <= 0 {
		return Record{}, ErrNonPositiveHours
	}

	rec, err := s.store.Insert(ctx, Record{
		ID:              uuid.New(),
		UserID:          actor.ID,
		ProjectID:       in.ProjectID,
		WorkDate:        in.WorkDate,
		Start:           in.Start,
		End:             in.End,
		Break1Start:     in.Break1Start,
		Break1End:       in.Break1End,
		Break2Start:     in.Break2Start,
		Break2End:       in.Break2End,
		Note:            in.Note,
		TotalHours:      hours,
		HoursOverridden: overridden,
		Status:          StatusDraft,
	})
	if err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", rec)
	return rec, nil
}

// Update rewrites a draft or returned record owned by the actor.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id uuid.UUID, in Input) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != actor.ID {
		return Record{}, ErrNotOwner
	}
	if !rec.Editable() {
		return Record{}, ErrNotEditable
	}
	// Both the stored week and the target week must be open: moving a
	// record into a locked week is as forbidden as editing inside one.
	if err := s.ensureWeekOpen(ctx, actor.ID, rec.WorkDate); err != nil {
		return Record{}, err
	}
	if err := s.ensureWeekOpen(ctx, actor.ID, in.WorkDate); err != nil {
		return Record{}, err
	}

	hours, overridden, err := s.resolveHours(in, &rec)
	if err != nil {
		if errors.Is(err, ErrNegativeDuration) {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Record{}, err
	}
	if hours <= 0 {
		return Record{}, ErrNonPositiveHours
	}

	rec.ProjectID = in.ProjectID
	rec.WorkDate = in.WorkDate
	rec.Start = in.Start
	rec.End = in.End
	rec.Break1Start = in.Break1Start
	rec.Break1End = in.Break1End
	rec.Break2Start = in.Break2Start
	rec.Break2End = in.Break2End
	rec.Note = in.Note
	rec.TotalHours = hours
	rec.HoursOverridden = overridden

	if err := s.store.Update(ctx, rec); err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, actor, "UPDATE", rec)
	return rec, nil
}

// Delete soft-deletes a draft or returned record owned by the actor.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.UserID != actor.ID {
		return ErrNotOwner
	}
	if !rec.Editable() {
		return ErrNotEditable
	}
	if err := s.ensureWeekOpen(ctx, actor.ID, rec.WorkDate); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "DELETE", rec)
	return nil
}

// Week returns the actor's records for one ISO week plus the hour total.
func (s *Service) Week(ctx context.Context, userID uuid.UUID, week shared.Week) ([]Record, float64, error) {
	records, err := s.store.ListForUserWeek(ctx, userID, week.Monday(), week.Sunday())
	if err != nil {
		return nil, 0, err
	}
	var total float64
	for _, rec := range records {
		total += rec.TotalHours
	}
	return records, round2(total), nil
}

// ProjectWeek returns every worker's records on a project for one ISO
// week. Reviewer-facing, not limited to the actor's own rows.
func (s *Service) ProjectWeek(ctx context.Context, projectID uuid.UUID, week shared.Week) ([]Record, error) {
	return s.store.ListForProjectWeek(ctx, projectID, week.Monday(), week.Sunday())
}

// Range returns the actor's records for an arbitrary date range.
func (s *Service) Range(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Record, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", ErrInvalidInput)
	}
	return s.store.ListForUserRange(ctx, userID, from, to)
}

func (s *Service) ensureWeekOpen(ctx context.Context, userID uuid.UUID, date time.Time) error {
	locked, err := s.guard.WeekLocked(ctx, userID, shared.WeekOf(date))
	if err != nil {
		return err
	}
	if locked {
		return ErrWeekLocked
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, rec Record) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "performance_records",
		EntityID: rec.ID.String(),
		Meta: map[string]any{
			"work_date":   rec.WorkDate.Format("2006-01-02"),
			"total_hours": rec.TotalHours,
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
