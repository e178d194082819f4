package closing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/werkzeit/werkzeit/internal/shared"
	"github.com/werkzeit/werkzeit/internal/timesheet"
)

// Store abstracts closing persistence. The transition methods receive
// the transaction opened by WithTx so a closing update and its record
// batch always commit together.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	UpsertSubmitted(ctx context.Context, tx pgx.Tx, userID uuid.UUID, week shared.Week, at time.Time) (Closing, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Closing, error)
	MarkApproved(ctx context.Context, tx pgx.Tx, id, reviewerID uuid.UUID, at time.Time) error
	MarkReturned(ctx context.Context, tx pgx.Tx, id uuid.UUID, comment string, at time.Time) error
	MarkResubmitted(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	MarkLocked(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	ShiftRecordStatuses(ctx context.Context, tx pgx.Tx, userID uuid.UUID, week shared.Week, from []timesheet.RecordStatus, to timesheet.RecordStatus, at time.Time) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (Closing, error)
	FindForUser(ctx context.Context, userID uuid.UUID, week shared.Week) (Closing, error)
	ListPendingReview(ctx context.Context) ([]Summary, error)
	ListRecentlyApproved(ctx context.Context, since time.Time) ([]Summary, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Closing, error)
	HasInvoice(ctx context.Context, closingID uuid.UUID) (bool, error)
}

// Service drives the weekly approval state machine.
type Service struct {
	store      Store
	approvals  *shared.ApprovalRecorder
	logger     *slog.Logger
	undoWindow time.Duration
	now        func() time.Time
	notify     func(context.Context, Closing)
}

// NewService constructs a Service. undoWindow bounds how long an
// approval stays reversible.
func NewService(store Store, approvals *shared.ApprovalRecorder, logger *slog.Logger, undoWindow time.Duration) *Service {
	return &Service{
		store:      store,
		approvals:  approvals,
		logger:     logger,
		undoWindow: undoWindow,
		now:        time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithNotifier registers a callback invoked after a successful submit,
// typically to queue a reviewer notification.
func (s *Service) WithNotifier(fn func(context.Context, Closing)) {
	s.notify = fn
}

const approvalModule = "performance_closings"

// Submit hands the actor's week over for review. The closing upsert and
// the batch record transition share one transaction.
func (s *Service) Submit(ctx context.Context, actor shared.Actor, week shared.Week) (Closing, error) {
	now := s.now()
	var closing Closing
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		closing, err = s.store.UpsertSubmitted(ctx, tx, actor.ID, week, now)
		if err != nil {
			return err
		}
		moved, err := s.store.ShiftRecordStatuses(ctx, tx, actor.ID, week,
			[]timesheet.RecordStatus{timesheet.StatusDraft, timesheet.StatusReturned, timesheet.StatusRejected},
			timesheet.StatusSubmitted, now)
		if err != nil {
			return err
		}
		if moved == 0 {
			return ErrNoRecords
		}
		return nil
	})
	if err != nil {
		return Closing{}, err
	}
	s.recordApproval(ctx, actor, closing.ID, shared.ApprovalSubmit, "", now)
	if s.notify != nil {
		s.notify(ctx, closing)
	}
	return closing, nil
}

// Approve signs a submitted week off.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID) (Closing, error) {
	now := s.now()
	_, err := s.transitionTx(ctx, id, StatusSubmitted, func(ctx context.Context, tx pgx.Tx, c Closing) error {
		if err := s.store.MarkApproved(ctx, tx, c.ID, actor.ID, now); err != nil {
			return err
		}
		_, err := s.store.ShiftRecordStatuses(ctx, tx, c.UserID, c.Week(),
			[]timesheet.RecordStatus{timesheet.StatusSubmitted}, timesheet.StatusApproved, now)
		return err
	})
	if err != nil {
		return Closing{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalApprove, "", now)
	return s.store.Get(ctx, id)
}

// Return sends a submitted week back to the worker. A comment is
// mandatory so the worker knows what to fix.
func (s *Service) Return(ctx context.Context, actor shared.Actor, id uuid.UUID, comment string) (Closing, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return Closing{}, ErrReturnCommentRequired
	}
	now := s.now()
	_, err := s.transitionTx(ctx, id, StatusSubmitted, func(ctx context.Context, tx pgx.Tx, c Closing) error {
		if err := s.store.MarkReturned(ctx, tx, c.ID, comment, now); err != nil {
			return err
		}
		_, err := s.store.ShiftRecordStatuses(ctx, tx, c.UserID, c.Week(),
			[]timesheet.RecordStatus{timesheet.StatusSubmitted}, timesheet.StatusReturned, now)
		return err
	})
	if err != nil {
		return Closing{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalReturn, comment, now)
	return s.store.Get(ctx, id)
}

// Undo reverts a fresh approval back to submitted. The window is
// re-checked here against the stored approval time, so a request buffered
// past the deadline still fails.
func (s *Service) Undo(ctx context.Context, actor shared.Actor, id uuid.UUID) (Closing, error) {
	now := s.now()
	_, err := s.transitionTx(ctx, id, StatusApproved, func(ctx context.Context, tx pgx.Tx, c Closing) error {
		deadline, ok := c.UndoDeadline(s.undoWindow)
		if !ok || now.After(deadline) {
			return ErrUndoWindowExpired
		}
		if err := s.store.MarkResubmitted(ctx, tx, c.ID, now); err != nil {
			return err
		}
		_, err := s.store.ShiftRecordStatuses(ctx, tx, c.UserID, c.Week(),
			[]timesheet.RecordStatus{timesheet.StatusApproved}, timesheet.StatusSubmitted, now)
		return err
	})
	if err != nil {
		return Closing{}, err
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalUndo, "", now)
	return s.store.Get(ctx, id)
}

// Lock finalises an approved week. Terminal, no way back.
func (s *Service) Lock(ctx context.Context, actor shared.Actor, id uuid.UUID) (Closing, error) {
	now := s.now()
	_, err := s.transitionTx(ctx, id, StatusApproved, func(ctx context.Context, tx pgx.Tx, c Closing) error {
		return s.store.MarkLocked(ctx, tx, c.ID, now)
	})
	if err != nil {
		return Closing{}, err
	}
	if invoiced, err := s.store.HasInvoice(ctx, id); err == nil && !invoiced {
		if s.logger != nil {
			s.logger.Warn("week locked without invoice", slog.String("closing_id", id.String()))
		}
	}
	s.recordApproval(ctx, actor, id, shared.ApprovalLock, "", now)
	return s.store.Get(ctx, id)
}

// transitionTx locks the closing row, asserts the expected state and
// runs the transition body in the same transaction.
func (s *Service) transitionTx(ctx context.Context, id uuid.UUID, expected Status, fn func(context.Context, pgx.Tx, Closing) error) (Closing, error) {
	var closing Closing
	err := s.store.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		closing, err = s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if closing.Status != expected {
			return ErrInvalidTransition
		}
		return fn(ctx, tx, closing)
	})
	if err != nil {
		return Closing{}, err
	}
	return closing, nil
}

// UndoableUntil reports the undo deadline for an approved closing.
func (s *Service) UndoableUntil(c Closing) (time.Time, bool) {
	return c.UndoDeadline(s.undoWindow)
}

// PendingReview lists submitted weeks for reviewers, oldest first.
func (s *Service) PendingReview(ctx context.Context) ([]Summary, error) {
	return s.store.ListPendingReview(ctx)
}

// RecentApprovals lists approvals still inside the undo window.
func (s *Service) RecentApprovals(ctx context.Context) ([]Summary, error) {
	return s.store.ListRecentlyApproved(ctx, s.now().Add(-s.undoWindow))
}

// ForUser lists the worker's own closings, newest first.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Closing, error) {
	if limit <= 0 || limit > 100 {
		limit = 26
	}
	return s.store.ListForUser(ctx, userID, limit)
}

// WeekStatus reports the lifecycle state of one worker-week. Weeks with
// no closing row are implicitly open.
func (s *Service) WeekStatus(ctx context.Context, userID uuid.UUID, week shared.Week) (Closing, error) {
	c, err := s.store.FindForUser(ctx, userID, week)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, ErrNotFound) {
		return Closing{UserID: userID, ISOYear: week.Year, ISOWeek: week.Week, Status: StatusOpen}, nil
	}
	return Closing{}, err
}

func (s *Service) recordApproval(ctx context.Context, actor shared.Actor, ref uuid.UUID, action shared.ApprovalAction, note string, at time.Time) {
	if s.approvals == nil {
		return
	}
	err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  approvalModule,
		RefID:   ref,
		ActorID: actor.ID,
		Action:  action,
		Note:    note,
		At:      at,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record approval", slog.Any("error", err))
	}
}
