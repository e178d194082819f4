package masterdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/shared"
)

// Service applies validation and audit logging over the repository.
type Service struct {
	repo   *Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateProject registers a new site.
func (s *Service) CreateProject(ctx context.Context, actor shared.Actor, in ProjectInput) (Project, error) {
	if err := in.Validate(); err != nil {
		return Project{}, err
	}
	p := Project{
		ID:         uuid.New(),
		Name:       in.Name,
		Code:       in.Code,
		Address:    in.Address,
		ClientName: in.ClientName,
		IsActive:   in.IsActive,
		CreatedAt:  s.now(),
	}
	if err := s.repo.InsertProject(ctx, p); err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", "projects", p.ID)
	return p, nil
}

// UpdateProject rewrites a site.
func (s *Service) UpdateProject(ctx context.Context, actor shared.Actor, id uuid.UUID, in ProjectInput) (Project, error) {
	if err := in.Validate(); err != nil {
		return Project{}, err
	}
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p.Name = in.Name
	p.Code = in.Code
	p.Address = in.Address
	p.ClientName = in.ClientName
	p.IsActive = in.IsActive
	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return Project{}, err
	}
	s.recordAudit(ctx, actor, "UPDATE", "projects", p.ID)
	return p, nil
}

// DeleteProject hides a site from listings.
func (s *Service) DeleteProject(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteProject(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "DELETE", "projects", id)
	return nil
}

// GetProject loads one site.
func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

// ListProjects returns sites, optionally active ones only.
func (s *Service) ListProjects(ctx context.Context, activeOnly bool) ([]Project, error) {
	return s.repo.ListProjects(ctx, activeOnly)
}

// CreateAccommodation registers worker housing.
func (s *Service) CreateAccommodation(ctx context.Context, actor shared.Actor, in AccommodationInput) (Accommodation, error) {
	if err := in.Validate(); err != nil {
		return Accommodation{}, err
	}
	a := Accommodation{
		ID:          uuid.New(),
		Name:        in.Name,
		Address:     in.Address,
		Capacity:    in.Capacity,
		MonthlyCost: in.MonthlyCost,
		Note:        in.Note,
		CreatedAt:   s.now(),
	}
	if err := s.repo.InsertAccommodation(ctx, a); err != nil {
		return Accommodation{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", "accommodations", a.ID)
	return a, nil
}

// UpdateAccommodation rewrites housing details.
func (s *Service) UpdateAccommodation(ctx context.Context, actor shared.Actor, id uuid.UUID, in AccommodationInput) (Accommodation, error) {
	if err := in.Validate(); err != nil {
		return Accommodation{}, err
	}
	a, err := s.repo.GetAccommodation(ctx, id)
	if err != nil {
		return Accommodation{}, err
	}
	a.Name = in.Name
	a.Address = in.Address
	a.Capacity = in.Capacity
	a.MonthlyCost = in.MonthlyCost
	a.Note = in.Note
	a.UpdatedAt = s.now()
	if err := s.repo.UpdateAccommodation(ctx, a); err != nil {
		return Accommodation{}, err
	}
	s.recordAudit(ctx, actor, "UPDATE", "accommodations", a.ID)
	return a, nil
}

// DeleteAccommodation removes housing from listings.
func (s *Service) DeleteAccommodation(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteAccommodation(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "DELETE", "accommodations", id)
	return nil
}

// ListAccommodations returns all live housing.
func (s *Service) ListAccommodations(ctx context.Context) ([]Accommodation, error) {
	return s.repo.ListAccommodations(ctx)
}

// AssignAccommodation places a worker in housing.
func (s *Service) AssignAccommodation(ctx context.Context, actor shared.Actor, in AssignmentInput) (Assignment, error) {
	if err := in.Validate(); err != nil {
		return Assignment{}, err
	}
	if _, err := s.repo.GetAccommodation(ctx, in.AccommodationID); err != nil {
		return Assignment{}, err
	}
	a := Assignment{
		ID:              uuid.New(),
		AccommodationID: in.AccommodationID,
		UserID:          in.UserID,
		StartsOn:        in.StartsOn,
		EndsOn:          in.EndsOn,
		Cost:            in.Cost,
		CreatedAt:       s.now(),
	}
	if err := s.repo.InsertAssignment(ctx, a); err != nil {
		return Assignment{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", "accommodation_assignments", a.ID)
	return a, nil
}

// EndAssignment closes an open housing assignment as of today.
func (s *Service) EndAssignment(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.repo.EndAssignment(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "UPDATE", "accommodation_assignments", id)
	return nil
}

// ListAssignments returns housing assignments, optionally for one worker.
func (s *Service) ListAssignments(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx, userID)
}

// LevySanction records a pay deduction against a worker.
func (s *Service) LevySanction(ctx context.Context, actor shared.Actor, in SanctionInput) (Sanction, error) {
	if err := in.Validate(); err != nil {
		return Sanction{}, err
	}
	sa := Sanction{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Amount:    in.Amount,
		Reason:    in.Reason,
		LeviedOn:  in.LeviedOn,
		CreatedBy: actor.ID,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertSanction(ctx, sa); err != nil {
		return Sanction{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", "sanctions", sa.ID)
	return sa, nil
}

// WithdrawSanction removes a sanction.
func (s *Service) WithdrawSanction(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteSanction(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "DELETE", "sanctions", id)
	return nil
}

// ListSanctions returns a worker's sanctions.
func (s *Service) ListSanctions(ctx context.Context, userID uuid.UUID) ([]Sanction, error) {
	return s.repo.ListSanctions(ctx, userID)
}

// RecordAdvance books a wage advance for a worker.
func (s *Service) RecordAdvance(ctx context.Context, actor shared.Actor, in AdvanceInput) (Advance, error) {
	if err := in.Validate(); err != nil {
		return Advance{}, err
	}
	a := Advance{
		ID:        uuid.New(),
		UserID:    in.UserID,
		Amount:    in.Amount,
		Note:      in.Note,
		PaidOn:    in.PaidOn,
		CreatedBy: actor.ID,
		CreatedAt: s.now(),
	}
	if err := s.repo.InsertAdvance(ctx, a); err != nil {
		return Advance{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", "advances", a.ID)
	return a, nil
}

// WithdrawAdvance removes an advance record.
func (s *Service) WithdrawAdvance(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteAdvance(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "DELETE", "advances", id)
	return nil
}

// ListAdvances returns a worker's advances.
func (s *Service) ListAdvances(ctx context.Context, userID uuid.UUID) ([]Advance, error) {
	return s.repo.ListAdvances(ctx, userID)
}

// PublishAnnouncement posts a company-wide notice.
func (s *Service) PublishAnnouncement(ctx context.Context, actor shared.Actor, in AnnouncementInput) (Announcement, error) {
	if err := in.Validate(); err != nil {
		return Announcement{}, err
	}
	a := Announcement{
		ID:          uuid.New(),
		Title:       in.Title,
		Body:        in.Body,
		Audience:    in.Audience,
		PublishedAt: s.now(),
		ExpiresAt:   in.ExpiresAt,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now(),
	}
	if err := s.repo.InsertAnnouncement(ctx, a); err != nil {
		return Announcement{}, err
	}
	s.recordAudit(ctx, actor, "CREATE", "announcements", a.ID)
	return a, nil
}

// RemoveAnnouncement takes a notice down.
func (s *Service) RemoveAnnouncement(ctx context.Context, actor shared.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteAnnouncement(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "DELETE", "announcements", id)
	return nil
}

// ListAnnouncements returns notices that have not expired.
func (s *Service) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	return s.repo.ListAnnouncements(ctx, s.now())
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action, entity string, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: id.String(),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
