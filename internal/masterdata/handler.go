package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/platform/httpx"
	"github.com/werkzeit/werkzeit/internal/rbac"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// Handler exposes masterdata endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a masterdata handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataRead))
			r.Get("/", h.listProjects)
			r.Get("/{id}", h.getProject)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataWrite))
			r.Post("/", h.createProject)
			r.Put("/{id}", h.updateProject)
			r.Delete("/{id}", h.deleteProject)
		})
	})
	r.Route("/accommodations", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataRead))
			r.Get("/", h.listAccommodations)
			r.Get("/assignments", h.listAssignments)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataWrite))
			r.Post("/", h.createAccommodation)
			r.Put("/{id}", h.updateAccommodation)
			r.Delete("/{id}", h.deleteAccommodation)
			r.Post("/assignments", h.createAssignment)
			r.Post("/assignments/{id}/end", h.endAssignment)
		})
	})
	r.Route("/sanctions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapFinanceRead))
			r.Get("/", h.listSanctions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataWrite))
			r.Post("/", h.createSanction)
			r.Delete("/{id}", h.deleteSanction)
		})
	})
	r.Route("/advances", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapFinanceRead))
			r.Get("/", h.listAdvances)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataWrite))
			r.Post("/", h.createAdvance)
			r.Delete("/{id}", h.deleteAdvance)
		})
	})
	r.Route("/announcements", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataRead))
			r.Get("/", h.listAnnouncements)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.CapMasterdataWrite))
			r.Post("/", h.createAnnouncement)
			r.Delete("/{id}", h.deleteAnnouncement)
		})
	})
}

type projectView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Address    string    `json:"address"`
	ClientName string    `json:"client_name"`
	IsActive   bool      `json:"is_active"`
}

func toProjectView(p Project) projectView {
	return projectView{ID: p.ID, Name: p.Name, Code: p.Code, Address: p.Address, ClientName: p.ClientName, IsActive: p.IsActive}
}

type projectRequest struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Address    string `json:"address"`
	ClientName string `json:"client_name"`
	IsActive   bool   `json:"is_active"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.respondError(w, "list projects", err)
		return
	}
	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, toProjectView(p))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		h.respondError(w, "get project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectView(p))
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	p, err := h.service.CreateProject(r.Context(), actor, ProjectInput(req))
	if err != nil {
		h.respondError(w, "create project", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectView(p))
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	p, err := h.service.UpdateProject(r.Context(), actor, id, ProjectInput(req))
	if err != nil {
		h.respondError(w, "update project", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectView(p))
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.DeleteProject, "delete project")
}

type accommodationView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Capacity    int       `json:"capacity"`
	MonthlyCost float64   `json:"monthly_cost"`
	Note        string    `json:"note,omitempty"`
}

func toAccommodationView(a Accommodation) accommodationView {
	return accommodationView{ID: a.ID, Name: a.Name, Address: a.Address, Capacity: a.Capacity, MonthlyCost: a.MonthlyCost, Note: a.Note}
}

type accommodationRequest struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Capacity    int     `json:"capacity"`
	MonthlyCost float64 `json:"monthly_cost"`
	Note        string  `json:"note"`
}

func (h *Handler) listAccommodations(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAccommodations(r.Context())
	if err != nil {
		h.respondError(w, "list accommodations", err)
		return
	}
	views := make([]accommodationView, 0, len(items))
	for _, a := range items {
		views = append(views, toAccommodationView(a))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createAccommodation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req accommodationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	a, err := h.service.CreateAccommodation(r.Context(), actor, AccommodationInput(req))
	if err != nil {
		h.respondError(w, "create accommodation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccommodationView(a))
}

func (h *Handler) updateAccommodation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req accommodationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	a, err := h.service.UpdateAccommodation(r.Context(), actor, id, AccommodationInput(req))
	if err != nil {
		h.respondError(w, "update accommodation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccommodationView(a))
}

func (h *Handler) deleteAccommodation(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.DeleteAccommodation, "delete accommodation")
}

type assignmentView struct {
	ID              uuid.UUID `json:"id"`
	AccommodationID uuid.UUID `json:"accommodation_id"`
	UserID          uuid.UUID `json:"user_id"`
	StartsOn        string    `json:"starts_on"`
	EndsOn          *string   `json:"ends_on,omitempty"`
	Cost            float64   `json:"cost"`
}

func toAssignmentView(a Assignment) assignmentView {
	v := assignmentView{
		ID:              a.ID,
		AccommodationID: a.AccommodationID,
		UserID:          a.UserID,
		StartsOn:        a.StartsOn.Format("2006-01-02"),
		Cost:            a.Cost,
	}
	if a.EndsOn != nil {
		ends := a.EndsOn.Format("2006-01-02")
		v.EndsOn = &ends
	}
	return v
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	userID := uuid.Nil
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
			return
		}
		userID = parsed
	}
	items, err := h.service.ListAssignments(r.Context(), userID)
	if err != nil {
		h.respondError(w, "list assignments", err)
		return
	}
	views := make([]assignmentView, 0, len(items))
	for _, a := range items {
		views = append(views, toAssignmentView(a))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		AccommodationID string  `json:"accommodation_id"`
		UserID          string  `json:"user_id"`
		StartsOn        string  `json:"starts_on"`
		EndsOn          string  `json:"ends_on"`
		Cost            float64 `json:"cost"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	accommodationID, err := uuid.Parse(req.AccommodationID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed accommodation id")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
		return
	}
	startsOn, err := time.Parse("2006-01-02", req.StartsOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed start date")
		return
	}
	in := AssignmentInput{AccommodationID: accommodationID, UserID: userID, StartsOn: startsOn, Cost: req.Cost}
	if req.EndsOn != "" {
		endsOn, err := time.Parse("2006-01-02", req.EndsOn)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed end date")
			return
		}
		in.EndsOn = &endsOn
	}
	a, err := h.service.AssignAccommodation(r.Context(), actor, in)
	if err != nil {
		h.respondError(w, "create assignment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssignmentView(a))
}

func (h *Handler) endAssignment(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.EndAssignment, "end assignment")
}

type sanctionView struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Amount   float64   `json:"amount"`
	Reason   string    `json:"reason"`
	LeviedOn string    `json:"levied_on"`
}

func (h *Handler) listSanctions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
		return
	}
	items, err := h.service.ListSanctions(r.Context(), userID)
	if err != nil {
		h.respondError(w, "list sanctions", err)
		return
	}
	views := make([]sanctionView, 0, len(items))
	for _, s := range items {
		views = append(views, sanctionView{ID: s.ID, UserID: s.UserID, Amount: s.Amount, Reason: s.Reason, LeviedOn: s.LeviedOn.Format("2006-01-02")})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createSanction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID   string  `json:"user_id"`
		Amount   float64 `json:"amount"`
		Reason   string  `json:"reason"`
		LeviedOn string  `json:"levied_on"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
		return
	}
	leviedOn, err := time.Parse("2006-01-02", req.LeviedOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed levy date")
		return
	}
	s, err := h.service.LevySanction(r.Context(), actor, SanctionInput{UserID: userID, Amount: req.Amount, Reason: req.Reason, LeviedOn: leviedOn})
	if err != nil {
		h.respondError(w, "create sanction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sanctionView{ID: s.ID, UserID: s.UserID, Amount: s.Amount, Reason: s.Reason, LeviedOn: s.LeviedOn.Format("2006-01-02")})
}

func (h *Handler) deleteSanction(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.WithdrawSanction, "delete sanction")
}

type advanceView struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Amount float64   `json:"amount"`
	Note   string    `json:"note,omitempty"`
	PaidOn string    `json:"paid_on"`
}

func (h *Handler) listAdvances(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
		return
	}
	items, err := h.service.ListAdvances(r.Context(), userID)
	if err != nil {
		h.respondError(w, "list advances", err)
		return
	}
	views := make([]advanceView, 0, len(items))
	for _, a := range items {
		views = append(views, advanceView{ID: a.ID, UserID: a.UserID, Amount: a.Amount, Note: a.Note, PaidOn: a.PaidOn.Format("2006-01-02")})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createAdvance(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID string  `json:"user_id"`
		Amount float64 `json:"amount"`
		Note   string  `json:"note"`
		PaidOn string  `json:"paid_on"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
		return
	}
	paidOn, err := time.Parse("2006-01-02", req.PaidOn)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payment date")
		return
	}
	a, err := h.service.RecordAdvance(r.Context(), actor, AdvanceInput{UserID: userID, Amount: req.Amount, Note: req.Note, PaidOn: paidOn})
	if err != nil {
		h.respondError(w, "create advance", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, advanceView{ID: a.ID, UserID: a.UserID, Amount: a.Amount, Note: a.Note, PaidOn: a.PaidOn.Format("2006-01-02")})
}

func (h *Handler) deleteAdvance(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.WithdrawAdvance, "delete advance")
}

type announcementView struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Audience    string     `json:"audience,omitempty"`
	PublishedAt time.Time  `json:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAnnouncements(r.Context())
	if err != nil {
		h.respondError(w, "list announcements", err)
		return
	}
	views := make([]announcementView, 0, len(items))
	for _, a := range items {
		views = append(views, announcementView{ID: a.ID, Title: a.Title, Body: a.Body, Audience: a.Audience, PublishedAt: a.PublishedAt, ExpiresAt: a.ExpiresAt})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Title     string     `json:"title"`
		Body      string     `json:"body"`
		Audience  string     `json:"audience"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	a, err := h.service.PublishAnnouncement(r.Context(), actor, AnnouncementInput{Title: req.Title, Body: req.Body, Audience: req.Audience, ExpiresAt: req.ExpiresAt})
	if err != nil {
		h.respondError(w, "create announcement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, announcementView{ID: a.ID, Title: a.Title, Body: a.Body, Audience: a.Audience, PublishedAt: a.PublishedAt, ExpiresAt: a.ExpiresAt})
}

func (h *Handler) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveAnnouncement, "delete announcement")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, fn func(context.Context, shared.Actor, uuid.UUID) error, op string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), actor, id); err != nil {
		h.respondError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	}
	return actor, ok
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.Is(err, ErrCodeTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
