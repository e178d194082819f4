package closing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/platform/httpx"
	"github.com/werkzeit/werkzeit/internal/rbac"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// Handler exposes the submit and review endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a closing handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

type closingView struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Year          int        `json:"iso_year"`
	Week          int        `json:"iso_week"`
	Status        string     `json:"status"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	ApprovedBy    *uuid.UUID `json:"approved_by,omitempty"`
	ReturnComment string     `json:"return_comment,omitempty"`
	UndoableUntil *time.Time `json:"undoable_until,omitempty"`
}

func (h *Handler) toView(c Closing) closingView {
	v := closingView{
		ID:            c.ID,
		UserID:        c.UserID,
		Year:          c.ISOYear,
		Week:          c.ISOWeek,
		Status:        string(c.Status),
		SubmittedAt:   c.SubmittedAt,
		ApprovedAt:    c.ApprovedAt,
		ApprovedBy:    c.ApprovedBy,
		ReturnComment: c.ReturnComment,
	}
	if deadline, ok := h.service.UndoableUntil(c); ok {
		v.UndoableUntil = &deadline
	}
	return v
}

type summaryView struct {
	closingView
	WorkerName string  `json:"worker_name"`
	TotalHours float64 `json:"total_hours"`
	DayCount   int     `json:"day_count"`
}

func (h *Handler) toSummaryView(s Summary) summaryView {
	return summaryView{
		closingView: h.toView(s.Closing),
		WorkerName:  s.WorkerName,
		TotalHours:  s.TotalHours,
		DayCount:    s.DayCount,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapClosingsSubmit))
		r.Get("/", h.mine)
		r.Get("/week", h.weekStatus)
		r.Post("/submit", h.submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapClosingsApprove))
		r.Get("/review", h.pending)
		r.Get("/review/recent", h.recent)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/return", h.returnWeek)
		r.Post("/{id}/undo", h.undo)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapClosingsLock))
		r.Post("/{id}/lock", h.lock)
	})
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	closings, err := h.service.ForUser(r.Context(), actor.ID, limit)
	if err != nil {
		h.respondError(w, "list closings", err)
		return
	}
	views := make([]closingView, 0, len(closings))
	for _, c := range closings {
		views = append(views, h.toView(c))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) weekStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	week, err := weekFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.WeekStatus(r.Context(), actor.ID, week)
	if err != nil {
		h.respondError(w, "week status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toView(c))
}

type submitRequest struct {
	Year int `json:"iso_year"`
	Week int `json:"iso_week"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	week, err := shared.ParseWeek(req.Year, req.Week)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.Submit(r.Context(), actor, week)
	if err != nil {
		h.respondError(w, "submit week", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toView(c))
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.PendingReview(r.Context())
	if err != nil {
		h.respondError(w, "pending review", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.summaryViews(summaries))
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.RecentApprovals(r.Context())
	if err != nil {
		h.respondError(w, "recent approvals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.summaryViews(summaries))
}

func (h *Handler) summaryViews(summaries []Summary) []summaryView {
	views := make([]summaryView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, h.toSummaryView(s))
	}
	return views
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor shared.Actor, id uuid.UUID) (Closing, error) {
		return h.service.Approve(r.Context(), actor, id)
	})
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor shared.Actor, id uuid.UUID) (Closing, error) {
		return h.service.Undo(r.Context(), actor, id)
	})
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor shared.Actor, id uuid.UUID) (Closing, error) {
		return h.service.Lock(r.Context(), actor, id)
	})
}

func (h *Handler) returnWeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	h.transition(w, r, func(actor shared.Actor, id uuid.UUID) (Closing, error) {
		return h.service.Return(r.Context(), actor, id, req.Comment)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(shared.Actor, uuid.UUID) (Closing, error)) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed closing id")
		return
	}
	c, err := fn(actor, id)
	if err != nil {
		h.respondError(w, "closing transition", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toView(c))
}

func weekFromQuery(r *http.Request) (shared.Week, error) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		return shared.Week{}, errors.New("malformed year")
	}
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil {
		return shared.Week{}, errors.New("malformed week")
	}
	return shared.ParseWeek(year, week)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "closing not found")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", "closing is not in the required state")
	case errors.Is(err, ErrUndoWindowExpired):
		httpx.Problem(w, http.StatusConflict, "Conflict", "undo window has expired")
	case errors.Is(err, ErrReturnCommentRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "return comment is required")
	case errors.Is(err, ErrNoRecords):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "week has no records to submit")
	case errors.Is(err, shared.ErrInvalidWeek):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
