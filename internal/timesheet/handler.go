package timesheet

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

// Handler exposes record entry endpoints for workers.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a timesheet handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

type recordView struct {
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

func toRecordView(rec Record) recordView {
	return recordView{
		ID:              rec.ID,
		UserID:          rec.UserID,
		ProjectID:       rec.ProjectID,
		WorkDate:        rec.WorkDate.Format("2006-01-02"),
		Start:           rec.Start,
		End:             rec.End,
		Break1Start:     rec.Break1Start,
		Break1End:       rec.Break1End,
		Break2Start:     rec.Break2Start,
		Break2End:       rec.Break2End,
		Note:            rec.Note,
		TotalHours:      rec.TotalHours,
		HoursOverridden: rec.HoursOverridden,
		Status:          string(rec.Status),
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapRecordsWrite))
		r.Get("/week", h.week)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapRecordsReadAll))
		r.Get("/project/{projectID}", h.projectWeek)
	})
}

type recordRequest struct {
	ProjectID       string  `json:"project_id"`
	WorkDate        string  `json:"work_date"`
	Start           string  `json:"start_time"`
	End             string  `json:"end_time"`
	Break1Start     string  `json:"break1_start"`
	Break1End       string  `json:"break1_end"`
	Break2Start     string  `json:"break2_start"`
	Break2End       string  `json:"break2_end"`
	Note            string  `json:"note"`
	TotalHours      float64 `json:"total_hours"`
	HoursOverridden bool    `json:"hours_overridden"`
}

func (req recordRequest) toInput() (Input, error) {
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return Input{}, errors.New("malformed project id")
	}
	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return Input{}, errors.New("malformed work date")
	}
	return Input{
		ProjectID:       projectID,
		WorkDate:        workDate,
		Start:           req.Start,
		End:             req.End,
		Break1Start:     req.Break1Start,
		Break1End:       req.Break1End,
		Break2Start:     req.Break2Start,
		Break2End:       req.Break2End,
		Note:            req.Note,
		TotalHours:      req.TotalHours,
		HoursOverridden: req.HoursOverridden,
	}, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.respondError(w, "create record", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordView(rec))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed record id")
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		h.respondError(w, "update record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordView(rec))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed record id")
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type weekResponse struct {
	Week       string       `json:"week"`
	Records    []recordView `json:"records"`
	TotalHours float64      `json:"total_hours"`
}

func (h *Handler) week(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	week, err := parseWeekQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	records, total, err := h.service.Week(r.Context(), actor.ID, week)
	if err != nil {
		h.respondError(w, "list week", err)
		return
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toRecordView(rec))
	}
	httpx.JSON(w, http.StatusOK, weekResponse{
		Week:       week.String(),
		Records:    views,
		TotalHours: total,
	})
}

func (h *Handler) projectWeek(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed project id")
		return
	}
	week, err := parseWeekQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	records, err := h.service.ProjectWeek(r.Context(), projectID, week)
	if err != nil {
		h.respondError(w, "list project week", err)
		return
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toRecordView(rec))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed from date")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed to date")
		return
	}
	records, err := h.service.Range(r.Context(), actor.ID, from, to)
	if err != nil {
		h.respondError(w, "list records", err)
		return
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toRecordView(rec))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func parseWeekQuery(r *http.Request) (shared.Week, error) {
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	case errors.Is(err, ErrNotOwner):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "record belongs to another user")
	case errors.Is(err, ErrNotEditable):
		httpx.Problem(w, http.StatusConflict, "Conflict", "record is no longer editable")
	case errors.Is(err, ErrWeekLocked):
		httpx.Problem(w, http.StatusConflict, "Conflict", "week is locked")
	case errors.Is(err, ErrNonPositiveHours):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "worked hours must be positive")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
