package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/invoices"
	"github.com/werkzeit/werkzeit/internal/platform/httpx"
	"github.com/werkzeit/werkzeit/internal/rbac"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// Handler exposes the download endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs an export handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapExportsRun))
		r.Get("/invoices/{id}/pdf", h.invoicePDF)
		r.Get("/timesheets/{projectID}/xlsx", h.timesheetXLSX)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapBackupRun))
		r.Get("/backup", h.backup)
	})
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed invoice id")
		return
	}
	var projectID *uuid.UUID
	if raw := r.URL.Query().Get("project"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed project id")
			return
		}
		projectID = &parsed
	}
	name, pdf, err := h.service.InvoicePDF(r.Context(), id, projectID)
	if err != nil {
		h.respondError(w, "invoice pdf", err)
		return
	}
	h.attachment(w, name, "application/pdf", pdf)
}

func (h *Handler) timesheetXLSX(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed project id")
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed year")
		return
	}
	weekNum, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed week")
		return
	}
	week, err := shared.ParseWeek(year, weekNum)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	name, data, err := h.service.TimesheetXLSX(r.Context(), projectID, week)
	if err != nil {
		h.respondError(w, "timesheet xlsx", err)
		return
	}
	h.attachment(w, name, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handler) backup(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.BackupSnapshot(r.Context())
	if err != nil {
		h.respondError(w, "backup", err)
		return
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		h.respondError(w, "backup", err)
		return
	}
	name := "backup_" + snapshot.ExportedAt.Format("2006-01-02") + ".json"
	h.attachment(w, name, "application/json", data)
}

func (h *Handler) attachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, invoices.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "record not found")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
