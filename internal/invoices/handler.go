package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/platform/httpx"
	"github.com/werkzeit/werkzeit/internal/rbac"
)

// Handler exposes invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs an invoices handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: mw}
}

type invoiceView struct {
	ID         uuid.UUID  `json:"id"`
	Number     string     `json:"number"`
	UserID     uuid.UUID  `json:"user_id"`
	ClosingID  uuid.UUID  `json:"closing_id"`
	Year       int        `json:"iso_year"`
	Week       int        `json:"iso_week"`
	WorkerName string     `json:"worker_name"`
	Hours      float64    `json:"hours"`
	HourlyRate float64    `json:"hourly_rate"`
	Subtotal   float64    `json:"subtotal"`
	TaxRate    float64    `json:"tax_rate"`
	TaxAmount  float64    `json:"tax_amount"`
	Total      float64    `json:"total"`
	Status     string     `json:"status"`
	IssuedAt   time.Time  `json:"issued_at"`
	DueAt      time.Time  `json:"due_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

func toInvoiceView(inv Invoice) invoiceView {
	return invoiceView{
		ID:         inv.ID,
		Number:     inv.Number,
		UserID:     inv.UserID,
		ClosingID:  inv.ClosingID,
		Year:       inv.ISOYear,
		Week:       inv.ISOWeek,
		WorkerName: inv.WorkerName,
		Hours:      inv.Hours,
		HourlyRate: inv.HourlyRate,
		Subtotal:   inv.Subtotal,
		TaxRate:    inv.TaxRate,
		TaxAmount:  inv.TaxAmount,
		Total:      inv.Total,
		Status:     string(inv.Status),
		IssuedAt:   inv.IssuedAt,
		DueAt:      inv.DueAt,
		PaidAt:     inv.PaidAt,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapInvoicesRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapInvoicesManage))
		r.Post("/", h.generate)
		r.Post("/{id}/paid", h.markPaid)
		r.Post("/{id}/void", h.void)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CapFinanceRead))
		r.Get("/summary/{userID}", h.summary)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	invoices, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")), limit, offset)
	if err != nil {
		h.respondError(w, "list invoices", err)
		return
	}
	views := make([]invoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, toInvoiceView(inv))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceView(inv))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClosingID string `json:"closing_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	closingID, err := uuid.Parse(req.ClosingID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed closing id")
		return
	}
	inv, err := h.service.Generate(r.Context(), closingID)
	if err != nil {
		h.respondError(w, "generate invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceView(inv))
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkPaid)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Void)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (Invoice, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed invoice id")
		return
	}
	inv, err := fn(r.Context(), id)
	if err != nil {
		h.respondError(w, "invoice transition", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceView(inv))
}

type summaryView struct {
	UserID             uuid.UUID `json:"user_id"`
	WorkerName         string    `json:"worker_name"`
	From               string    `json:"from"`
	To                 string    `json:"to"`
	TotalHours         float64   `json:"total_hours"`
	GrossWage          float64   `json:"gross_wage"`
	SanctionTotal      float64   `json:"sanction_total"`
	AdvanceTotal       float64   `json:"advance_total"`
	AccommodationTotal float64   `json:"accommodation_total"`
	NetPay             float64   `json:"net_pay"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed user id")
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
	s, err := h.service.Summary(r.Context(), userID, from, to)
	if err != nil {
		h.respondError(w, "financial summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaryView{
		UserID:             s.UserID,
		WorkerName:         s.WorkerName,
		From:               s.From.Format("2006-01-02"),
		To:                 s.To.Format("2006-01-02"),
		TotalHours:         s.TotalHours,
		GrossWage:          s.GrossWage,
		SanctionTotal:      s.SanctionTotal,
		AdvanceTotal:       s.AdvanceTotal,
		AccommodationTotal: s.AccommodationTotal,
		NetPay:             s.NetPay,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
	case errors.Is(err, ErrClosingNotBillable):
		httpx.Problem(w, http.StatusConflict, "Conflict", "closing is not approved or locked")
	case errors.Is(err, ErrAlreadyInvoiced):
		httpx.Problem(w, http.StatusConflict, "Conflict", "closing already invoiced")
	case errors.Is(err, ErrNoBillableHours):
		httpx.Problem(w, http.StatusConflict, "Conflict", "week has no billable hours")
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Conflict", "invoice is not in the required state")
	case errors.Is(err, ErrInvalidFilter):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
