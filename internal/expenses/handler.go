package expenses

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

// Handler manages expense endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auditor   access.Auditor
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, auditor access.Auditor, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, auditor: auditor, guard: guard, validator: validator.New()}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModule(access.ModuleExpenses))
		r.Get("/", h.listExpenses)
		r.Get("/summary", h.showSummary)
		r.Get("/{id}", h.showExpense)
		r.Post("/", h.createExpense)
		r.With(h.guard.RequireEdit()).Patch("/{id}/status", h.updateStatus)
		r.With(h.guard.RequireDelete()).Delete("/{id}", h.deleteExpense)
	})
}

type expenseForm struct {
	Category    string  `json:"category" validate:"required"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description" validate:"required,max=500"`
	Date        string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	SupplierID  string  `json:"supplier_id" validate:"omitempty,max=64"`
	Status      string  `json:"status" validate:"omitempty,oneof=en_attente approuve rejete"`
}

type statusForm struct {
	Status string `json:"status"`
}

func filterFromRequest(r *http.Request) Filter {
	q := r.URL.Query()
	personnel, _ := strconv.ParseBool(q.Get("personnel"))
	return Filter{
		Status:        Status(q.Get("status")),
		Category:      Category(q.Get("category")),
		PersonnelOnly: personnel,
	}
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), filterFromRequest(r))
	if err != nil {
		h.respondError(w, "list expenses", err)
		return
	}
	page := shared.PaginationFromRequest(r, len(list))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"expenses":   list[start:end],
		"pagination": page,
	})
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), filterFromRequest(r))
	if err != nil {
		h.respondError(w, "expense summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) showExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var form expenseForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}
	input := NewExpense{
		Category:    Category(form.Category),
		Amount:      form.Amount,
		Description: form.Description,
		SupplierID:  form.SupplierID,
		Status:      Status(form.Status),
	}
	if form.Date != "" {
		input.Date, _ = time.Parse(time.DateOnly, form.Date)
	}
	e, err := h.service.Add(r.Context(), input)
	if err != nil {
		h.respondError(w, "add expense", err)
		return
	}
	h.audit(r, "expenses.create", e.ID, map[string]any{"amount": e.Amount, "category": string(e.Category)})
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var form statusForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	status, err := ParseStatus(form.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.respondError(w, "update expense status", err)
		return
	}
	h.audit(r, "expenses.status", e.ID, map[string]any{"status": string(e.Status)})
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete expense", err)
		return
	}
	h.audit(r, "expenses.delete", id, nil)
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) audit(r *http.Request, action, entityID string, meta map[string]any) {
	if h.auditor == nil {
		return
	}
	actor := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		actor = sess.User()
	}
	err := h.auditor.Record(r.Context(), shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "expense",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) validate(form expenseForm) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Tag()
			}
		}
	}
	return errs
}
