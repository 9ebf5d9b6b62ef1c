package production

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

// Handler manages production endpoints.
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

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModule(access.ModuleProduction))
		r.Get("/", h.listEntries)
		r.Get("/summary", h.showSummary)
		r.Get("/{id}", h.showEntry)
		r.Post("/", h.recordEntry)
		r.With(h.guard.RequireEdit()).Patch("/{id}/status", h.updateStatus)
		r.With(h.guard.RequireDelete()).Delete("/{id}", h.deleteEntry)
	})
}

type entryForm struct {
	Date     string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Team     string   `json:"team" validate:"required,oneof=A B"`
	Shift    string   `json:"shift" validate:"required,oneof=matin jour soir"`
	Quantity float64  `json:"quantity_grams" validate:"gt=0"`
	Purity   *float64 `json:"purity"`
	Notes    string   `json:"notes" validate:"max=1000"`
}

type statusForm struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), Filter{Team: Team(q.Get("team")), Status: Status(q.Get("status"))})
	if err != nil {
		h.respondError(w, "list production", err)
		return
	}
	page := shared.PaginationFromRequest(r, len(list))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    list[start:end],
		"pagination": page,
	})
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.respondError(w, "production summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) showEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get production entry", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) recordEntry(w http.ResponseWriter, r *http.Request) {
	var form entryForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}
	input := NewEntry{
		Team:       Team(form.Team),
		Shift:      Shift(form.Shift),
		Quantity:   form.Quantity,
		Purity:     form.Purity,
		OperatorID: currentUser(r),
		Notes:      form.Notes,
	}
	if form.Date != "" {
		input.Date, _ = time.Parse(time.DateOnly, form.Date)
	}
	e, err := h.service.Record(r.Context(), input)
	if err != nil {
		h.respondError(w, "record production", err)
		return
	}
	h.audit(r, "production.create", e.ID, map[string]any{"quantity_grams": e.Quantity, "purity": e.Purity})
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
		h.respondError(w, "update production status", err)
		return
	}
	h.audit(r, "production.status", e.ID, map[string]any{"status": string(e.Status)})
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete production entry", err)
		return
	}
	h.audit(r, "production.delete", id, nil)
	httpx.NoContent(w)
}

func currentUser(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return ""
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
	err := h.auditor.Record(r.Context(), shared.AuditLog{
		ActorID:  currentUser(r),
		Action:   action,
		Entity:   "production_entry",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) validate(form any) map[string]string {
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
