package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

// Handler manages inventory endpoints.
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

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModule(access.ModuleInventory))
		r.Get("/", h.listEquipment)
		r.Get("/summary", h.showSummary)
		r.Get("/{id}", h.showEquipment)
		r.Post("/", h.createEquipment)
		r.With(h.guard.RequireEdit()).Patch("/{id}", h.updateEquipment)
		r.With(h.guard.RequireEdit()).Post("/status", h.bulkStatus)
		r.With(h.guard.RequireDelete()).Delete("/{id}", h.deleteEquipment)
	})
}

type equipmentForm struct {
	Name       string `json:"name" validate:"required,max=200"`
	Type       string `json:"type" validate:"required,oneof=foreuse concasseur generateur pompe vehicule"`
	Location   string `json:"location" validate:"max=200"`
	TotalHours int    `json:"total_hours" validate:"gte=0"`
}

type updateForm struct {
	Status          string `json:"status" validate:"required"`
	Reason          string `json:"reason" validate:"max=500"`
	NextMaintenance string `json:"next_maintenance_date" validate:"omitempty,datetime=2006-01-02"`
}

type bulkForm struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=200"`
	Status string   `json:"status" validate:"required"`
}

func (h *Handler) listEquipment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.List(r.Context(), Filter{Status: Status(q.Get("status")), Search: q.Get("q")})
	if err != nil {
		h.respondError(w, "list equipment", err)
		return
	}
	page := shared.PaginationFromRequest(r, len(list))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"equipment":  list[start:end],
		"pagination": page,
	})
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.respondError(w, "inventory summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) showEquipment(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get equipment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) createEquipment(w http.ResponseWriter, r *http.Request) {
	var form equipmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}
	e, err := h.service.Add(r.Context(), NewEquipment{
		Name:       form.Name,
		Kind:       Kind(form.Type),
		Location:   form.Location,
		TotalHours: form.TotalHours,
	})
	if err != nil {
		h.respondError(w, "add equipment", err)
		return
	}
	h.audit(r, "inventory.create", e.ID, map[string]any{"type": string(e.Kind)})
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) updateEquipment(w http.ResponseWriter, r *http.Request) {
	var form updateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}
	status, err := ParseStatus(form.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	change := Update{Status: status, Reason: form.Reason}
	if form.NextMaintenance != "" {
		change.NextMaintenance, _ = time.Parse(time.DateOnly, form.NextMaintenance)
	}
	e, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), change)
	if err != nil {
		h.respondError(w, "update equipment", err)
		return
	}
	h.audit(r, "inventory.update", e.ID, map[string]any{"status": string(e.Status), "reason": e.Reason})
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var form bulkForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}
	status, err := ParseStatus(form.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.SetStatus(r.Context(), form.IDs, status)
	if err != nil {
		h.respondError(w, "bulk equipment status", err)
		return
	}
	h.audit(r, "inventory.bulk_status", strings.Join(form.IDs, ","), map[string]any{"status": string(status), "updated": updated})
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": updated, "status": status})
}

func (h *Handler) deleteEquipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete equipment", err)
		return
	}
	h.audit(r, "inventory.delete", id, nil)
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
		Entity:   "equipment",
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
