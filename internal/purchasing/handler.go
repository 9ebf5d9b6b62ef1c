package purchasing

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

// Handler manages purchasing endpoints.
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

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModule(access.ModulePurchasing))
		r.Get("/", h.listPurchases)
		r.Get("/summary", h.showSummary)
		r.Get("/{id}", h.showPurchase)
		r.Post("/", h.createPurchase)
		r.With(h.guard.RequireEdit()).Patch("/{id}/status", h.updateStatus)
		r.With(h.guard.RequireDelete()).Delete("/{id}", h.deletePurchase)
	})
}

type purchaseForm struct {
	Item     string  `json:"item" validate:"required,max=200"`
	Supplier string  `json:"supplier" validate:"required,max=200"`
	Category string  `json:"category" validate:"required,oneof=carburant pieces materiaux transport equipement autres"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Date     string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status   string  `json:"status" validate:"omitempty,oneof=commande en_cours livre"`
}

type statusForm struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Status: Status(r.URL.Query().Get("status"))}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list purchases", err)
		return
	}
	page := shared.PaginationFromRequest(r, len(list))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchases":  list[start:end],
		"pagination": page,
	})
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.respondError(w, "purchase summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) showPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var form purchaseForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if errs := h.validate(form); len(errs) > 0 {
		httpx.ValidationProblem(w, errs)
		return
	}
	input := NewPurchase{
		Item:     form.Item,
		Supplier: form.Supplier,
		Category: Category(form.Category),
		Amount:   form.Amount,
		Status:   Status(form.Status),
	}
	if form.Date != "" {
		input.Date, _ = time.Parse(time.DateOnly, form.Date)
	}
	p, err := h.service.Add(r.Context(), input)
	if err != nil {
		h.respondError(w, "add purchase", err)
		return
	}
	h.audit(r, "purchasing.create", p.ID, map[string]any{"amount": p.Amount, "supplier": p.Supplier})
	httpx.JSON(w, http.StatusCreated, p)
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
	p, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.respondError(w, "update purchase status", err)
		return
	}
	h.audit(r, "purchasing.status", p.ID, map[string]any{"status": string(p.Status)})
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deletePurchase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete purchase", err)
		return
	}
	h.audit(r, "purchasing.delete", id, nil)
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
		Entity:   "purchase",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) validate(form purchaseForm) map[string]string {
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
