package timetracking

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

// Handler manages clock-in endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	auditor access.Auditor
	guard   access.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, auditor access.Auditor, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, auditor: auditor, guard: guard}
}

// MountRoutes registers time tracking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModule(access.ModuleTimeTracking))
		r.Get("/", h.listSessions)
		r.Get("/summary", h.showSummary)
		r.Get("/me", h.showCurrent)
		r.Post("/clock-in", h.clockIn)
		r.Post("/clock-out", h.clockOut)
		r.With(h.guard.RequireDelete()).Delete("/{id}", h.deleteSession)
	})
}

type clockInForm struct {
	Note string `json:"note"`
}

type currentView struct {
	Session        Session `json:"session"`
	ElapsedMinutes int     `json:"elapsed_minutes"`
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{Day: q.Get("date"), UserID: q.Get("user"), Status: Status(q.Get("status"))}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list sessions", err)
		return
	}
	page := shared.PaginationFromRequest(r, len(list))
	start, end := page.Bounds()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sessions":   list[start:end],
		"pagination": page,
	})
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.respondError(w, "session summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) showCurrent(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Current(r.Context(), currentUser(r))
	if err != nil {
		h.respondError(w, "current session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, currentView{Session: sess, ElapsedMinutes: int(h.service.Elapsed(sess).Minutes())})
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	var form clockInForm
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	sess, err := h.service.ClockIn(r.Context(), currentUser(r), form.Note)
	if err != nil {
		h.respondError(w, "clock in", err)
		return
	}
	h.audit(r, "timetracking.clock_in", sess.ID, map[string]any{"late": sess.Late})
	httpx.JSON(w, http.StatusCreated, sess)
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.ClockOut(r.Context(), currentUser(r))
	if err != nil {
		h.respondError(w, "clock out", err)
		return
	}
	h.audit(r, "timetracking.clock_out", sess.ID, map[string]any{"worked_minutes": sess.WorkedMinutes})
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete session", err)
		return
	}
	h.audit(r, "timetracking.delete", id, nil)
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
		Entity:   "time_session",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}
