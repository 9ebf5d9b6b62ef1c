package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

// Auditor records administrative changes.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Handler exposes the permission matrix and simulation mode over JSON.
type Handler struct {
	logger  *slog.Logger
	policy  *Policy
	auditor Auditor
	guard   Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, policy *Policy, auditor Auditor, guard Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, policy: policy, auditor: auditor, guard: guard}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Put("/simulation", h.setSimulation)
	r.Delete("/simulation", h.clearSimulation)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModule(ModuleAdmin))
		r.Get("/permissions", h.listPermissions)
		r.Put("/permissions/{role}", h.updatePermissions)
		r.Post("/permissions/reset", h.resetPermissions)
	})
}

type permissionsRequest struct {
	Modules []string `json:"modules"`
}

type simulationRequest struct {
	Role string `json:"role"`
}

type matrixResponse struct {
	Permissions map[Role][]string `json:"permissions"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	control := FromContext(r.Context())
	if control == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, control.Snapshot())
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, toMatrixResponse(h.policy.Matrix()))
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	control := FromContext(r.Context())
	role, err := ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	modules, err := ParseModules(req.Modules)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := control.UpdatePermissions(r.Context(), role, modules); err != nil {
		h.respondMutationError(w, "update permissions", err)
		return
	}
	h.audit(r, "access.permissions.update", string(role), map[string]any{"modules": modules.Strings()})
	httpx.JSON(w, http.StatusOK, toMatrixResponse(h.policy.Matrix()))
}

func (h *Handler) resetPermissions(w http.ResponseWriter, r *http.Request) {
	control := FromContext(r.Context())
	if err := control.ResetPermissions(r.Context()); err != nil {
		h.respondMutationError(w, "reset permissions", err)
		return
	}
	h.audit(r, "access.permissions.reset", "matrix", nil)
	httpx.JSON(w, http.StatusOK, toMatrixResponse(h.policy.Matrix()))
}

func (h *Handler) setSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := ParseImpersonation(req.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.applySimulation(w, r, role)
}

func (h *Handler) clearSimulation(w http.ResponseWriter, r *http.Request) {
	h.applySimulation(w, r, NoRole)
}

func (h *Handler) applySimulation(w http.ResponseWriter, r *http.Request, role Role) {
	control := FromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if control == nil || sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := control.SetImpersonatedRole(role); err != nil {
		h.respondMutationError(w, "set simulation", err)
		return
	}
	if role == NoRole {
		sess.Delete(ImpersonationSessionKey)
	} else {
		sess.Set(ImpersonationSessionKey, string(role))
	}
	h.audit(r, "access.simulation.set", role.String(), nil)
	httpx.JSON(w, http.StatusOK, control.Snapshot())
}

func (h *Handler) respondMutationError(w http.ResponseWriter, op string, err error) {
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
		Entity:   "access",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

func toMatrixResponse(m Matrix) matrixResponse {
	out := make(map[Role][]string, len(m))
	for _, role := range AllRoles() {
		out[role] = m.Modules(role).Strings()
	}
	return matrixResponse{Permissions: out}
}
