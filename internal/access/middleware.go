package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

// ImpersonationSessionKey holds the simulated role inside the session.
const ImpersonationSessionKey = "access.impersonate"

// RoleResolver looks up the true role of a signed-in user.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (Role, error)
}

// DenialRecorder counts refused requests per guard.
type DenialRecorder interface {
	RecordDenial(guard string)
}

// Middleware wires access decisions into HTTP handlers.
type Middleware struct {
	Policy  *Policy
	Roles   RoleResolver
	Logger  *slog.Logger
	Denials DenialRecorder
}

// Attach builds the Control for the session user and stores it in the
// request context. Anonymous requests pass through without one.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		role, err := m.Roles.RoleOf(r.Context(), sess.User())
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				m.logger().Warn("session user no longer exists", slog.String("user", sess.User()))
				next.ServeHTTP(w, r)
				return
			}
			m.logger().Error("resolve session role", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		control := NewControl(m.Policy, role)
		m.restoreImpersonation(sess, control)
		next.ServeHTTP(w, r.WithContext(ContextWithControl(r.Context(), control)))
	})
}

func (m Middleware) restoreImpersonation(sess *shared.Session, control *Control) {
	raw := sess.Get(ImpersonationSessionKey)
	if raw == "" {
		return
	}
	role, err := ParseImpersonation(raw)
	if err == nil {
		err = control.SetImpersonatedRole(role)
	}
	if err != nil {
		m.logger().Warn("drop stored impersonation", slog.String("value", raw), slog.Any("error", err))
		sess.Delete(ImpersonationSessionKey)
	}
}

// RequireModule lets the request through when the session may open module.
func (m Middleware) RequireModule(module Module) func(http.Handler) http.Handler {
	return m.require(string(module), func(c *Control) bool { return c.CanAccess(module) })
}

// RequireEdit lets the request through for editing tiers.
func (m Middleware) RequireEdit() func(http.Handler) http.Handler {
	return m.require("edit", (*Control).CanEdit)
}

// RequireDelete lets the request through for the deleting tier.
func (m Middleware) RequireDelete() func(http.Handler) http.Handler {
	return m.require("delete", (*Control).CanDelete)
}

func (m Middleware) require(guard string, allowed func(*Control) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			control := FromContext(r.Context())
			if control == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allowed(control) {
				if m.Denials != nil {
					m.Denials.RecordDenial(guard)
				}
				m.logger().Info("access denied",
					slog.String("guard", guard),
					slog.String("effective_role", control.EffectiveRole().String()),
					slog.Bool("simulating", control.IsSimulating()),
				)
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
