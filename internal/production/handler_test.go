package production

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

type stubRoles map[string]access.Role

func (s stubRoles) RoleOf(ctx context.Context, userID string) (access.Role, error) {
	role, ok := s[userID]
	if !ok {
		return access.NoRole, httpx.ErrNotFound
	}
	return role, nil
}

var siteUsers = stubRoles{
	"usr-001": access.RoleAdmin,
	"usr-002": access.RoleSupervisor,
	"usr-003": access.RoleWorker,
}

type handlerHarness struct {
	audit  *shared.MemoryAuditLog
	router http.Handler
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()
	policy := access.NewPolicy(access.NewMemoryStore(), nil)
	policy.Load(context.Background())
	audit := shared.NewMemoryAuditLog(nil)
	guard := access.Middleware{Policy: policy, Roles: siteUsers}
	handler := NewHandler(nil, newTestService(), audit, guard)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get("X-Test-User"); user != "" {
				sess := &shared.Session{ID: "sess-" + user}
				sess.SetUser(user)
				if role := r.Header.Get("X-Test-Simulate"); role != "" {
					sess.Set(access.ImpersonationSessionKey, role)
				}
				r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(guard.Attach)
	r.Route("/production", handler.MountRoutes)
	return &handlerHarness{audit: audit, router: r}
}

func (h *handlerHarness) do(method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func TestWorkerRecordsProduction(t *testing.T) {
	h := newHandlerHarness(t)

	rr := h.do(http.MethodPost, "/production/", "usr-003", `{"team":"A","shift":"matin","quantity_grams":205.5,"purity":93,"date":"2026-01-08"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "usr-003", created.OperatorID)
	require.Equal(t, GradeHigh, created.Grade)

	require.Equal(t, http.StatusForbidden, h.do(http.MethodPatch, "/production/prod-001/status", "usr-003", `{"status":"annule"}`).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/production/prod-001", "usr-003", "").Code)

	entries := h.audit.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "production.create", entries[0].Action)
}

func TestProductionValidationAndStatus(t *testing.T) {
	h := newHandlerHarness(t)

	rr := h.do(http.MethodPost, "/production/", "usr-002", `{"team":"C","shift":"nuit","quantity_grams":0}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var invalid httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &invalid))
	require.Equal(t, "oneof", invalid.Errors["Team"])
	require.Equal(t, "oneof", invalid.Errors["Shift"])
	require.Equal(t, "gt", invalid.Errors["Quantity"])

	rr = h.do(http.MethodPatch, "/production/prod-005/status", "usr-002", `{"status":"annule"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/production/prod-005/status", "usr-002", `{"status":"perdu"}`).Code)

	rr = h.do(http.MethodGet, "/production/summary", "usr-002", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	require.Equal(t, 5, sum.Entries)

	rr = h.do(http.MethodGet, "/production/?team=B", "usr-002", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Entries []Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 3)
}

func TestSimulatedWorkerCannotDelete(t *testing.T) {
	h := newHandlerHarness(t)
	req := httptest.NewRequest(http.MethodDelete, "/production/prod-001", nil)
	req.Header.Set("X-Test-User", "usr-001")
	req.Header.Set("X-Test-Simulate", string(access.RoleWorker))
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/production/prod-001", "usr-001", "").Code)
}
