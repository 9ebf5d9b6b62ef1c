package inventory

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
	policy *access.Policy
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
				r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(guard.Attach)
	r.Route("/inventaire", handler.MountRoutes)
	return &handlerHarness{policy: policy, audit: audit, router: r}
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

func TestInventoryRequiresModule(t *testing.T) {
	h := newHandlerHarness(t)

	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/inventaire/", "", "").Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/inventaire/", "usr-003", "").Code)

	rr := h.do(http.MethodGet, "/inventaire/?status=panne", "usr-002", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Equipment  []Equipment       `json:"equipment"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, []string{"eq-004", "eq-006"}, ids(resp.Equipment))
	require.Equal(t, 2, resp.Pagination.Total)
}

func TestWorkerGrantedInventoryCannotEdit(t *testing.T) {
	h := newHandlerHarness(t)
	granted := access.NewModuleSet(access.ModuleDashboard, access.ModuleInventory)
	require.NoError(t, h.policy.Replace(context.Background(), access.RoleWorker, granted))

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/inventaire/eq-001", "usr-003", "").Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodPatch, "/inventaire/eq-001", "usr-003", `{"status":"panne"}`).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/inventaire/status", "usr-003", `{"ids":["eq-001"],"status":"panne"}`).Code)
	require.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/inventaire/eq-001", "usr-002", "").Code)
}

func TestSupervisorUpdatesEquipment(t *testing.T) {
	h := newHandlerHarness(t)

	rr := h.do(http.MethodPatch, "/inventaire/eq-001", "usr-002", `{"status":"maintenance","reason":"Révision 1500h","next_maintenance_date":"2026-01-18"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var e Equipment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	require.Equal(t, StatusMaintenance, e.Status)
	require.Equal(t, "Révision 1500h", e.Reason)
	require.Equal(t, 18, e.NextMaintenance.Day())

	require.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, "/inventaire/eq-001", "usr-002", `{"status":"vole"}`).Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, "/inventaire/eq-404", "usr-002", `{"status":"panne"}`).Code)

	entries := h.audit.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "inventory.update", entries[0].Action)
	require.Equal(t, "usr-002", entries[0].ActorID)
}

func TestBulkStatusChange(t *testing.T) {
	h := newHandlerHarness(t)

	rr := h.do(http.MethodPost, "/inventaire/status", "usr-002", `{"ids":["eq-002","eq-007"],"status":"operationnel"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Updated int    `json:"updated"`
		Status  Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Updated)
	require.Equal(t, StatusOperational, resp.Status)

	require.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/inventaire/status", "usr-002", `{"ids":["eq-001","eq-999"],"status":"panne"}`).Code)

	rr = h.do(http.MethodPost, "/inventaire/status", "usr-002", `{"ids":[],"status":"panne"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = h.do(http.MethodGet, "/inventaire/summary", "usr-002", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	require.Equal(t, 5, sum.ByStatus[StatusOperational])
	require.Equal(t, 0, sum.ByStatus[StatusMaintenance])
}

func TestCreateAndDeleteEquipment(t *testing.T) {
	h := newHandlerHarness(t)

	rr := h.do(http.MethodPost, "/inventaire/", "usr-002", `{"name":"","type":"grue","total_hours":-1}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var invalid httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &invalid))
	require.Equal(t, "required", invalid.Errors["Name"])
	require.Equal(t, "oneof", invalid.Errors["Type"])
	require.Equal(t, "gte", invalid.Errors["TotalHours"])

	rr = h.do(http.MethodPost, "/inventaire/", "usr-002", `{"name":"Foreuse C","type":"foreuse","location":"Zone Est","total_hours":12}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Equipment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "eq-new", created.ID)
	require.Equal(t, StatusOperational, created.Status)

	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/inventaire/eq-new", "usr-001", "").Code)
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/inventaire/eq-new", "usr-001", "").Code)
}
