package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/minedor/minedor/internal/access"
	"github.com/minedor/minedor/internal/shared"
)

type authHarness struct {
	sessions *shared.SessionManager
	router   http.Handler
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "session-secret", time.Hour, false)

	seed, err := SeedUsers("correctpass", bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService(NewMemoryRepository(seed))
	guard := access.Middleware{Policy: access.NewPolicy(nil, nil), Roles: svc}
	handler := NewHandler(nil, svc, sessions, shared.NewCSRFManager("csrf"), guard)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(r.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r.WithContext(ctx))
			require.NoError(t, sessions.Commit(context.Background(), w, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Use(guard.Attach)
	r.Route("/auth", handler.MountAuthRoutes)
	r.Route("/users", handler.MountUserRoutes)
	return &authHarness{sessions: sessions, router: r}
}

func (h *authHarness) do(t *testing.T, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func TestLoginBindsSessionToUser(t *testing.T) {
	h := newAuthHarness(t)

	rr := h.do(t, http.MethodPost, "/auth/login", `{"email":"superviseur@minedor.cd","password":"correctpass"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.CSRFToken)
	require.Equal(t, "usr-002", resp.User.ID)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	rr = h.do(t, http.MethodGet, "/users/", "", cookies)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "admin@minedor.cd")
	require.NotContains(t, rr.Body.String(), "password")
}

func TestLoginRejectsBadInput(t *testing.T) {
	h := newAuthHarness(t)

	rr := h.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"short"}`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Body.String(), `"Email":"email"`)

	rr = h.do(t, http.MethodPost, "/auth/login", `{"email":"admin@minedor.cd","password":"wrongpass"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWorkerCannotListUsers(t *testing.T) {
	h := newAuthHarness(t)

	rr := h.do(t, http.MethodPost, "/auth/login", `{"email":"travailleur@minedor.cd","password":"correctpass"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(t, http.MethodGet, "/users/", "", rr.Result().Cookies())
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLogoutDropsIdentity(t *testing.T) {
	h := newAuthHarness(t)

	rr := h.do(t, http.MethodPost, "/auth/login", `{"email":"admin@minedor.cd","password":"correctpass"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()

	rr = h.do(t, http.MethodPost, "/auth/logout", "", cookies)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = h.do(t, http.MethodGet, "/users/", "", cookies)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionEndpointIssuesToken(t *testing.T) {
	h := newAuthHarness(t)

	rr := h.do(t, http.MethodGet, "/auth/session", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.CSRFToken)
	require.Nil(t, resp.User)
}
