package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "session-secret", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionPersistsValuesAcrossRequests(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.True(t, sess.IsNew())
	sess.SetUser("usr-001")
	sess.Set("access.impersonate", "travailleur")
	cookie := roundTrip(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.False(t, loaded.IsNew())
	require.Equal(t, sess.ID, loaded.ID)
	require.Equal(t, "usr-001", loaded.User())
	require.Equal(t, "travailleur", loaded.Get("access.impersonate"))
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.True(t, sess.IsNew())
	require.NotEqual(t, "forged", sess.ID)
	require.Empty(t, sess.User())
}

func TestSessionRejectsTamperedSignature(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("usr-003")
	cookie := roundTrip(t, sm, sess)
	require.True(t, strings.HasPrefix(cookie.Value, sess.ID+"."))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: sess.ID + ".forged"})
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.True(t, loaded.IsNew())
	require.NotEqual(t, sess.ID, loaded.ID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: sess.ID})
	loaded, err = sm.Load(ctx, req)
	require.NoError(t, err)
	require.True(t, loaded.IsNew())
}

func TestSessionDestroyExpiresCookieAndDeletesKey(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("usr-002")
	roundTrip(t, sm, sess)
	require.True(t, mr.Exists("minedor:session:"+sess.ID))

	sm.Destroy(sess)
	cookie := roundTrip(t, sm, sess)
	require.Equal(t, -1, cookie.MaxAge)
	require.False(t, mr.Exists("minedor:session:"+sess.ID))
}

func TestSessionRotateDropsPreviousState(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("usr-001")
	sess.Set("access.impersonate", "superviseur")
	roundTrip(t, sm, sess)
	oldID := sess.ID

	sm.Rotate(sess)
	require.NotEqual(t, oldID, sess.ID)
	require.Empty(t, sess.Get("access.impersonate"))
	require.Empty(t, sess.User())
	roundTrip(t, sm, sess)

	require.False(t, mr.Exists("minedor:session:"+oldID))
	require.True(t, mr.Exists("minedor:session:"+sess.ID))
}

func TestSessionFromContext(t *testing.T) {
	require.Nil(t, SessionFromContext(context.Background()))

	sess := &Session{ID: "abc"}
	ctx := ContextWithSession(context.Background(), sess)
	require.Same(t, sess, SessionFromContext(ctx))
}
