package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sokoline/sokoline/internal/shared"
)

func requestWithRole(t *testing.T, userID, role string) *http.Request {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "sokoline_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID, role)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireAnyAllowsMatchingRole(t *testing.T) {
	m := Middleware{}
	called := false
	handler := m.RequireAny(RoleEmployee, RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "7", RoleEmployee))
	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyRejectsOtherRole(t *testing.T) {
	m := Middleware{}
	handler := m.RequireAny(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "7", RoleCustomer))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuthenticated(t *testing.T) {
	m := Middleware{}
	called := false
	handler := m.RequireAuthenticated()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "3", RoleCustomer))
	require.True(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	m := Middleware{}
	handler := m.RequireAny(RoleCustomer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
