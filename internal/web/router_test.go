package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authclient "github.com/viridial-group/viridial/internal/clients/auth"
	"github.com/viridial-group/viridial/internal/models"
	"github.com/viridial-group/viridial/internal/session"
)

// fakeAuthService — минимальный апстрим с фиксированными учётками.
func fakeAuthService(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&in)

		if in.Email != "user@example.com" || in.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}

		_ = json.NewEncoder(w).Encode(models.AuthResponse{
			AccessToken:  "a.b.c",
			RefreshToken: "x.y.z",
			User:         models.User{Email: in.Email, Role: "agent"},
		})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var in models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&in)

		if in.RefreshToken != "x.y.z" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"token revoked"}`))
			return
		}

		_ = json.NewEncoder(w).Encode(models.AuthResponse{
			AccessToken:  "a2.b2.c2",
			RefreshToken: "x2.y2.z2",
		})
	})

	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"unauthenticated"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.User{Email: "user@example.com", Role: "agent"})
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.HealthResponse{Status: "ok", Service: "auth-service"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newGateway(t *testing.T) (http.Handler, *session.Controller, *session.MemoryStore) {
	t.Helper()

	upstream := fakeAuthService(t)

	ac, err := authclient.New(upstream.URL, authclient.WithTimeout(2*time.Second))
	require.NoError(t, err)

	st := session.NewMemoryStore()
	sess := session.New(st, ac)
	// Пустое хранилище: стартуем сразу в Unauthenticated.
	require.NoError(t, sess.Bootstrap(context.Background()))

	h := NewRouter(sess, ac, Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: 5 * time.Second,
	})

	return h, sess, st
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestGateway_LoginFlow(t *testing.T) {
	t.Parallel()

	h, sess, st := newGateway(t)

	rec := postJSON(t, h, "/auth/login", models.Credentials{Email: "user@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Authenticated)
	require.Equal(t, "user@example.com", resp.User.Email)

	require.Equal(t, session.StateAuthenticated, sess.State())
	require.Equal(t, "a.b.c", st.AccessToken())
	require.Equal(t, "x.y.z", st.RefreshToken())
}

func TestGateway_LoginFailure_SurfacesServerMessage(t *testing.T) {
	t.Parallel()

	h, sess, _ := newGateway(t)

	rec := postJSON(t, h, "/auth/login", models.Credentials{Email: "user@example.com", Password: "bad"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid credentials")
	require.Equal(t, session.StateUnauthenticated, sess.State())
}

func TestGateway_LoginBadJSON(t *testing.T) {
	t.Parallel()

	h, _, _ := newGateway(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_argument")
}

func TestGateway_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	h, sess, st := newGateway(t)

	postJSON(t, h, "/auth/login", models.Credentials{Email: "user@example.com", Password: "pw"})

	rec := postJSON(t, h, "/auth/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a2.b2.c2", st.AccessToken())
	require.Equal(t, "x2.y2.z2", st.RefreshToken())

	rec = postJSON(t, h, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, session.StateUnauthenticated, sess.State())
	require.Empty(t, st.AccessToken())
}

// Refresh без сессии — 401, апстрим не дёргается.
func TestGateway_RefreshWithoutSession(t *testing.T) {
	t.Parallel()

	h, _, _ := newGateway(t)

	rec := postJSON(t, h, "/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "unauthenticated")
}

func TestGateway_CurrentUser(t *testing.T) {
	t.Parallel()

	h, _, _ := newGateway(t)

	// Без сессии — 401.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	postJSON(t, h, "/auth/login", models.Credentials{Email: "user@example.com", Password: "pw"})

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, "agent", user.Role)
}

// Защищённая страница без сессии — 302 на /login с redirect.
func TestGateway_GuardedPageRedirect(t *testing.T) {
	t.Parallel()

	h, _, _ := newGateway(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	require.Equal(t, "/dashboard", loc.Query().Get("redirect"))
}

func TestGateway_GuardedPageAfterLogin(t *testing.T) {
	t.Parallel()

	h, _, _ := newGateway(t)

	postJSON(t, h, "/auth/login", models.Credentials{Email: "user@example.com", Password: "pw"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Dashboard")
}

func TestGateway_SessionStateAndHealth(t *testing.T) {
	t.Parallel()

	h, _, _ := newGateway(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.False(t, state.Authenticated)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "auth-service")
}
