package handlers

import (
	"net/http"

	"github.com/viridial-group/viridial/internal/models"
	"github.com/viridial-group/viridial/internal/web/apierrors"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.Session.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true, User: user})
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var in models.SignupRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.Session.Signup(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true, User: user})
}

// Refresh — принудительное обновление пары токенов. Тело не требуется:
// refresh-токен берётся из локального хранилища, с клиента он не приходит.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Refresh(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout()
	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: false})
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Session.CurrentUser(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// SessionState — лёгкая проба состояния для фронта (поллинг после загрузки).
func (h *Handlers) SessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.SessionResponse{
		Authenticated: h.Session.IsAuthenticated(),
	})
}

// Health проксирует health-check auth-сервиса.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Auth.HealthCheck(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
