package handlers

import "net/http"

// Страницы-заглушки: реальную разметку отдаёт фронтенд-сборка,
// шлюзу важны только маршруты и их охрана.

func servePage(w http.ResponseWriter, title string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<!doctype html><title>" + title + "</title>\n"))
}

func (h *Handlers) LoginPage(w http.ResponseWriter, _ *http.Request) {
	servePage(w, "Sign in — Viridial")
}

func (h *Handlers) SignupPage(w http.ResponseWriter, _ *http.Request) {
	servePage(w, "Sign up — Viridial")
}

func (h *Handlers) DashboardPage(w http.ResponseWriter, _ *http.Request) {
	servePage(w, "Dashboard — Viridial")
}
