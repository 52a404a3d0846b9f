package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// SessionState — срез состояния сессии, нужный guard'у.
// Реализуется session.Controller.
type SessionState interface {
	IsLoading() bool
	IsAuthenticated() bool
}

// GuardOptions — параметры route guard'а.
type GuardOptions struct {
	// LoginPath — куда редиректить неаутентифицированных. По умолчанию "/login".
	LoginPath string
	// RedirectParam — имя query-параметра с исходным путём. По умолчанию "redirect".
	RedirectParam string
	// PublicPaths — пути, доступные без сессии (точное совпадение после
	// path.Clean). LoginPath публичен всегда.
	PublicPaths []string
}

func (o *GuardOptions) normalize() {
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.RedirectParam == "" {
		o.RedirectParam = "redirect"
	}
}

// Guard закрывает навигацию по состоянию сессии.
//
//   - публичный путь — пропускаем без проверок;
//   - стартовая проверка токенов ещё идёт — нейтральный ответ с Retry-After,
//     без редиректа (иначе на время проверки мелькал бы экран логина);
//   - нет сессии — 302 на LoginPath с исходным URI в RedirectParam;
//   - сессия активна — запрос проходит без изменений.
func Guard(sess SessionState, opts GuardOptions) Middleware {
	opts.normalize()

	public := make(map[string]struct{}, len(opts.PublicPaths)+1)
	public[path.Clean(opts.LoginPath)] = struct{}{}
	for _, p := range opts.PublicPaths {
		public[path.Clean(p)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[path.Clean(r.URL.Path)]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if sess.IsLoading() {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("loading\n"))
				return
			}

			if !sess.IsAuthenticated() {
				target := opts.LoginPath + "?" + opts.RedirectParam + "=" + url.QueryEscape(requestURI(r))
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestURI — исходный путь с query, чтобы после логина вернуть
// пользователя ровно туда, куда он шёл.
func requestURI(r *http.Request) string {
	uri := r.URL.RequestURI()
	if uri == "" || !strings.HasPrefix(uri, "/") {
		return "/"
	}
	return uri
}
