// web собирает HTTP-поверхность шлюза: роутер, мидлвары, хендлеры.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authclient "github.com/viridial-group/viridial/internal/clients/auth"
	"github.com/viridial-group/viridial/internal/session"
	"github.com/viridial-group/viridial/internal/web/handlers"
	"github.com/viridial-group/viridial/internal/web/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
//
// Guard закрывает только страничные маршруты: /auth/* и служебные
// эндпойнты публичны по определению (иначе нечем было бы логиниться).
func NewRouter(sess *session.Controller, ac *authclient.Client, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(sess, ac)

	// API сессии — всегда доступен.
	root.Post("/auth/login", h.Login)
	root.Post("/auth/signup", h.Signup)
	root.Post("/auth/refresh", h.Refresh)
	root.Post("/auth/logout", h.Logout)
	root.Get("/auth/me", h.CurrentUser)
	root.Get("/auth/session", h.SessionState)
	root.Get("/health", h.Health)

	// Публичные страницы.
	root.Get("/login", h.LoginPage)
	root.Get("/signup", h.SignupPage)

	// Защищённые страницы — за route guard'ом.
	root.Group(func(r chi.Router) {
		r.Use(middleware.Guard(sess, middleware.GuardOptions{
			LoginPath:   "/login",
			PublicPaths: []string{"/signup"},
		}))

		r.Get("/", h.DashboardPage)
		r.Get("/dashboard", h.DashboardPage)
	})

	return root
}
