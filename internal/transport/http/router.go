package http

import (
	"log/slog"
	"net/http"
	"time"

	"budget-buddy/internal/service"
	"budget-buddy/internal/transport/http/handlers"
	"budget-buddy/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// SecureCookies — Secure-флаг на token-cookie; false только для local.
	SecureCookies bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
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

	h := handlers.New(svc, opts.SecureCookies)

	root.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Budget Buddy API is running"))
	})

	// auth
	root.Post("/auth/register", h.RegisterUser)
	root.Post("/auth/login", h.LoginUser)
	root.Post("/auth/logout", h.LogoutUser)
	root.Post("/auth/refresh", h.RefreshToken)

	return root
}
