package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/keywarden/keywarden/internal/middleware"
)

// RouterConfig carries the dependencies for NewRouter.
type RouterConfig struct {
	Auth       *AuthHandler
	Vault      *VaultHandler
	Categories *CategoryHandler
	Logs       *LogHandler
	JWTSecret  string

	// DecryptRPS and DecryptBurst bound per-user decrypt attempts.
	DecryptRPS   float64
	DecryptBurst int
}

// NewRouter constructs the API router.
//
// Routes:
//
//	POST /auth/register
//	POST /auth/login
//	GET|POST /vault, PUT|DELETE /vault/{id}, POST /vault/{id}/decrypt
//	GET|POST /notes, PUT|DELETE /notes/{id}, POST /notes/{id}/decrypt
//	GET|POST /categories
//	GET|POST /logs, GET /logs/summary
//
// Everything except /auth requires a valid bearer token. The decrypt
// endpoints additionally pass through a per-user rate limiter, the
// server-side backstop against master-password guessing.
func NewRouter(cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
	})

	decryptLimit := middleware.DecryptRateLimit(cfg.DecryptRPS, cfg.DecryptBurst)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret))

		itemRoutes := func(r chi.Router) {
			r.Get("/", cfg.Vault.List)
			r.Post("/", cfg.Vault.Create)
			r.Put("/{id}", cfg.Vault.Update)
			r.Delete("/{id}", cfg.Vault.Delete)
			r.With(decryptLimit).Post("/{id}/decrypt", cfg.Vault.Decrypt)
		}
		r.Route("/vault", itemRoutes)
		r.Route("/notes", itemRoutes)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", cfg.Categories.List)
			r.Post("/", cfg.Categories.Create)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", cfg.Logs.List)
			r.Post("/", cfg.Logs.Record)
			r.Get("/summary", cfg.Logs.Summary)
		})
	})

	return r
}
