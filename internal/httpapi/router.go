// Package httpapi is the JSON HTTP surface of the lockana server binary.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/internal/logger"
	"github.com/MrEthical07/lockana/middleware"
	"github.com/MrEthical07/lockana/sqlstore"
	"github.com/MrEthical07/lockana/vault"
)

// AdminStore is the persistence used by the admin endpoints. *sqlstore.Store
// satisfies it.
type AdminStore interface {
	CreateUser(ctx context.Context, username, secret string) (*sqlstore.UserRecord, error)
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]sqlstore.UserRecord, error)
	AssignRole(ctx context.Context, username, role string) error
	ListLogs(ctx context.Context, limit int) ([]sqlstore.LogEntry, error)
	DeleteLogs(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Deps collects the router's collaborators. Metrics and LoginLimiter are optional.
type Deps struct {
	Engine       *lockana.Engine
	Vault        *vault.Service
	Admin        AdminStore
	Logger       *slog.Logger
	Metrics      http.Handler
	LoginLimiter *middleware.RateLimiter
	TrustProxy   bool
}

type handler struct {
	engine *lockana.Engine
	vault  *vault.Service
	admin  AdminStore
	logger *slog.Logger
}

// NewRouter wires every endpoint.
//
//	GET    /healthz
//	POST   /api/v1/auth/login
//	POST   /api/v1/auth/logout
//	GET    /api/v1/auth/me
//	GET    /api/v1/secrets                 (read)
//	POST   /api/v1/secrets                 (write)
//	GET    /api/v1/secrets/{name}          (read)
//	PUT    /api/v1/secrets/{name}          (write)
//	DELETE /api/v1/secrets/{name}          (delete)
//	GET    /api/v1/admin/users             (admin)
//	POST   /api/v1/admin/users             (admin)
//	DELETE /api/v1/admin/users/{username}  (admin)
//	POST   /api/v1/admin/users/{username}/rotate-secret (admin)
//	GET    /api/v1/admin/logs              (admin)
//	DELETE /api/v1/admin/logs              (admin)
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	h := &handler{engine: deps.Engine, vault: deps.Vault, admin: deps.Admin, logger: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))
	r.Use(middleware.ClientIP(deps.TrustProxy))

	r.Get("/healthz", h.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			login := http.HandlerFunc(h.login)
			if deps.LoginLimiter != nil {
				r.With(deps.LoginLimiter.Middleware()).Post("/login", login)
			} else {
				r.Post("/login", login)
			}
			r.Post("/logout", h.logout)
			r.With(middleware.RequireRole(h.engine, "")).Get("/me", h.me)
		})

		r.Route("/secrets", func(r chi.Router) {
			r.With(middleware.RequirePermission(h.engine, "read")).Get("/", h.listSecrets)
			r.With(middleware.RequirePermission(h.engine, "write")).Post("/", h.addSecret)
			r.With(middleware.RequirePermission(h.engine, "read")).Get("/{name}", h.getSecret)
			r.With(middleware.RequirePermission(h.engine, "write")).Put("/{name}", h.updateSecret)
			r.With(middleware.RequirePermission(h.engine, "delete")).Delete("/{name}", h.deleteSecret)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(h.engine, h.engine.AdminRole()))

			r.Get("/users", h.listUsers)
			r.Post("/users", h.createUser)
			r.Delete("/users/{username}", h.deleteUser)
			r.Post("/users/{username}/rotate-secret", h.rotateSecret)
			r.Get("/logs", h.listLogs)
			r.Delete("/logs", h.deleteLogs)
		})
	})

	return r
}
