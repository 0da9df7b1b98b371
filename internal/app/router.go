package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jonah2xm/e-commerce/internal/catalog"
	"github.com/jonah2xm/e-commerce/internal/inventory"
	"github.com/jonah2xm/e-commerce/internal/orders"
	"github.com/jonah2xm/e-commerce/internal/platform/httpx"
	"github.com/jonah2xm/e-commerce/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	InventoryHandler *inventory.Handler
	SalesHandler     *sales.Handler
	OrdersHandler    *orders.Handler
	Pool             *pgxpool.Pool
	Redis            *redis.Client
}

// NewRouter constructs the chi.Router. Admin routes sit under /api, the
// storefront under /api/public guarded only by a per-IP rate limit; real
// authentication is expected to terminate in front of this service.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params))

	r.Route("/api", func(api chi.Router) {
		params.CatalogHandler.MountRoutes(api)
		params.InventoryHandler.MountRoutes(api)
		params.SalesHandler.MountRoutes(api)
		params.OrdersHandler.MountRoutes(api)

		api.Route("/public", func(public chi.Router) {
			limit := 120
			if params.Config != nil && params.Config.PublicRateLimit > 0 {
				limit = params.Config.PublicRateLimit
			}
			public.Use(httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

			params.CatalogHandler.MountPublicRoutes(public)
			params.OrdersHandler.MountPublicRoutes(public)
		})
	})

	return r
}

func healthHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"postgres": "ok", "redis": "ok"}
		healthy := true
		if err := params.Pool.Ping(ctx); err != nil {
			status["postgres"] = err.Error()
			healthy = false
		}
		if err := params.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			healthy = false
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		httpx.JSON(w, code, status)
	}
}
