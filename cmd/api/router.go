package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tiket/internal/cart"
	"github.com/noah-isme/backend-tiket/internal/checkout"
	"github.com/noah-isme/backend-tiket/internal/common"
	"github.com/noah-isme/backend-tiket/internal/config"
	"github.com/noah-isme/backend-tiket/internal/coupon"
	"github.com/noah-isme/backend-tiket/internal/health"
	"github.com/noah-isme/backend-tiket/internal/obs"
	"github.com/noah-isme/backend-tiket/internal/ratelimit"
	"github.com/noah-isme/backend-tiket/internal/security"
)

type dependencies struct {
	cfg     *config.Config
	logger  zerolog.Logger
	tracing bool
	store   cart.Store
	locker  cart.Locker
	limiter ratelimit.Allower
	idem    common.Idem
	coupons coupon.Validator
	probes  map[string]health.Probe
}

func newRouter(deps dependencies) http.Handler {
	cfg := deps.cfg

	cartSvc := &cart.Service{
		Store:   deps.store,
		Locker:  deps.locker,
		LockTTL: cfg.CartLockTTL,
		Coupons: deps.coupons,
		Logger:  deps.logger,
	}
	cartHandler := &cart.Handler{Svc: cartSvc}
	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{Carts: cartSvc}}

	quoteLimit := ratelimit.Handler{
		Limiter: deps.limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("quote"),
			Window: cfg.QuoteRateLimitWindow,
			Max:    cfg.QuoteRateLimitMax,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if deps.tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.EnablePrometheus {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: deps.logger}.Middleware)
	r.Use(security.Headers{Enable: true, NoStore: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: common.MaxBodyBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Probes: deps.probes}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.With(quoteLimit.Middleware).Post("/quote", cartHandler.Quote)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Route("/{id}", func(one chi.Router) {
				one.Get("/", cartHandler.Get)
				one.With(deps.idem.Middleware).Post("/items", cartHandler.AddItem)
				one.Delete("/items", cartHandler.Clear)
				one.Patch("/items/{eventId}/{ticketTypeId}", cartHandler.UpdateItem)
				one.Delete("/items/{eventId}/{ticketTypeId}", cartHandler.RemoveItem)
				one.Put("/coupon", cartHandler.ApplyCoupon)
				one.Delete("/coupon", cartHandler.RemoveCoupon)
			})
		})

		v.Get("/checkout/{cartId}/summary", checkoutHandler.Summary)
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
