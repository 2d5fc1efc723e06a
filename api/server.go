/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request count and duration
  5. Secure:     Security headers, HTTPS redirect in production (unrolled/secure)
  6. CORS:       Cross-origin requests for frontend
  7. Rate limit: Per-IP request budget on /api (httprate)

ROUTE GROUPS:
  /api/commissions/*    Compute endpoints
  /api/investments/*    Investment records
  /api/rates            Rate table
  /api/cutoffs/*        Calendar helpers
  /api/reports/*        Payout report
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"github.com/warp/commission-engine/logger"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// RequestsPerMinute per client IP on /api; 0 disables the limit.
	RequestsPerMinute int
	// ForceSSL redirects plain HTTP requests behind a TLS-terminating proxy.
	ForceSSL bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(h.Log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.ForceSSL,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Method("GET", "/metrics", h.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.RequestsPerMinute > 0 {
			r.Use(httprate.Limit(opts.RequestsPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}

		r.Route("/commissions", func(r chi.Router) {
			r.Post("/preview", h.PreviewCommission)
			r.Post("/batch", h.BatchCommissions)
		})

		r.Route("/investments", func(r chi.Router) {
			r.Get("/", h.ListInvestments)
			r.Post("/", h.CreateInvestment)
			r.Get("/{id}", h.GetInvestment)
			r.Delete("/{id}", h.DeleteInvestment)
			r.Get("/{id}/commission", h.GetInvestmentCommission)
		})

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Put("/", h.UpsertRate)
		})

		r.Route("/cutoffs", func(r chi.Router) {
			r.Get("/current", h.CurrentCutoff)
			r.Get("/resolve", h.ResolveCutoff)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/payouts", h.PayoutReport)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
