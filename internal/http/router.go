// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Everything under the API base path requires a bearer token
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/docs"
	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/config"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/http/handlers"
	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/realtime"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

// templateRepoShim adapts the repository free functions to the
// services.TemplateRepo interface expected by the TemplateStore.
type templateRepoShim struct{}

// ListDuties proxies repo.ListDuties.
func (templateRepoShim) ListDuties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind) ([]domain.DutyTemplate, error) {
	return repo.ListDuties(ctx, db, restaurantID, shift)
}

// ReplaceDuties proxies repo.ReplaceDuties.
func (templateRepoShim) ReplaceDuties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind, duties []domain.DutyTemplate) error {
	return repo.ReplaceDuties(ctx, db, restaurantID, shift, duties)
}

// Deps are the long-lived collaborators built in main.
type Deps struct {
	DB       *gorm.DB
	Calc     *bizdate.Calculator
	Broker   *realtime.Broker
	Verifier middleware.TokenVerifier
	Revoker  auth.Revoker
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, health, metrics and docs endpoints, and then mounts
// the authenticated API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger (debug) or RedactingLogger: structured logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (websocket and /metrics excluded)
//  8. CORS and Security headers
//
// Inside the API group:
//  1. Authenticate: bearer token → principal
//  2. Idempotency validator (needs the user; marks replays)
//  3. Rate limiter (per user, bypass on replay)
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging; redaction outside debug mode
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression. Hijacked websocket connections must not be wrapped.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedPathsRegexs([]string{`/watch$`}),
	))

	// 8) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Content-Disposition", "Idempotency-Replayed"}
	methods := []string{"GET", "POST", "PUT", "OPTIONS"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := originSet(cfg.CORS.AllowedOrigins)
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/broker
	policy := services.NewAccessPolicy(d.DB, d.Calc)
	checklists := services.NewChecklistService(d.DB, d.Calc, d.Broker)
	checklists.RetentionDays = cfg.RetentionDays
	templates := services.NewTemplateStore(d.DB, templateRepoShim{})
	lockTimes := checklists.LockTimes

	h := handlers.New(handlers.Options{
		Checklists: checklists,
		Access:     policy,
		Templates:  templates,
		LockTimes:  lockTimes,
		Settings:   &services.SettingsService{DB: d.DB, Templates: templates, LockTimes: lockTimes},
		Broker:     d.Broker,
		Revoker:    d.Revoker,
		RecordIdempotency: func(ctx context.Context, userID, scope, key string, status int) error {
			_, err := repo.CreateIdempotency(ctx, d.DB, userID, scope, key, status, cfg.IdempotencyTTL)
			return err
		},
		PingInterval: cfg.WSPingInterval,
		CheckOrigin:  checkOrigin(cfg.CORS.AllowedOrigins),
	})

	// Authenticated API
	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.Authenticate(d.Verifier, d.Revoker, policy.Resolve))
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  middleware.ShiftScope,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, d.DB, userID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		},
	))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	api.Use(rl.Handler())
	{
		// Identity
		api.GET("/me", h.Me)
		api.POST("/auth/signout", h.SignOut)

		// Restaurants
		api.GET("/restaurants", h.ListRestaurants)
		api.GET("/restaurants/:restId", h.GetRestaurant)

		// Checklists
		api.GET("/restaurants/:restId/checklists", h.ListDays)
		shift := api.Group("/restaurants/:restId/checklists/:date/:shift")
		shift.GET("", h.GetShift)
		shift.GET("/watch", h.WatchShift)
		shift.GET("/export", h.ExportShift)
		shift.POST("/items/:itemId/toggle", h.ToggleItem)
		shift.POST("/submit", h.SubmitShift)
		shift.POST("/reseed", h.ReseedShift)
		shift.POST("/reset", h.ResetShift)

		// Settings (admin)
		settings := api.Group("/restaurants/:restId/settings")
		settings.GET("", h.GetSettings)
		settings.PUT("/templates/:shift", h.SaveTemplate)
		settings.POST("/templates/:shift/edits", h.EditTemplate)
		settings.POST("/templates/:shift/bulk", h.BulkTemplate)
		settings.PUT("/lock-times/:shift", h.SetLockTime)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func originSet(origins []string) map[string]struct{} {
	out := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		out[o] = struct{}{}
	}
	return out
}

// checkOrigin vets websocket upgrades against the CORS allowlist. With no
// allowlist every origin is accepted, matching the HTTP CORS posture.
// Non-browser clients send no Origin and are always accepted.
func checkOrigin(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := originSet(origins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
