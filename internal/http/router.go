// Package httpapi wires the HTTP transport (Gin) to the booking services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// authentication, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-booking-backend/docs" // registers the OpenAPI document with swag
	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/config"
	"github.com/tbourn/go-booking-backend/internal/http/handlers"
	"github.com/tbourn/go-booking-backend/internal/http/middleware"
	"github.com/tbourn/go-booking-backend/internal/services"
)

// Services bundles the application services the API exposes.
type Services struct {
	Appointments  handlers.AppointmentService
	Schedule      handlers.ScheduleService
	Notifications handlers.NotificationService
	Providers     handlers.ProviderService
}

// NewServices builds the DB-backed services. jobs receives deferred work
// (cancellation mail) and effects runs secondary writes after a booking or
// cancellation commits.
func NewServices(db *gorm.DB, cfg config.Config, jobs services.Enqueuer, effects services.EffectRunner) (Services, error) {
	loc, err := clock.LoadLocation(cfg.Timezone)
	if err != nil {
		return Services{}, err
	}
	users := services.DBDirectory{DB: db}

	appts := services.NewAppointmentService(db, jobs, effects)
	appts.Location = loc
	appts.Locale = clock.ParseLocale(cfg.NotifyLocale)

	return Services{
		Appointments:  appts,
		Schedule:      &services.ScheduleService{DB: db, Users: users, Clock: clock.System{}, Location: loc},
		Notifications: &services.NotificationService{DB: db, Users: users},
		Providers:     &services.ProviderService{DB: db},
	}, nil
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression, CORS
// and security headers, health, metrics and docs endpoints, and then mounts
// the authenticated API under cfg.APIBasePath.
//
// Global middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logging: redacted JSON (or plain console when LOG_PRETTY)
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip
//  8. CORS and Security headers
//
// The API group then runs:
//  1. Authenticate (identity is needed by everything below)
//  2. Idempotency validator (before rate limiter to allow bypass on replay)
//  3. Rate limiter (per user, Redis fixed window when rdb is set, otherwise
//     in-memory token bucket; bypass on replay)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svcs Services, rdb redis.Scripter, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging; redaction keeps emails and ids out of prod logs
	if cfg.LogPretty {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderUserID},
		}))
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Response compression (scrapes stay uncompressed)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
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
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers. Responses are per caller, so reads revalidate by ETag.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		PrivateCache: true,
		VaryOn:       []string{"Authorization", middleware.HeaderUserID},
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
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svcs.Appointments, svcs.Schedule, svcs.Notifications, svcs.Providers).
		WithIdempotencyTTL(cfg.IdempotencyTTL)

	// Authenticated API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Authenticate(middleware.AuthOptions{
		Secret:      cfg.Auth.JWTSecret,
		AllowHeader: cfg.Auth.AllowHeader,
	}))
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		handlers.IdempotencyLookup(db),
	))
	api.Use(rateLimiter(rdb, cfg))
	{
		// Providers
		api.GET("/providers", h.ListProviders)

		// Appointments (client)
		api.GET("/appointments", h.ListAppointments)
		api.POST("/appointments", h.CreateAppointment)
		api.DELETE("/appointments/:id", h.CancelAppointment)

		// Schedule (provider)
		api.GET("/schedule", h.ProviderSchedule)

		// Notifications (provider)
		api.GET("/notifications", h.ListNotifications)
		api.PUT("/notifications/:id", h.MarkNotificationRead)
	}
}

// exposedHeaders lists the response headers browsers may read.
var exposedHeaders = []string{
	"X-Request-ID", "Content-Length", "ETag",
	"X-Total-Count", "X-Total-Pages", "X-Unread-Count",
	middleware.HeaderIdempotencyReplayed, "Retry-After",
}

// rateLimiter returns the Redis limiter when a client is configured, so limits
// hold across replicas, and the in-process token bucket otherwise.
func rateLimiter(rdb redis.Scripter, cfg config.Config) gin.HandlerFunc {
	if rdb != nil {
		limit := int(cfg.RateRPS * cfg.RateWindow.Seconds())
		if limit < cfg.RateBurst {
			limit = cfg.RateBurst
		}
		return middleware.NewRedisRateLimiter(rdb, limit, cfg.RateWindow, "booking:rl", middleware.KeyByUserOrIP()).
			Handler(true)
	}
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
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
