// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, authentication, the job queue,
// outbound mail, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	// TIMEZONE must resolve in minimal containers without /usr/share/zoneinfo.
	_ "time/tzdata"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-booking-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines how callers are identified.
type AuthConfig struct {
	JWTSecret   string // JWT_SECRET (HS256); empty disables bearer tokens
	AllowHeader bool   // AUTH_ALLOW_HEADER: trust X-User-ID (dev/test only)
}

// QueueConfig tunes the background job worker and reaper.
type QueueConfig struct {
	PollInterval      time.Duration // QUEUE_POLL_INTERVAL
	BatchSize         int           // QUEUE_BATCH_SIZE
	JobTimeout        time.Duration // QUEUE_JOB_TIMEOUT
	ReapSchedule      string        // QUEUE_REAP_SCHEDULE (cron spec)
	VisibilityTimeout time.Duration // QUEUE_VISIBILITY_TIMEOUT
	Inline            bool          // WORKER_INLINE: run the worker inside `serve`
}

// MailConfig defines the outbound SMTP relay. An empty Host logs mail
// instead of sending it.
type MailConfig struct {
	Host               string        // SMTP_HOST
	Port               int           // SMTP_PORT
	User               string        // SMTP_USER
	Pass               string        // SMTP_PASS
	From               string        // MAIL_FROM
	BreakerMaxFailures uint32        // MAIL_BREAKER_MAX_FAILURES
	BreakerOpenTimeout time.Duration // MAIL_BREAKER_OPEN_TIMEOUT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // postgres DSN

	// Booking
	Timezone     string // IANA zone used for hour/day truncation
	NotifyLocale string // BCP 47 tag for notification and mail text

	// Rate limiting
	RateRPS    float64       // tokens per second (>= 0)
	RateBurst  int           // bucket size (>= 1)
	RedisAddr  string        // when set, limit with a shared fixed window in Redis
	RateWindow time.Duration // fixed window length for the Redis limiter

	Auth  AuthConfig
	Queue QueueConfig
	Mail  MailConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if it is invalid.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration from the environment. A variable that is set
// but does not parse is an error rather than a silent fallback to the
// default. Every problem found is reported in the returned error.
func Load() (Config, error) {
	e := &env{}
	cfg := Config{
		// Server
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.str("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:    strings.ToLower(e.str("DB_DRIVER", "sqlite")),
		DBPath:      e.str("DB_PATH", "app.db"),
		DatabaseURL: e.str("DATABASE_URL", ""),

		// Booking
		Timezone:     e.str("TIMEZONE", "UTC"),
		NotifyLocale: e.str("NOTIFY_LOCALE", "en"),

		// Rate limiting
		RateRPS:    e.float("RATE_RPS", 5.0),
		RateBurst:  e.int("RATE_BURST", 10),
		RedisAddr:  e.str("REDIS_ADDR", ""),
		RateWindow: e.dur("RATE_WINDOW", time.Minute),

		Auth: AuthConfig{
			JWTSecret:   e.str("JWT_SECRET", ""),
			AllowHeader: e.bool("AUTH_ALLOW_HEADER", false),
		},
		Queue: QueueConfig{
			PollInterval:      e.dur("QUEUE_POLL_INTERVAL", time.Second),
			BatchSize:         e.int("QUEUE_BATCH_SIZE", 10),
			JobTimeout:        e.dur("QUEUE_JOB_TIMEOUT", 30*time.Second),
			ReapSchedule:      e.str("QUEUE_REAP_SCHEDULE", "@every 1m"),
			VisibilityTimeout: e.dur("QUEUE_VISIBILITY_TIMEOUT", 5*time.Minute),
			Inline:            e.bool("WORKER_INLINE", false),
		},
		Mail: MailConfig{
			Host:               e.str("SMTP_HOST", ""),
			Port:               e.int("SMTP_PORT", 587),
			User:               e.str("SMTP_USER", ""),
			Pass:               e.str("SMTP_PASS", ""),
			From:               e.str("MAIL_FROM", "Booking <noreply@booking.local>"),
			BreakerMaxFailures: uint32(e.int("MAIL_BREAKER_MAX_FAILURES", 5)),
			BreakerOpenTimeout: e.dur("MAIL_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "go-booking-backend"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, errors.Join(append(e.errs, cfg.Validate())...)
}

// Validate checks cross-field constraints and reports every violation.
func (cfg Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		check(false, "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	check(strings.TrimSpace(cfg.Port) != "", "PORT must not be empty")
	check(cfg.ReadTimeout > 0 && cfg.ReadHeaderTimeout > 0 && cfg.WriteTimeout > 0 && cfg.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(cfg.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch cfg.DBDriver {
	case "sqlite":
		check(strings.TrimSpace(cfg.DBPath) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(cfg.DatabaseURL) != "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	default:
		check(false, "DB_DRIVER must be one of: sqlite, postgres")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if _, err := language.Parse(cfg.NotifyLocale); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_LOCALE: %w", err))
	}

	check(cfg.Auth.JWTSecret != "" || cfg.Auth.AllowHeader, "JWT_SECRET must be set unless AUTH_ALLOW_HEADER=true")

	check(cfg.Queue.PollInterval > 0 && cfg.Queue.JobTimeout > 0 && cfg.Queue.VisibilityTimeout > 0,
		"QUEUE_POLL_INTERVAL, QUEUE_JOB_TIMEOUT and QUEUE_VISIBILITY_TIMEOUT must be positive")
	check(cfg.Queue.BatchSize >= 1, "QUEUE_BATCH_SIZE must be >= 1")
	// A job must time out before the reaper considers it abandoned.
	check(cfg.Queue.JobTimeout < cfg.Queue.VisibilityTimeout, "QUEUE_JOB_TIMEOUT must be shorter than QUEUE_VISIBILITY_TIMEOUT")
	if _, err := cron.ParseStandard(cfg.Queue.ReapSchedule); err != nil {
		errs = append(errs, fmt.Errorf("QUEUE_REAP_SCHEDULE: %w", err))
	}

	check(cfg.Mail.Host == "" || (cfg.Mail.Port > 0 && cfg.Mail.Port <= 65535), "SMTP_PORT must be a valid port")

	check(cfg.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(cfg.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(cfg.RedisAddr == "" || cfg.RateWindow > 0, "RATE_WINDOW must be > 0")

	check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(cfg.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads typed variables and remembers the ones that failed to parse.
type env struct {
	errs []error
}

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *env) int(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", k, v))
		return def
	}
	return i
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", k, v))
		return def
	}
	return f
}

func (e *env) bool(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", k, v))
	return def
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", k, v))
		return def
	}
	return d
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
