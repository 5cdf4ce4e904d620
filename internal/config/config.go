// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the database path, business-day rules, token verification, rate
// limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "manager-checklists")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// JWTConfig defines how bearer tokens are verified.
type JWTConfig struct {
	Secret string // JWT_SECRET, HS256 shared secret (>= 16 bytes)
	Issuer string // JWT_ISSUER, optional expected "iss"
}

// RedisConfig locates the shared token revocation list. An empty Addr keeps
// revocations in process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BootstrapConfig lists records provisioned at startup.
type BootstrapConfig struct {
	Restaurants map[string]string // BOOTSTRAP_RESTAURANTS, "id=Name,id2"
	AdminUID    string
	AdminEmail  string
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

	// App
	DBPath        string // SQLite path
	Timezone      string // IANA zone of the restaurants
	CutoffHour    int    // business day starts at this local hour (0..23)
	RetentionDays int    // expireAt = business date + RetentionDays

	// Auth
	JWT   JWTConfig
	Redis RedisConfig

	// Realtime
	WSPingInterval time.Duration

	Bootstrap BootstrapConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

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

// Load reads the process environment, applies defaults and validates the
// result. Every malformed or out-of-range key is reported, joined into one
// error.
func Load() (Config, error) {
	e := &env{lookup: os.LookupEnv}
	cfg := Config{
		Port:              e.str("PORT", "8080"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", time.Minute),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(e.str("GIN_MODE", "release")),

		LogLevel:       logLevel(e.str("LOG_LEVEL", "info")),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		DBPath:        strings.TrimSpace(e.str("DB_PATH", "checklists.db")),
		Timezone:      e.str("APP_TIMEZONE", "America/Toronto"),
		CutoffHour:    e.int("BUSINESS_DAY_CUTOFF_HOUR", bizdate.DefaultCutoffHour),
		RetentionDays: e.int("RETENTION_DAYS", bizdate.DefaultRetentionDays),

		JWT: JWTConfig{
			Secret: e.raw("JWT_SECRET"),
			Issuer: strings.TrimSpace(e.raw("JWT_ISSUER")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(e.raw("REDIS_ADDR")),
			Password: e.raw("REDIS_PASSWORD"),
			DB:       e.int("REDIS_DB", 0),
		},
		WSPingInterval: e.dur("WS_PING_INTERVAL", 30*time.Second),
		Bootstrap: BootstrapConfig{
			Restaurants: e.restaurants("BOOTSTRAP_RESTAURANTS"),
			AdminUID:    strings.TrimSpace(e.raw("BOOTSTRAP_ADMIN_UID")),
			AdminEmail:  strings.TrimSpace(e.raw("BOOTSTRAP_ADMIN_EMAIL")),
		},

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.raw("CORS_ALLOWED_ORIGINS"))},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "manager-checklists"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	if len(e.errs) > 0 {
		return cfg, errors.Join(e.errs...)
	}
	return cfg, cfg.validate()
}

// rule is one validation: ok must hold or msg is reported.
type rule struct {
	ok  bool
	msg string
}

func (c Config) validate() error {
	rules := []rule{
		{validLevels[c.LogLevel], "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(c.Port) != "", "PORT must not be empty"},
		{c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0, "timeouts must be positive durations"},
		{c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0"},
		{c.DBPath != "", "DB_PATH must not be empty"},
		{c.RetentionDays > 0, "RETENTION_DAYS must be > 0"},
		{len(c.JWT.Secret) >= 16, "JWT_SECRET must be at least 16 bytes"},
		{c.Redis.DB >= 0, "REDIS_DB must be >= 0"},
		{c.WSPingInterval > 0, "WS_PING_INTERVAL must be > 0"},
		{c.RateRPS >= 0, "RATE_RPS must be >= 0"},
		{c.RateBurst >= 1, "RATE_BURST must be >= 1"},
		{c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0"},
		{c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0"},
		{c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	var errs []error
	for _, r := range rules {
		if !r.ok {
			errs = append(errs, errors.New(r.msg))
		}
	}
	if _, err := bizdate.NewCalculator(c.Timezone, c.CutoffHour); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE/BUSINESS_DAY_CUTOFF_HOUR: %w", err))
	}
	return errors.Join(errs...)
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
}

func logLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return "warn"
	}
	return s
}

// ginMode falls back to release for anything gin would not accept.
func ginMode(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

// env reads typed values and records every key it could not parse.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

// raw returns the value as set, or "".
func (e *env) raw(k string) string {
	v, _ := e.lookup(k)
	return v
}

// str returns the value, or def when unset or empty.
func (e *env) str(k, def string) string {
	if v := e.raw(k); v != "" {
		return v
	}
	return def
}

func (e *env) bad(k, v, kind string) {
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not a valid %s", k, v, kind))
}

func (e *env) int(k string, def int) int {
	v := strings.TrimSpace(e.raw(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.bad(k, v, "integer")
		return def
	}
	return n
}

func (e *env) float(k string, def float64) float64 {
	v := strings.TrimSpace(e.raw(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.bad(k, v, "number")
		return def
	}
	return f
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(e.raw(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.bad(k, v, "duration")
		return def
	}
	return d
}

func (e *env) bool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(e.raw(k)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.bad(k, v, "boolean")
	return def
}

// restaurants reads "id=Name,id2" into id -> name. A missing name maps to ""
// so the display name is derived from the id.
func (e *env) restaurants(k string) map[string]string {
	parts := splitCSV(e.raw(k))
	if len(parts) == 0 {
		return nil
	}
	out := make(map[string]string, len(parts))
	for _, p := range parts {
		id, name, _ := strings.Cut(p, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			e.errs = append(e.errs, fmt.Errorf("%s: empty id in %q", k, p))
			continue
		}
		out[id] = strings.TrimSpace(name)
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones, except
// for the root.
func normalizeBasePath(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	return p
}
