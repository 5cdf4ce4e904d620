package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef-test"

// baseEnv sets the only key without a usable default.
func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	baseEnv(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	baseEnv(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

// --- Load success + normalization + parsing ---

func TestLoad_Defaults(t *testing.T) {
	baseEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Timezone != "America/Toronto" || cfg.CutoffHour != 5 || cfg.RetentionDays != 400 {
		t.Fatalf("business-day defaults unexpected: %+v", cfg)
	}
	if cfg.DBPath != "checklists.db" || cfg.WSPingInterval != 30*time.Second {
		t.Fatalf("app defaults unexpected: %+v", cfg)
	}
	if cfg.Redis.Addr != "" || cfg.JWT.Issuer != "" {
		t.Fatalf("optional auth keys should default empty: %+v / %+v", cfg.Redis, cfg.JWT)
	}
	if cfg.Bootstrap.Restaurants != nil || cfg.Bootstrap.AdminUID != "" {
		t.Fatalf("bootstrap should default empty: %+v", cfg.Bootstrap)
	}
	if cfg.OTEL.ServiceName != "manager-checklists" {
		t.Fatalf("service name = %q", cfg.OTEL.ServiceName)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	baseEnv(t)
	// Server
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("APP_TIMEZONE", "Europe/London")
	t.Setenv("BUSINESS_DAY_CUTOFF_HOUR", "4")
	t.Setenv("RETENTION_DAYS", "30")

	// Auth
	t.Setenv("JWT_ISSUER", " https://id.example.com ")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WS_PING_INTERVAL", "5s")

	// Bootstrap
	t.Setenv("BOOTSTRAP_RESTAURANTS", "tulia=Tulia Osteria, harbour ,")
	t.Setenv("BOOTSTRAP_ADMIN_UID", " owner ")

	// Rate limiting
	t.Setenv("RATE_RPS", "0.5")
	t.Setenv("RATE_BURST", "3")

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Idempotency
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBPath != "db.sqlite" || cfg.Timezone != "Europe/London" || cfg.CutoffHour != 4 || cfg.RetentionDays != 30 {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}
	if cfg.JWT.Secret != testSecret || cfg.JWT.Issuer != "https://id.example.com" {
		t.Fatalf("jwt unexpected: %+v", cfg.JWT)
	}
	if cfg.Redis != (RedisConfig{Addr: "redis:6379", Password: "pw", DB: 2}) || cfg.WSPingInterval != 5*time.Second {
		t.Fatalf("redis/ws unexpected: %+v %v", cfg.Redis, cfg.WSPingInterval)
	}
	wantRestaurants := map[string]string{"tulia": "Tulia Osteria", "harbour": ""}
	if !reflect.DeepEqual(cfg.Bootstrap.Restaurants, wantRestaurants) || cfg.Bootstrap.AdminUID != "owner" {
		t.Fatalf("bootstrap unexpected: %+v", cfg.Bootstrap)
	}
	if cfg.RateRPS != 0.5 || cfg.RateBurst != 3 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"unknown timezone", "APP_TIMEZONE", "Mars/Olympus", "APP_TIMEZONE"},
		{"cutoff out of range", "BUSINESS_DAY_CUTOFF_HOUR", "24", "BUSINESS_DAY_CUTOFF_HOUR"},
		{"retention non-positive", "RETENTION_DAYS", "0", "RETENTION_DAYS"},
		{"short jwt secret", "JWT_SECRET", "short", "JWT_SECRET"},
		{"negative redis db", "REDIS_DB", "-1", "REDIS_DB"},
		{"ws ping non-positive", "WS_PING_INTERVAL", "0s", "WS_PING_INTERVAL"},
		{"bootstrap empty id", "BOOTSTRAP_RESTAURANTS", "=Nameless", "BOOTSTRAP_RESTAURANTS"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", "IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			baseEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); !containsErr(err, "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoad_MalformedValuesAreReported(t *testing.T) {
	baseEnv(t)
	t.Setenv("RATE_RPS", "x")
	t.Setenv("RATE_BURST", "nope")
	t.Setenv("WS_PING_INTERVAL", "soon")
	t.Setenv("ENABLE_HSTS", "maybe")

	_, err := Load()
	for _, key := range []string{"RATE_RPS", "RATE_BURST", "WS_PING_INTERVAL", "ENABLE_HSTS"} {
		if !containsErr(err, key) {
			t.Errorf("error should name %s: %v", key, err)
		}
	}
}

// --- env reader ---

func fakeEnv(vars map[string]string) *env {
	return &env{lookup: func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}}
}

func TestEnv_TypedReads(t *testing.T) {
	e := fakeEnv(map[string]string{
		"EMPTY": "",
		"NAME":  "tulia",
		"RPS":   " 2.5 ",
		"HOUR":  "4",
		"PING":  "150ms",
	})
	if e.str("EMPTY", "d") != "d" || e.str("NAME", "d") != "tulia" || e.str("UNSET", "d") != "d" {
		t.Fatal("str defaults")
	}
	if e.float("RPS", 0) != 2.5 || e.int("HOUR", 0) != 4 || e.dur("PING", 0) != 150*time.Millisecond {
		t.Fatal("typed parse")
	}
	if e.int("UNSET", 7) != 7 || e.dur("EMPTY", time.Second) != time.Second {
		t.Fatal("typed defaults")
	}
	if len(e.errs) != 0 {
		t.Fatalf("unexpected errors: %v", e.errs)
	}
}

func TestEnv_BadValuesKeepDefaultAndRecord(t *testing.T) {
	e := fakeEnv(map[string]string{"I": "x", "F": "nope", "D": "zzz", "B": "perhaps"})
	if e.int("I", 7) != 7 || e.float("F", 1.25) != 1.25 || e.dur("D", 2*time.Second) != 2*time.Second || !e.bool("B", true) {
		t.Fatal("bad values should keep the default")
	}
	if len(e.errs) != 4 {
		t.Fatalf("errs = %v", e.errs)
	}
	if !strings.Contains(e.errs[0].Error(), `I: "x" is not a valid integer`) {
		t.Fatalf("message = %v", e.errs[0])
	}
}

func TestEnv_Bool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		if !fakeEnv(map[string]string{"B": v}).bool("B", false) {
			t.Errorf("bool(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "false", " no ", "N", "Off"} {
		if fakeEnv(map[string]string{"B": v}).bool("B", true) {
			t.Errorf("bool(%q) = true", v)
		}
	}
	if !fakeEnv(nil).bool("B", true) {
		t.Error("unset bool should keep the default")
	}
}

func TestEnv_Restaurants(t *testing.T) {
	e := fakeEnv(map[string]string{"R": "a=Alpha, b = Beta Bar ,c", "BAD": "x=X,=Nameless"})
	want := map[string]string{"a": "Alpha", "b": "Beta Bar", "c": ""}
	if got := e.restaurants("R"); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
	if got := e.restaurants("UNSET"); got != nil {
		t.Fatalf("unset = %v", got)
	}
	if e.restaurants("BAD"); len(e.errs) != 1 || !strings.Contains(e.errs[0].Error(), "empty id") {
		t.Fatalf("errs = %v", e.errs)
	}
}

func TestNormalizers(t *testing.T) {
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	if splitCSV("") != nil {
		t.Fatal("splitCSV empty should be nil")
	}
	for in, want := range map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1/": "/v1", "api/v1//": "/api/v1"} {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
	for in, want := range map[string]string{"Warning": "warn", " INFO ": "info"} {
		if got := logLevel(in); got != want {
			t.Errorf("logLevel(%q) = %q", in, got)
		}
	}
	for in, want := range map[string]string{"TEST": "test", "debug": "debug", "weird": "release"} {
		if got := ginMode(in); got != want {
			t.Errorf("ginMode(%q) = %q", in, got)
		}
	}
}

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "JWT_SECRET", "JWT_ISSUER", "REDIS_ADDR", "BOOTSTRAP_RESTAURANTS", "BOOTSTRAP_ADMIN_UID", "APP_TIMEZONE"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
