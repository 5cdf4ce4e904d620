package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLog redirects the global logger into a buffer for one test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes each JSON log line in buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

// accessLog returns the single access log line ("request") in buf.
func accessLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var found map[string]any
	for _, m := range logLines(t, buf) {
		if m["message"] == "request" {
			if found != nil {
				t.Fatalf("more than one access log:\n%s", buf.String())
			}
			found = m
		}
	}
	if found == nil {
		t.Fatalf("no access log:\n%s", buf.String())
	}
	return found
}

func loggedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(mw...)
	return r
}

// decodeErr decodes the JSON error envelope written by abortJSON or Recovery.
func decodeErr(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRequestID(t *testing.T) {
	r := loggedRouter()
	var seen string
	r.GET("/me", func(c *gin.Context) {
		v, _ := c.Get(requestIDKey)
		seen = asString(v)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if gen := w.Header().Get(requestIDHeader); gen == "" || gen != seen {
		t.Fatalf("generated id header=%q ctx=%q", gen, seen)
	}

	for _, name := range []string{requestIDHeader, strings.ToLower(requestIDHeader)} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(name, "rid-from-client")
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if got := w.Header().Get(requestIDHeader); got != "rid-from-client" || seen != "rid-from-client" {
			t.Fatalf("%s: header=%q ctx=%q", name, got, seen)
		}
	}
}

func TestLogger_ChecklistFields(t *testing.T) {
	buf := captureLog(t)
	r := loggedRouter(Logger())
	r.POST("/restaurants/:restId/checklists/:date/:shift/submit", func(c *gin.Context) {
		c.Set(ctxKeyUserID, "mgr-1")
		c.JSON(http.StatusOK, gin.H{"locked": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/restaurants/tulia/checklists/2024-06-01/close/submit", nil)
	req.Header.Set(requestIDHeader, "rid-submit")
	r.ServeHTTP(httptest.NewRecorder(), req)

	m := accessLog(t, buf)
	want := map[string]any{
		"level":         "info",
		"request_id":    "rid-submit",
		"method":        "POST",
		"path":          "/restaurants/:restId/checklists/:date/:shift/submit",
		"user_id":       "mgr-1",
		"restaurant_id": "tulia",
		"business_date": "2024-06-01",
		"shift":         "close",
		"status":        float64(200),
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %v; want %v", k, m[k], v)
		}
	}
	if _, ok := m["latency"]; !ok {
		t.Error("latency missing")
	}
}

func TestLogger_LevelsByOutcome(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		handler gin.HandlerFunc
		level   string
		logPath string
	}{
		{"ok", "/restaurants/tulia", func(c *gin.Context) { c.Status(http.StatusOK) }, "info", "/restaurants/:restId"},
		{"client error", "/restaurants/tulia", func(c *gin.Context) { c.Status(http.StatusForbidden) }, "warn", "/restaurants/:restId"},
		{"server error", "/restaurants/tulia", func(c *gin.Context) { c.Status(http.StatusInternalServerError) }, "error", "/restaurants/:restId"},
		{"gin error wins", "/restaurants/tulia", func(c *gin.Context) {
			_ = c.Error(errors.New("template missing"))
			c.Status(http.StatusBadRequest)
		}, "error", "/restaurants/:restId"},
		{"unmatched route", "/nowhere", nil, "warn", "/nowhere"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLog(t)
			r := loggedRouter(Logger())
			if tc.handler != nil {
				r.GET("/restaurants/:restId", tc.handler)
			}
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			m := accessLog(t, buf)
			if m["level"] != tc.level || m["path"] != tc.logPath {
				t.Fatalf("level=%v path=%v; want %s %s", m["level"], m["path"], tc.level, tc.logPath)
			}
		})
	}
}

func TestLogger_ScrubsWatchToken(t *testing.T) {
	buf := captureLog(t)
	r := loggedRouter(Logger())
	r.GET("/watch", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/watch?access_token=eyJhbGciOi.secret&v=2", nil))

	q, _ := accessLog(t, buf)["query"].(string)
	if strings.Contains(q, "eyJhbGciOi") || !strings.Contains(q, "v=2") || !strings.Contains(q, "REDACTED") {
		t.Fatalf("query logged as %q", q)
	}
}

func TestLogger_ContextLoggerReachesServices(t *testing.T) {
	buf := captureLog(t)
	r := loggedRouter(Logger())
	r.GET("/restaurants/:restId/settings", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("template loaded")
		LoggerFrom(c).Debug().Msg("handler detail")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/restaurants/tulia/settings", nil)
	req.Header.Set(requestIDHeader, "rid-ctx")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var svcLine map[string]any
	for _, m := range logLines(t, buf) {
		if m["message"] == "template loaded" {
			svcLine = m
		}
	}
	if svcLine == nil || svcLine["request_id"] != "rid-ctx" {
		t.Fatalf("service log missing request fields: %v", svcLine)
	}
}

func TestLoggerFrom_FallsBackToGlobal(t *testing.T) {
	buf := captureLog(t)
	r := loggedRouter()
	r.GET("/health", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("no access logger")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	lines := logLines(t, buf)
	if len(lines) != 1 || lines[0]["message"] != "no access logger" {
		t.Fatalf("lines = %v", lines)
	}
	if _, ok := lines[0]["request_id"]; ok {
		t.Fatal("global fallback should not carry request fields")
	}
}

func TestRecovery(t *testing.T) {
	t.Run("before write", func(t *testing.T) {
		buf := captureLog(t)
		r := loggedRouter(Logger(), Recovery())
		r.POST("/items/:itemId/toggle", func(c *gin.Context) { panic("nil item") })

		req := httptest.NewRequest(http.MethodPost, "/items/abc/toggle", nil)
		req.Header.Set(requestIDHeader, "rid-panic")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", w.Code)
		}
		body := decodeErr(t, w)
		if body["code"] != "internal_error" || body["request_id"] != "rid-panic" {
			t.Fatalf("body = %v", body)
		}
		var panicLine map[string]any
		for _, m := range logLines(t, buf) {
			if m["message"] == "panic recovered" {
				panicLine = m
			}
		}
		if panicLine == nil || panicLine["panic"] != "nil item" || panicLine["stack"] == nil {
			t.Fatalf("panic log = %v", panicLine)
		}
	})

	t.Run("after write", func(t *testing.T) {
		captureLog(t)
		r := loggedRouter(Logger(), Recovery())
		r.GET("/export", func(c *gin.Context) {
			c.String(http.StatusOK, "PK")
			panic("late")
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export", nil))
		if strings.Contains(w.Body.String(), "internal_error") {
			t.Fatalf("error envelope appended to a written body: %q", w.Body.String())
		}
	})
}

func TestTruncateAndAsString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"page=1", 10, "page=1"},
		{"page=1&pageSize=20", 6, "page=1…"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
	if asString("x") != "x" || asString(7) != "" || asString(nil) != "" {
		t.Fatal("asString")
	}
}
