package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactPII(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"plain", "page=2&pageSize=20", "page=2&pageSize=20"},
		{"email", "manager sam.k+ops@tulia.ca", "manager [REDACTED:email]"},
		{"phone", "call 416-555-0199", "call [REDACTED:phone]"},
		{"item id", "item=123e4567-e89b-12d3-a456-426614174000", "item=[REDACTED:id]"},
		{"date untouched", "date=2024-06-01", "date=2024-06-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := redactPII(tc.in); got != tc.want {
				t.Fatalf("redactPII(%q) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRedactingLogger_AccessLine(t *testing.T) {
	buf := captureLog(t)
	r := loggedRouter(RedactingLogger(RedactOptions{MaskHeaders: []string{" Idempotency-Key "}}))
	r.POST("/restaurants/:restId/checklists/:date/:shift/items/:itemId/toggle", func(c *gin.Context) {
		c.Set(ctxKeyUserID, "mgr-1")
		c.JSON(http.StatusOK, gin.H{"checked": true})
	})

	req := httptest.NewRequest(http.MethodPost,
		"/restaurants/tulia/checklists/2024-06-01/open/items/123e4567-e89b-12d3-a456-426614174000/toggle?note=sam@tulia.ca", nil)
	req.Header.Set("X-Request-ID", "rid-toggle")
	req.Header.Set("Authorization", "Bearer eyJ.secret")
	req.Header.Set("Cookie", "sid=abc")
	req.Header.Set(HeaderIdempotencyKey, "toggle-1")
	req.Header.Set("X-Device", "till 2, owner sam@tulia.ca")
	r.ServeHTTP(httptest.NewRecorder(), req)

	m := accessLog(t, buf)
	checks := map[string]any{
		"level":         "info",
		"request_id":    "rid-toggle",
		"user_id":       "mgr-1",
		"restaurant_id": "tulia",
		"business_date": "2024-06-01",
		"shift":         "open",
		"path":          "/restaurants/:restId/checklists/:date/:shift/items/:itemId/toggle",
		"query":         "note=[REDACTED:email]",
	}
	for k, v := range checks {
		if m[k] != v {
			t.Errorf("%s = %v; want %v", k, m[k], v)
		}
	}

	headers, _ := m["headers"].(map[string]any)
	for _, h := range []string{"Authorization", "Cookie", "Idempotency-Key"} {
		if headers[h] != "[REDACTED]" {
			t.Errorf("%s = %v; want masked", h, headers[h])
		}
	}
	if headers["X-Device"] != "till 2, owner [REDACTED:email]" {
		t.Errorf("X-Device = %v", headers["X-Device"])
	}
	if strings.Contains(buf.String(), "eyJ.secret") {
		t.Fatalf("bearer token leaked:\n%s", buf.String())
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	for status, level := range map[int]string{
		http.StatusOK:                  "info",
		http.StatusConflict:            "warn",
		http.StatusInternalServerError: "error",
	} {
		buf := captureLog(t)
		r := loggedRouter(RedactingLogger(RedactOptions{}))
		r.POST("/submit", func(c *gin.Context) { c.Status(status) })
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/submit", nil))

		if got := accessLog(t, buf)["level"]; got != level {
			t.Errorf("status %d logged at %v; want %s", status, got, level)
		}
	}
}

func TestRedactingLogger_RequestIDFromClientHeader(t *testing.T) {
	buf := captureLog(t)
	gin.SetMode(gin.TestMode)
	r := gin.New() // no RequestID middleware in front
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "rid-client")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := accessLog(t, buf)["request_id"]; got != "rid-client" {
		t.Fatalf("request_id = %v", got)
	}
}

func TestRedactingLogger_WatchTokenAndScopedLogger(t *testing.T) {
	buf := captureLog(t)
	r := loggedRouter(RedactingLogger(RedactOptions{}))
	r.GET("/watch", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("subscribed")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/watch?access_token=eyJsecret", nil)
	req.Header.Set("X-Request-ID", "rid-ws")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), "eyJsecret") {
		t.Fatalf("token leaked:\n%s", buf.String())
	}
	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, m := range lines {
		if m["request_id"] != "rid-ws" {
			t.Fatalf("line without request id: %v", m)
		}
	}
}
