// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe requests such as shift
// submission. It validates an Idempotency-Key header, asks a lookup whether
// the same user already completed the same operation on the same scope, and
// annotates the request so downstream handlers can:
//   - read the normalized key (GetIdempotencyKey)
//   - read the operation scope (GetIdempotencyScope)
//   - detect replayed requests (IsReplay)
//
// Persistence stays behind the IdempotencyLookup function type.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to convey a key for
// unsafe operations. The value must be stable across retries.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// GetIdempotencyScope returns the scope the key was checked against.
func GetIdempotencyScope(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemScope)
	s, _ := v.(string)
	return s
}

// IsReplay reports whether the middleware found a completed operation for
// (user, scope, key). Handlers may then skip the mutation and serve the
// current state instead.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation for IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// Scope derives the operation scope from the request. Defaults to
	// ShiftScope.
	Scope func(c *gin.Context) string
}

// IdempotencyLookup answers whether a still-valid completed operation exists
// for (userID, scope, key) at now. TTL is enforced by the implementation.
// Errors are logged and treated as "not found".
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (exists bool, err error)

// ShiftScope builds "restId/date/shift" from the route parameters. It returns
// "" on routes that do not address a shift.
func ShiftScope(c *gin.Context) string {
	rid, date, shift := c.Param("restId"), c.Param("date"), c.Param("shift")
	if rid == "" || date == "" || shift == "" {
		return ""
	}
	return strings.Join([]string{rid, date, shift}, "/")
}

// IdempotencyValidator validates the Idempotency-Key header, if present, and
// marks replays detected by lookup.
//
// Behavior:
//   - Header absent: no-op.
//   - Header invalid: 400 bad_idempotency_key.
//   - Unauthenticated request or no scope: key is stashed, lookup skipped.
//   - Lookup hit: sets the replay and rate-bypass flags.
//
// It must run after Authenticate so the user ID is known.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = ShiftScope
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		c.Set(ctxKeyIdemKey, key)
		scope := scopeOf(c)
		c.Set(ctxKeyIdemScope, scope)

		uid := userIDFromCtx(c)
		if lookup != nil && uid != "" && scope != "" {
			exists, err := lookup(c.Request.Context(), uid, scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			}
			if exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// userIDFromCtx returns the user ID set by Authenticate, or "".
func userIDFromCtx(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
