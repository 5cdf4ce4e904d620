// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. A request is admitted
// only when its token verifies, has not been revoked, and maps to a user
// profile. The resolved principal is stored in the Gin context for handlers.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

// Context keys set by Authenticate.
const (
	ctxKeyUserID    = "userID"
	ctxKeyIdentity  = "identity"
	ctxKeyPrincipal = "principal"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// PrincipalResolver maps a verified identity onto its profile.
type PrincipalResolver func(ctx context.Context, id *auth.Identity) (*services.Principal, error)

// Authenticate returns a middleware that requires "Authorization: Bearer".
// Websocket upgrades may pass the token as the access_token query parameter
// instead, since browsers cannot set headers on them.
//
// Responses:
//   - 401 unauthorized: missing, malformed, expired or revoked token
//   - 403 profile_not_found: valid identity without a profile
//   - 500 internal_error: revocation or profile lookup failed
func Authenticate(v TokenVerifier, rev auth.Revoker, resolve PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		id, err := v.Verify(token)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := c.Request.Context()
		if rev != nil && id.TokenID != "" {
			revoked, err := rev.IsRevoked(ctx, id.TokenID)
			if err != nil {
				LoggerFrom(c).Error().Err(err).Msg("revocation lookup failed")
				abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			if revoked {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "token revoked")
				return
			}
		}

		p, err := resolve(ctx, id)
		switch {
		case errors.Is(err, services.ErrProfileNotFound):
			abortJSON(c, http.StatusForbidden, "profile_not_found", "no user profile for this account")
			return
		case err != nil:
			LoggerFrom(c).Error().Err(err).Str("uid", id.UID).Msg("resolve principal failed")
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		c.Set(ctxKeyUserID, id.UID)
		c.Set(ctxKeyIdentity, id)
		c.Set(ctxKeyPrincipal, p)

		lg := LoggerFrom(c).With().Str("user_id", id.UID).Logger()
		attachLogger(c, &lg)

		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate, or nil.
func PrincipalFrom(c *gin.Context) *services.Principal {
	if v, ok := c.Get(ctxKeyPrincipal); ok {
		if p, ok := v.(*services.Principal); ok {
			return p
		}
	}
	return nil
}

// IdentityFrom returns the verified identity stored by Authenticate, or nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(ctxKeyIdentity); ok {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return nil
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if h == "" && c.IsWebsocket() {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

// abortJSON writes the standard error envelope from middleware, which cannot
// import the handlers package.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
