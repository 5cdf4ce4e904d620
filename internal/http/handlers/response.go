// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint: the error
// envelope, fail/Fail, mapErr for service errors, ok and noContent.
//
// Example error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "already_locked",
//	  "message": "shift already submitted"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"shift_locked"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"shift is locked"`
}

// fail aborts the request with a structured error. Server errors (>= 500) are
// logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, used by the router for NoRoute and
// NoMethod.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// mapErr translates a service error into its HTTP status and code. Anything
// unrecognized is a persistence failure and is surfaced verbatim.
func mapErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, services.ErrProfileNotFound):
		fail(c, http.StatusForbidden, ErrCodeProfileNotFound, err.Error())
	case errors.Is(err, services.ErrRestaurantNotFound),
		errors.Is(err, services.ErrShiftNotFound),
		errors.Is(err, services.ErrItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrShiftLocked):
		fail(c, http.StatusConflict, ErrCodeShiftLocked, err.Error())
	case errors.Is(err, services.ErrAlreadyLocked):
		fail(c, http.StatusConflict, ErrCodeAlreadyLocked, err.Error())
	case errors.Is(err, services.ErrInvalidShift),
		errors.Is(err, bizdate.ErrInvalidDate),
		errors.Is(err, services.ErrInvalidLockTime),
		errors.Is(err, bizdate.ErrInvalidLockTime),
		errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrIndexOutOfRange),
		errors.Is(err, services.ErrUnknownEditOp):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrExportFailed):
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodePersistence, err.Error())
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
