// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them instead of
// on messages. Every error response carries one of them in ErrorResponse.Code.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "shift_locked",
//	  "message": "shift is locked"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeProfileNotFound = "profile_not_found"
	ErrCodeShiftLocked     = "shift_locked"
	ErrCodeAlreadyLocked   = "already_locked"
	ErrCodePersistence     = "persistence_failure"
	ErrCodeExportFailed    = "export_failed"
)
