// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. The constants here are a stable, machine-readable taxonomy that
// supplements human-readable messages; handlers pick the most specific
// matching code and pass it to fail() with the corresponding status.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes (bad_request, not_found, conflict) mirror HTTP status
//     semantics.
//   - Domain-specific codes (transition_failed, export_failed) cover
//     business errors a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeTransitionFailed = "transition_failed"
	ErrCodeCostFailed       = "cost_failed"
	ErrCodeExportFailed     = "export_failed"
	ErrCodeGatewayFailed    = "gateway_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
