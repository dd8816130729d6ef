package common

import "errors"

// Sentinel errors shared by client and server layers. Callers match them with
// errors.Is; the retry manager's classifier is built on top of this set.
var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrVersionConflict is returned by the remote store when an update's
	// expected version does not match the stored version. It is never retried
	// as a plain failure; the coordinator routes it to conflict detection.
	ErrVersionConflict = errors.New("version conflict")

	// ErrServerUnavailable marks 5xx-equivalent remote failures. Transient.
	ErrServerUnavailable = errors.New("server unavailable")

	// Validation errors. Fatal immediately, never retried.
	ErrValidation    = errors.New("validation error")
	ErrInvalidSyncID = errors.New("invalid sync identifier")

	// ErrSyncNotPermitted reports a gating denial. Not a failure: the
	// operation is routed to the local-only state instead of being retried.
	ErrSyncNotPermitted = errors.New("cloud sync not permitted")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
