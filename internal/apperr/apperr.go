// Package apperr holds the root error sentinels shared by every component.
// Domain packages wrap these so callers can branch on either the specific
// failure or its class with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation covers bad stage names, illegal transitions and writes to
	// locked resources. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a candidate, offer or row is missing.
	ErrNotFound = errors.New("not found")
	// ErrStoreWrite wraps failures returned by the record store on writes.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStageExecution marks an ingestion stage that failed.
	ErrStageExecution = errors.New("stage execution failed")
	// ErrSideEffect marks a best-effort side effect that failed after the
	// primary state change was committed.
	ErrSideEffect = errors.New("side effect failed")
)

// HTTPStatus maps an error onto the status code the REST surface returns.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStageExecution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStoreWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStageExecution):
		return "stage_execution_error"
	case errors.Is(err, ErrStoreWrite):
		return "store_write_error"
	case errors.Is(err, ErrSideEffect):
		return "side_effect_error"
	default:
		return "internal_error"
	}
}
