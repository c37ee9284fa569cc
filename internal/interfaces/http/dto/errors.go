package dto

import (
	"errors"
	"net/http"

	"github.com/salepoint/backend/internal/domain/shared"
)

// General error codes used at the HTTP boundary for failures that never
// reached the domain.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_FAILED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

// statusByCode overrides the kind-based status for codes with a more specific
// HTTP meaning.
var statusByCode = map[string]int{
	"NOT_FOUND":            http.StatusNotFound,
	"UNAUTHORIZED":         http.StatusUnauthorized,
	"FORBIDDEN":            http.StatusForbidden,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
}

// MapDomainError translates an error into an HTTP status and a response body.
// Validation errors become 400, state conflicts 422, infrastructure faults
// 500; a handful of codes carry their conventional status instead.
func MapDomainError(err error) (int, Response) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError,
			NewErrorResponse(ErrCodeInternal, "An unexpected error occurred")
	}

	if status, ok := statusByCode[domainErr.Code]; ok {
		return status, NewErrorResponse(domainErr.Code, domainErr.Message)
	}

	switch domainErr.Kind {
	case shared.KindValidation:
		return http.StatusBadRequest, NewErrorResponse(domainErr.Code, domainErr.Message)
	case shared.KindStateConflict:
		return http.StatusUnprocessableEntity, NewErrorResponse(domainErr.Code, domainErr.Message)
	default:
		return http.StatusInternalServerError, NewErrorResponse(domainErr.Code, domainErr.Message)
	}
}
