// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"closer_scheduling_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Kind    string      `json:"kind,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError maps domain errors to HTTP responses.
// Wrapped *apperr.Error values are unwrapped and mapped by Kind; anything else
// is an unexpected failure and becomes a 500 without leaking its message.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Kind:    KindName(domainErr.Kind),
			Details: domainErr.Details,
		})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	return true
}

// KindName is the stable wire name of an error kind.
func KindName(kind apperr.Kind) string {
	switch kind {
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindValidation:
		return "validation"
	case apperr.KindCapacityExceeded:
		return "capacity_exceeded"
	case apperr.KindDuplicateBlocked:
		return "duplicate_blocked"
	case apperr.KindConcurrencyConflict:
		return "concurrency_conflict"
	case apperr.KindExternalEmission:
		return "external_emission"
	case apperr.KindForbidden:
		return "forbidden"
	case apperr.KindUnauthorized:
		return "unauthorized"
	case apperr.KindBadRequest:
		return "bad_request"
	case apperr.KindInternal:
		return "internal"
	default:
		return ""
	}
}
