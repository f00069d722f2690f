// Package httperror renders service errors as the API's error envelope and
// maps them to HTTP status codes.
package httperror

import (
	"errors"
	"net/http"

	"github.com/fintrack-app/backend/internal/exchange"
	"github.com/fintrack-app/backend/internal/models"
	"github.com/fintrack-app/backend/internal/remote"
	"github.com/fintrack-app/backend/internal/services"
	"github.com/fintrack-app/backend/internal/session"
)

type Error struct {
	Message string `json:"error" example:"replacement category required"`
}

func New(e error) Error {
	return Error{
		Message: e.Error(),
	}
}

func NewFromString(s string) Error {
	return Error{
		Message: s,
	}
}

// Status returns the HTTP status code for an error from the service layer.
func Status(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized

	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, models.ErrInvalidKind),
		errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrCategoryRequired),
		errors.Is(err, services.ErrAmountNotPositive),
		errors.Is(err, services.ErrKindImmutable),
		errors.Is(err, services.ErrReplacementRequired),
		errors.Is(err, services.ErrKindMismatch),
		errors.Is(err, services.ErrDefaultCategory),
		errors.Is(err, services.ErrMergeSelf),
		errors.Is(err, exchange.ErrMissingHeader),
		errors.Is(err, exchange.ErrEmptyFile):
		return http.StatusBadRequest
	}

	// Remote errors keep their status so rate limits surface as 429 once the
	// retries are exhausted.
	var rErr *remote.Error
	if errors.As(err, &rErr) && rErr.Status >= http.StatusBadRequest {
		return rErr.Status
	}

	return http.StatusInternalServerError
}
