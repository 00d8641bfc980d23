package api

import (
	"errors"
	"net/http"

	"github.com/mazdak/triaged/internal/adapters/repository"
	service "github.com/mazdak/triaged/internal/app"
)

// statusFor translates service and store errors into HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrIllegal),
		errors.Is(err, service.ErrAlreadyAnalyzing):
		return http.StatusConflict
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrMissingEventID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
