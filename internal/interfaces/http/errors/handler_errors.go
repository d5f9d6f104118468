package errors

import (
	"errors"
	"net/http"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
)

func getStatus(err domain.Error) int {
	switch err.GetCode() {
	case domain.ErrClientNotFound.GetCode():
		return http.StatusNotFound
	case domain.ErrClientExpired.GetCode():
		return http.StatusForbidden
	case domain.ErrRateLimited.GetCode():
		return http.StatusTooManyRequests
	case domain.ErrUpstreamUnavailable.GetCode():
		return http.StatusBadGateway
	case domain.ErrStoreUnavailable.GetCode():
		return http.StatusServiceUnavailable
	case domain.ErrDatabaseQuery.GetCode(),
		domain.ErrTenantUnresolved.GetCode(),
		domain.ErrInternal.GetCode():
		return http.StatusInternalServerError
	}

	var upstream *domain.UpstreamStatusError
	if errors.As(err, &upstream) {
		if upstream.IsClientError() {
			return upstream.StatusCode
		}
		return http.StatusBadGateway
	}

	return http.StatusBadRequest
}

// StatusOf returns the HTTP status err maps to
func StatusOf(err error) int {
	return getStatus(domain.AsError(err))
}

// RespondWithError sends a standardized error response. A refusal from the
// authorization server is relayed with its own status and body.
func RespondWithError(w http.ResponseWriter, err error) {
	var upstream *domain.UpstreamStatusError
	if errors.As(err, &upstream) && upstream.IsClientError() && len(upstream.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(upstream.StatusCode)
		w.Write(upstream.Body)
		return
	}

	de := domain.AsError(err)
	writeJSON(w, getStatus(de), ErrorResponse{
		Code:    de.GetCode(),
		Message: de.GetMessage(),
		Details: DetailsOf(err),
	})
}

// RespondErrorWithDetails sends a standardized error response with details
func RespondErrorWithDetails(w http.ResponseWriter, err domain.Error, details []ErrorDetail) {
	writeJSON(w, getStatus(err), ErrorResponse{
		Code:    err.GetCode(),
		Message: err.GetMessage(),
		Details: details,
	})
}
