package httpauth

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
)

var unauthorized = []error{
	common.ErrNoToken,
	common.ErrNoRefreshToken,
	common.ErrRevokedToken,
	common.ErrTokenSubjectMismatch,
	common.ErrInvalidToken,
	common.ErrInvalidRefreshToken,
	common.ErrorUnauthorized,
}

var known = append(append([]error{}, unauthorized...),
	common.ErrorForbidden,
	common.ErrInfrastructure,
	common.ErrorValidation,
	common.ErrorNotFound,
	common.ErrorAlreadyExists,
)

// StatusFor maps an auth error to the HTTP status the client sees.
func StatusFor(err error) int {
	for _, s := range unauthorized {
		if errors.Is(err, s) {
			return http.StatusUnauthorized
		}
	}
	switch {
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrInfrastructure):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Message returns the text of the sentinel err wraps. Causes stay in the logs.
func Message(err error) string {
	for _, s := range known {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return common.ErrorInternal.Error()
}

// WriteError answers with the envelope for err.
func WriteError(w http.ResponseWriter, err error) {
	httpx.Error(w, StatusFor(err), Message(err))
}
