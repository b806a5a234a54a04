package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
)

// jsonResponse writes the given data as a JSON-encoded HTTP response.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes a service error as JSON, carrying the stable error code so
// clients can branch on it instead of parsing messages.
func jsonError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  core.Code(err),
	})
}

// serviceError maps domain sentinels onto HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTokenMalformed), errors.Is(err, core.ErrValidation):
		jsonError(w, http.StatusBadRequest, err)
	case errors.Is(err, core.ErrTokenNotFound), errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrShiftClosed):
		jsonError(w, http.StatusUnauthorized, err)
	case errors.Is(err, core.ErrForbidden):
		jsonError(w, http.StatusForbidden, err)
	case errors.Is(err, core.ErrOrderNotFound), errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrTableNotFound), errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrUserNotFound), errors.Is(err, core.ErrShiftNotOpen):
		jsonError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrIllegalTransition):
		jsonError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrShiftConflict):
		jsonError(w, http.StatusConflict, err)
	case errors.Is(err, core.ErrOrderClosed), errors.Is(err, core.ErrTableClosed):
		jsonError(w, http.StatusGone, err)
	default:
		jsonError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// principal pulls the authenticated caller set by the middleware; a miss means
// the route was wired without RequireAuth.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, found := core.PrincipalFrom(r.Context())
	if !found {
		jsonError(w, http.StatusUnauthorized, core.ErrTokenNotFound)
		return models.Principal{}, false
	}
	return p, true
}
