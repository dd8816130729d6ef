package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mihailsb/docsync/internal/api"
	"github.com/mihailsb/docsync/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}

// writeServiceError maps the shared error taxonomy onto HTTP statuses. The
// client's status mapper is the inverse of this table, so the two must stay
// in sync. Expired tokens keep their exact sentinel message: the client
// distinguishes "refresh and retry" from "re-login" by it.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, common.ErrTokenExpired.Error())
	case errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version conflict")
	case errors.Is(err, common.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidSyncID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrSyncNotPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
