package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-dispatch/internal/db"
	"github.com/ukydev/fleet-dispatch/internal/lifecycle"
	"github.com/ukydev/fleet-dispatch/internal/pricing"
	"github.com/ukydev/fleet-dispatch/internal/registry"
	"github.com/ukydev/fleet-dispatch/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// errorStatus maps a domain error to its HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrLockedPeriod):
		return http.StatusLocked, "locked_period"
	case errors.Is(err, lifecycle.ErrTripClosed):
		return http.StatusConflict, "trip_closed"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, service.ErrCodeImmutable):
		return http.StatusConflict, "code_immutable"
	case errors.Is(err, db.ErrVersionConflict):
		return http.StatusConflict, "version_conflict"
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, db.ErrInvalidID):
		return http.StatusBadRequest, "invalid_id"
	case errors.Is(err, registry.ErrMissingResource):
		return http.StatusUnprocessableEntity, "missing_resource"
	case errors.Is(err, pricing.ErrNoRoute), errors.Is(err, pricing.ErrNoRouteRates):
		return http.StatusUnprocessableEntity, "no_route_price"
	case errors.Is(err, lifecycle.ErrActorRequired):
		return http.StatusUnprocessableEntity, "actor_required"
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity, "validation"
	}
	return http.StatusInternalServerError, ""
}

// writeServiceError reports err to the client. Unmapped errors are logged and
// hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("request failed")
		writeError(w, status, "internal server error")
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
