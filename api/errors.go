package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/recur"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recur.ErrInvalidInput),
		errors.Is(err, recur.ErrInvalidRecipient),
		errors.Is(err, recur.ErrArithmeticOverflow):
		return http.StatusBadRequest
	case recur.IsAuthError(err):
		return http.StatusForbidden
	case recur.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, recur.ErrDuplicateTenant),
		errors.Is(err, recur.ErrIdentifierCollision),
		errors.Is(err, recur.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, recur.ErrInsufficientDeposit):
		return http.StatusPaymentRequired
	case errors.Is(err, recur.ErrInsufficientContractBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, recur.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, recur.ErrHostNotConfigured),
		errors.Is(err, recur.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}
