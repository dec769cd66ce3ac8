package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tartampluch/hebday/internal/auth"
	"github.com/tartampluch/hebday/internal/calendar"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
	"github.com/tartampluch/hebday/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeLogOnly(err)
	}
}

// writeError maps domain errors to HTTP statuses. Unknown errors are logged
// and hidden behind a generic 500.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error(config.HTTPMsgInternalErr,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		msg = config.HTTPMsgInternalErr
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, records.ErrInvalidRecord),
		errors.Is(err, engine.ErrInvalidHebrewDate),
		errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrUnknownMonth):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrProjectionExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrConversionUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errBadRequest marks malformed input that has no domain sentinel.
var errBadRequest = errors.New(config.HTTPMsgBadRequest)

func writeLogOnly(err error) {
	slog.Error(config.ErrWriteResp,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyError, err,
	)
}
