package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"cashledger/internal/backup"
	"cashledger/internal/core"
	applog "cashledger/internal/log"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// errBadRequest marks request bodies or parameters that could not be parsed.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoSession), errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound), errors.Is(err, backup.ErrNoBackup), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateID), errors.Is(err, core.ErrAccountExists), errors.Is(err, core.ErrMalformedRecord):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, backup.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error body. Internal errors are logged
// and never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		body.Error = "validation failed"
		body.Fields = make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			if _, seen := body.Fields[f.Field]; !seen {
				body.Fields[f.Field] = f.Err.Error()
			}
		}
	case status == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Basic realm="cashledger", charset="UTF-8"`)
		body.Error = "authentication required"
		if errors.Is(err, core.ErrInvalidCredentials) {
			body.Error = core.ErrInvalidCredentials.Error()
		}
	case status == http.StatusInternalServerError:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}
