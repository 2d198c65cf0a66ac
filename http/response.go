package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	astrocloud "github.com/jbcurtin/astro-cloud"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMapping is one row of the sentinel to status table. A mapping with
// exposeDetail echoes err.Error() to the caller.
type errorMapping struct {
	target       error
	status       int
	code         string
	message      string
	exposeDetail bool
}

var errorMappings = []errorMapping{
	{target: astrocloud.ErrNotFound, status: http.StatusNotFound, code: "not_found", message: "Object not found"},
	{target: astrocloud.ErrInvalidInput, status: http.StatusBadRequest, code: "invalid_path", message: "Invalid path"},
	{target: astrocloud.ErrUnauthorized, status: http.StatusForbidden, code: "unauthorized", exposeDetail: true},
	{target: astrocloud.ErrNotImplemented, status: http.StatusNotImplemented, code: "not_implemented", exposeDetail: true},
}

// WriteError writes an ErrorResponse with status code.
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	if err := WriteJSON(w, code, ErrorResponse{Error: errCode, Message: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError maps err onto a status and error code. Unknown errors are
// logged and answered with 500 without detail.
func HandleError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if m.exposeDetail {
			message = err.Error()
		}
		if m.status == http.StatusForbidden {
			slog.Warn("request rejected", "error", err)
		}
		WriteError(w, m.status, m.code, message)
		return
	}

	slog.Error("request error", "error", err)
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// WriteJSON encodes data as the response body.
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
