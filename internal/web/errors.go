package web

// errors.go maps service errors to HTTP responses.
//
// Every error is logged with full detail server-side and returned to the
// client as a stable machine-readable code plus a human-readable message.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bandvault/bandvault/internal/imports"
	"github.com/bandvault/bandvault/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs err and writes the mapped JSON error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err,
		"request_id", chimw.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// mapError translates a service error to status, code and client message.
func mapError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, imports.ErrNotFound):
		return http.StatusNotFound, "OPERATION_NOT_FOUND",
			"import operation not found"
	case errors.Is(err, imports.ErrFileNotAvailable):
		return http.StatusConflict, "FILE_NOT_AVAILABLE",
			"import file is not available until the operation completes"
	case errors.Is(err, imports.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT",
			"file format is not supported"
	case errors.Is(err, imports.ErrEmptyFile):
		return http.StatusBadRequest, "EMPTY_FILE",
			"uploaded file is empty"
	case errors.Is(err, imports.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			"uploaded file exceeds the size limit"
	}

	var badReq *badRequestError
	if errors.As(err, &badReq) {
		return http.StatusBadRequest, "BAD_REQUEST", badReq.Error()
	}

	return http.StatusInternalServerError, "INTERNAL", "internal server error"
}

// badRequestError marks a client error raised while decoding the request
// itself, before the service is involved.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing left to do but log.
		slog.Error("json encode failed", "error", err)
	}
}
