package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/commitsense/commitsense/domain/ingest"
	"github.com/commitsense/commitsense/domain/project"
	"github.com/commitsense/commitsense/internal/database"
)

// ErrInvalidArgument marks request decoding and parameter errors so they
// map to 400 instead of 500.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError maps an error to an HTTP status and writes a JSON error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, project.ErrInvalidRemoteURL), errors.Is(err, ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ingest.ErrAlreadyRunning):
		status = http.StatusConflict
	case ingest.IsAuth(err):
		// Credentials rejected by the hosting provider, not by us.
		status = http.StatusBadGateway
	}

	requestID := middleware.GetReqID(r.Context())

	if logger != nil {
		logger.Error("request error",
			"request_id", requestID,
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	WriteJSON(w, status, ErrorResponse{Error: err.Error(), RequestID: requestID})
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
