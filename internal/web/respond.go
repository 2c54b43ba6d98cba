package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/obras/internal/domain"
	"github.com/vbonduro/obras/internal/report"
)

const (
	maxJSONBody = 1 << 20

	// degradedHeader marks a list response served empty because the
	// collection could not be read.
	degradedHeader = "X-Storage-Degraded"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Partial bool              `json:"partial,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json failed", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeError maps err onto a status code. msg is what the client sees for
// server-side failures; the underlying error is only logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *domain.ValidationError
	var partial *domain.PartialFailure
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	case errors.Is(err, report.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case errors.As(err, &partial):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg, Partial: true})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
	}
	s.logger.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// degraded reports whether err is a failed collection read, in which case
// the list is served empty and flagged instead of failing the request.
func (s *Server) degraded(w http.ResponseWriter, err error) bool {
	var rerr *domain.StorageReadError
	if !errors.As(err, &rerr) {
		return false
	}
	s.logger.Warn("serving empty list after read failure", "collection", rerr.Collection, "error", err)
	w.Header().Set(degradedHeader, "true")
	return true
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
