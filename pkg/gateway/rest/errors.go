package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/snamp-platform/snamp-go/pkg/wire"
)

// Gateway error codes. Domain failures use the wire status names
// (NOT_FOUND, TYPE_MISMATCH, TIMEOUT, ...).
const (
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotAcceptable      = "NOT_ACCEPTABLE"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// respondJSON writes data as a JSON body.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	s.respondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// writeStatusError maps a core error to its HTTP status and wire code.
func (s *Server) writeStatusError(w http.ResponseWriter, r *http.Request, err error, details map[string]any) {
	status := wire.StatusFromError(err)
	code := httpStatus(status)
	if code >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			"requestID", RequestID(r.Context()),
			"path", r.URL.Path,
			"status", status.String(),
			"error", err)
	}
	s.writeError(w, r, code, status.String(), err.Error(), retryable(status), details)
}

// httpStatus returns the HTTP status of a wire status.
func httpStatus(s wire.Status) int {
	switch s {
	case wire.StatusSuccess:
		return http.StatusOK
	case wire.StatusNotFound:
		return http.StatusNotFound
	case wire.StatusTypeMismatch, wire.StatusInvalidRequest, wire.StatusUnsupported:
		return http.StatusBadRequest
	case wire.StatusNotWritable, wire.StatusNotReadable:
		return http.StatusMethodNotAllowed
	case wire.StatusTimeout:
		return http.StatusGatewayTimeout
	case wire.StatusConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func retryable(s wire.Status) bool {
	return s == wire.StatusTimeout || s == wire.StatusConnection
}
