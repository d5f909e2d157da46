// Package api provides HTTP handlers for the Relay server REST API.
package api

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/coregx/relay"
	"github.com/coregx/relay/model"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	publisher *relay.Publisher
	logger    relay.Logger
}

// NewHandler creates a new API handler.
func NewHandler(publisher *relay.Publisher, logger relay.Logger) *Handler {
	return &Handler{
		publisher: publisher,
		logger:    logger,
	}
}

// PublishRequest represents a relay publish request body.
type PublishRequest struct {
	ClientID string                 `json:"clientId"`
	Message  string                 `json:"message"`
	Meta     map[string]interface{} `json:"meta"`
}

// RelayLogResponse represents a relay log in API responses.
type RelayLogResponse struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"clientId"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Message        string          `json:"message"`
	Meta           json.RawMessage `json:"meta"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	MaxAttempts    int             `json:"maxAttempts"`
	NextRetryAt    *time.Time      `json:"nextRetryAt"`
	CompletedAt    *time.Time      `json:"completedAt"`
	Error          *string         `json:"error"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// HandlePublish handles POST /api/v1/relay/publish
//
// The caller authenticates with the X-API-Key header. An optional
// X-Idempotency-Key header dedups retried submissions: replaying a known key
// returns the existing record with 200 instead of 201.
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	meta := ""
	if req.Meta != nil {
		encoded, err := json.Marshal(req.Meta)
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "meta must be a JSON object")
			return
		}
		meta = string(encoded)
	}

	result, err := h.publisher.Publish(r.Context(), relay.PublishRequest{
		ClientID:       req.ClientID,
		Message:        req.Message,
		Meta:           meta,
		APIKey:         r.Header.Get("X-API-Key"),
		IdempotencyKey: r.Header.Get("X-Idempotency-Key"),
		RemoteAddr:     remoteAddr(r),
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replay {
		status = http.StatusOK
	}
	h.respondJSON(w, status, toLogResponse(result.Log))
}

// HandleGetLog handles GET /api/v1/relay/logs/:id
func (h *Handler) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	// Extract log ID from path (simple parsing)
	// In production, use a router like gorilla/mux or chi
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 5 || parts[len(parts)-1] == "" {
		h.respondError(w, r, http.StatusBadRequest, "INVALID_ID", "Invalid relay log ID")
		return
	}
	logID := parts[len(parts)-1]

	rl, err := h.publisher.GetLog(r.Context(), r.Header.Get("X-API-Key"), logID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toLogResponse(*rl))
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
	})
}

// respondDomainError maps domain errors onto HTTP status codes.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case relay.IsValidation(err):
		h.respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case relay.IsAuthentication(err):
		h.respondError(w, r, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid or missing API key")
	case relay.IsAuthorization(err):
		h.respondError(w, r, http.StatusForbidden, "AUTHORIZATION_ERROR", "API key does not match client")
	case relay.IsNotFound(err), relay.IsNoData(err):
		h.respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Relay log not found")
	case relay.IsRateLimited(err):
		h.respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, please try again later")
	default:
		h.logger.Errorf("Internal error handling %s %s: %v", r.Method, r.URL.Path, err)
		h.respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// respondError sends an error response with a request ID for correlation.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = newRequestID()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID,
	})
}

// respondJSON sends a JSON response.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// toLogResponse converts a relay log model into its API shape.
func toLogResponse(rl model.RelayLog) RelayLogResponse {
	resp := RelayLogResponse{
		ID:             rl.ID,
		ClientID:       rl.ClientID,
		IdempotencyKey: rl.IdempotencyKey,
		Message:        rl.Message,
		Status:         string(rl.Status),
		Attempts:       rl.Attempts,
		MaxAttempts:    rl.MaxAttempts,
		CreatedAt:      rl.CreatedAt,
		UpdatedAt:      rl.UpdatedAt,
	}
	if rl.Meta != "" {
		resp.Meta = json.RawMessage(rl.Meta)
	}
	if rl.NextRetryAt.Valid {
		t := rl.NextRetryAt.Time
		resp.NextRetryAt = &t
	}
	if rl.CompletedAt.Valid {
		t := rl.CompletedAt.Time
		resp.CompletedAt = &t
	}
	if rl.Error.Valid {
		s := rl.Error.String
		resp.Error = &s
	}
	return resp
}

// remoteAddr strips the port from the request's remote address.
func remoteAddr(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx > 0 {
		addr = addr[:idx]
	}
	return addr
}

// newRequestID generates a correlation ID for error responses.
func newRequestID() string {
	return fmt.Sprintf("req_%d_%06d", time.Now().UnixMilli(), rand.Intn(1000000))
}
