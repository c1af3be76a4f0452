// Package api provides the HTTP relay in front of the gateway client.
// Callers post a method name and parameters; the relay signs and forwards the
// call and reports the decoded response or the gateway error.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexbotov/alidayu/internal/audit"
	"github.com/alexbotov/alidayu/internal/auth"
	"github.com/alexbotov/alidayu/internal/log"
	"github.com/alexbotov/alidayu/internal/metrics"
	"github.com/alexbotov/alidayu/pkg/alidayu"
)

// Handler contains all HTTP handlers
type Handler struct {
	client   *alidayu.Client
	auth     *auth.Service
	audit    *audit.Service
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   log.Logger
}

// New creates a new API handler. auditSvc may be nil when no database is
// configured.
func New(client *alidayu.Client, authSvc *auth.Service, auditSvc *audit.Service, m *metrics.Metrics, logger log.Logger) *Handler {
	return &Handler{
		client:   client,
		auth:     authSvc,
		audit:    auditSvc,
		metrics:  m,
		gatherer: prometheus.DefaultGatherer,
		logger:   logger.Named("api"),
	}
}

// SetGatherer changes the registry served on /metrics
func (h *Handler) SetGatherer(g prometheus.Gatherer) {
	h.gatherer = g
}

// Response helpers

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, nil)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"endpoint": h.client.Endpoint(),
		"audit":    h.audit != nil,
		"auth":     h.auth.Enabled(),
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	snap := h.client.Snapshot()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "alidayu-relay",
		"version":     "1.0.0",
		"description": "Signing relay for the Alidayu TOP gateway",
		"app_key":     h.client.AppKey(),
		"format":      snap.Format,
		"sign_method": snap.SignMethod,
	})
}

// === Calls ===

// CallRequest is the body of POST /api/v1/calls
type CallRequest struct {
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
}

// Call handles POST /api/v1/calls
func (h *Handler) Call(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if req.Method == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "method is required")
		return
	}

	ctx := r.Context()
	if claims := claimsFromContext(ctx); claims != nil {
		ctx = audit.WithCaller(ctx, claims.Subject)
	}

	res, err := h.client.Execute(ctx, alidayu.NewCall(req.Method, req.Params))
	if err != nil {
		h.respondCallError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"method":   req.Method,
		"response": res.Body.Interface(),
	})
}

func (h *Handler) respondCallError(w http.ResponseWriter, err error) {
	var (
		cfgErr       *alidayu.ConfigurationError
		transportErr *alidayu.TransportError
		decodeErr    *alidayu.DecodeError
	)

	if apiErr, ok := alidayu.IsAPIError(err); ok {
		respondErrorDetails(w, http.StatusBadGateway, "API_ERROR", apiErr.Message, map[string]interface{}{
			"code":     apiErr.Code,
			"msg":      apiErr.Msg,
			"sub_code": apiErr.SubCode,
			"sub_msg":  apiErr.SubMsg,
		})
		return
	}

	switch {
	case errors.As(err, &cfgErr):
		respondError(w, http.StatusBadRequest, "INVALID_CALL", cfgErr.Error())
	case errors.As(err, &transportErr):
		details := map[string]interface{}{}
		if transportErr.StatusCode != 0 {
			details["status"] = transportErr.StatusCode
		}
		respondErrorDetails(w, http.StatusBadGateway, "TRANSPORT_ERROR", "Gateway unreachable", details)
	case errors.As(err, &decodeErr):
		respondError(w, http.StatusBadGateway, "DECODE_ERROR", "Gateway response could not be decoded")
	default:
		h.logger.Error("unexpected call error", "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// GetCalls handles GET /api/v1/calls
func (h *Handler) GetCalls(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "AUDIT_DISABLED", "Audit trail is not configured")
		return
	}

	q := r.URL.Query()
	filter := &audit.CallFilter{
		Method:  q.Get("method"),
		Outcome: q.Get("outcome"),
		Caller:  q.Get("caller"),
		Limit:   50,
	}

	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	for key, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", key+" must be an RFC 3339 timestamp")
			return
		}
		*dst = t
	}

	calls, err := h.audit.GetCalls(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list calls", "error", err)
		respondError(w, http.StatusInternalServerError, "AUDIT_ERROR", "Failed to get calls")
		return
	}
	if calls == nil {
		calls = []*audit.Call{}
	}

	respondJSON(w, http.StatusOK, calls)
}
