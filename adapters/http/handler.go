// Package http provides the HTTP surface of the gateway.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pulseproto/pulsegate/app"
	"github.com/pulseproto/pulsegate/domain/gateway"
	"github.com/pulseproto/pulsegate/ports"
)

// Version is reported by the service descriptor and the version endpoint.
const Version = "1.0.0"

// ServiceName is the public name of the gateway.
const ServiceName = "pulsegate"

// Handler wraps the gateway service for HTTP handling.
type Handler struct {
	service *app.GatewayService
	ledger  ports.QuotaLedger
	trail   ports.AuditTrail
	filter  *app.Filter
	logger  zerolog.Logger
}

// NewHandler creates the HTTP handler over the assembled services.
func NewHandler(service *app.GatewayService, ledger ports.QuotaLedger, trail ports.AuditTrail, filter *app.Filter, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		trail:   trail,
		filter:  filter,
		logger:  logger,
	}
}

// sendRequest is the wire shape of POST /v1/send.
type sendRequest struct {
	Action         string         `json:"action"`
	Provider       string         `json:"provider"`
	Parameters     map[string]any `json:"parameters"`
	ProviderConfig map[string]any `json:"provider_config"`
}

// Send runs the full admission pipeline for one request.
// Auth and quota rejections use transport status codes; everything past
// quota admission answers 200 with a success flag so quota usage data is
// always attached.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20)) // 10MB limit
	if err != nil {
		writeError(w, &gateway.ErrorResponse{
			Status: http.StatusBadRequest, Code: "bad_request",
			Message: "Failed to read request body",
		})
		return
	}

	var in sendRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			writeError(w, &gateway.ErrorResponse{
				Status: http.StatusBadRequest, Code: "bad_request",
				Message: "Request body is not valid JSON",
			})
			return
		}
	}

	res := h.service.Handle(r.Context(), gateway.Request{
		APIKey:         r.Header.Get("X-API-Key"),
		Action:         in.Action,
		Provider:       in.Provider,
		Parameters:     in.Parameters,
		ProviderConfig: in.ProviderConfig,
	})

	if res.Reject != nil {
		writeError(w, res.Reject)
		return
	}
	writeJSON(w, http.StatusOK, res.Response)
}

// Root serves the service descriptor.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   ServiceName,
		"version":   Version,
		"status":    "running",
		"providers": h.service.Providers(),
		"docs":      "/health",
	})
}

// Health reports liveness plus the aggregate security counters.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"audit_entries":  h.trail.Count(),
		"security_stats": h.filter.Stats(),
	})
}

// Providers serves registry introspection data.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.service.Describe(),
	})
}

// Usage serves the quota snapshot for the calling key.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		reject := gateway.ErrMissingKey
		writeError(w, &reject)
		return
	}

	usage, ok := h.ledger.Usage(r.Context(), key)
	if !ok {
		writeError(w, &gateway.ErrorResponse{
			Status: http.StatusNotFound, Code: "unknown_key",
			Message: "API key is not registered",
		})
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// SecurityStats serves the cumulative filter counters.
func (h *Handler) SecurityStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.filter.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing sensible to do.
		return
	}
}

func writeError(w http.ResponseWriter, e *gateway.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(e) //nolint:errcheck
}

// RouterConfig carries the optional pieces of the router.
type RouterConfig struct {
	MetricsPath string // "" disables the prometheus endpoint
}

// NewRouter builds the public HTTP router.
func NewRouter(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Post("/v1/send", h.Send)
	r.Get("/v1/providers", h.Providers)
	r.Get("/v1/usage", h.Usage)
	r.Get("/v1/security/stats", h.SecurityStats)

	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	return r
}

// NewLoggingMiddleware logs completed HTTP requests at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip health checks and metrics scrapes.
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
