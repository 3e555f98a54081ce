package routes

import (
	"net/http"

	"github.com/Sosajunior/crm-sub000/internal/api/handlers"
	"github.com/Sosajunior/crm-sub000/internal/api/middleware"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	webhookHandler *handlers.WebhookHandler
	metricsHandler *handlers.MetricsHandler
	healthHandler  *handlers.HealthHandler

	prometheus     http.Handler
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router. prometheus may be nil to skip the scrape endpoint.
func NewRouter(
	webhookHandler *handlers.WebhookHandler,
	metricsHandler *handlers.MetricsHandler,
	healthHandler *handlers.HealthHandler,
	prometheus http.Handler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		webhookHandler: webhookHandler,
		metricsHandler: metricsHandler,
		healthHandler:  healthHandler,
		prometheus:     prometheus,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Probes
	r.mux.HandleFunc("GET /health", r.healthHandler.Live)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)

	// Webhook ingestion and connectivity check
	r.mux.HandleFunc("POST /webhook/{eventType}", r.webhookHandler.HandleEvent)
	r.mux.HandleFunc("GET /webhook/{anything}", r.webhookHandler.HandleStatus)

	// Dashboard metrics
	r.mux.Handle("GET /metrics", middleware.NoStore(http.HandlerFunc(r.metricsHandler.GetMetrics)))

	if r.prometheus != nil {
		r.mux.Handle("GET /internal/prometheus", r.prometheus)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Compression(handler)
	handler = middleware.RequestID(handler)
	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
