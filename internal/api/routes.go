package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"intake/internal/models"
	"intake/internal/ratelimit"
)

// RouteOption configures optional route behavior.
type RouteOption func(*routeSettings)

type routeSettings struct {
	serviceName string
	chatLimiter ratelimit.Limiter
}

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(s *routeSettings) { s.serviceName = serviceName }
}

// WithChatLimiter rate limits the chat endpoint per client IP.
func WithChatLimiter(limiter ratelimit.Limiter) RouteOption {
	return func(s *routeSettings) { s.chatLimiter = limiter }
}

// chatKey keeps chat traffic out of the contact form's ip window.
func chatKey(r *http.Request) string {
	return "chat:ip:" + clientIP(r)
}

func isHealthPath(path string) bool {
	return path == "/health" || path == "/api/health"
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	var settings routeSettings
	for _, opt := range opts {
		opt(&settings)
	}

	router := mux.NewRouter()

	router.Use(requestIDMiddleware)
	router.Use(clientIPMiddleware(config.Server.TrustedProxies))
	router.Use(recoveryMiddleware)
	router.Use(loggingMiddleware)
	if settings.serviceName != "" {
		router.Use(otelmux.Middleware(settings.serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return !isHealthPath(r.URL.Path)
			}),
		))
	}
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}

	// Preflight requests need a matching route so the CORS middleware runs.
	methods := func(m ...string) []string {
		if config.Server.CORS.Enabled {
			return append(m, http.MethodOptions)
		}
		return m
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods(methods("GET")...)
	router.HandleFunc("/api/health", handlers.HealthCheck).Methods(methods("GET")...)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/contact", handlers.SubmitContact).Methods(methods("POST")...)
	api.HandleFunc("/openapi.yaml", handlers.ServeOpenAPISpec).Methods("GET")
	if config.Environment != "production" {
		api.HandleFunc("/docs", handlers.ServeSwaggerUI).Methods("GET")
	}

	chat := api.PathPrefix("/chat").Subrouter()
	if settings.chatLimiter != nil {
		chat.Use(ratelimit.Middleware(settings.chatLimiter, chatKey))
	}
	chat.HandleFunc("", handlers.Chat).Methods(methods("POST")...)

	// The lead listing only exists when an admin token is configured.
	if config.Security.AdminToken != "" {
		leads := api.PathPrefix("/leads").Subrouter()
		leads.Use(adminAuthMiddleware(config.Security.AdminToken))
		leads.HandleFunc("", handlers.ListLeads).Methods(methods("GET")...)
		leads.HandleFunc("/{id:[0-9]+}", handlers.GetLead).Methods(methods("GET")...)
	}

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, models.ErrorCodeInvalidRequest, "Method not allowed")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
	})

	return router
}
