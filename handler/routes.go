package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	deltabot "github.com/phbpx/delta-agent"
	"github.com/riandyrn/otelchi"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// Config wires the API's dependencies.
type Config struct {
	ServiceName string

	// Provider names the model backend; empty when no credential is set.
	Provider string

	Agent Agent
	Leads deltabot.LeadService
	Log   *otelzap.SugaredLogger

	// TrustProxy takes the client IP from X-Forwarded-For or X-Real-IP.
	// Enable it only when every request arrives through a trusted proxy.
	TrustProxy bool

	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// API builds the router serving the chat, lead and health endpoints.
func API(cfg Config) http.Handler {
	healthHandler := NewHealthHandler(cfg.ServiceName, cfg.Provider, cfg.Leads, cfg.Log)
	chatHandler := NewChatHandler(cfg.Agent, cfg.Log)
	leadHandler := NewLeadHandler(cfg.Leads, cfg.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(otelchi.Middleware(cfg.ServiceName, otelchi.WithChiRoutes(r)))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
		r.Post("/chat", chatHandler.Chat)
		r.Post("/leads", leadHandler.Create)
	})

	return r
}
