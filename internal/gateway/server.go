package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"marketplace/gateway/internal/dispatch"
	"marketplace/gateway/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

const maxJSONBodyBytes = 1 << 20 // 1 MiB

// Dispatcher is the routing decision behind POST /api/service/{serviceId}.
type Dispatcher interface {
	Handle(ctx context.Context, serviceID string, req dispatch.ServiceRequest) dispatch.Envelope
}

type Server struct {
	log            *slog.Logger
	dispatcher     Dispatcher
	registry       *registry.Registry
	staticDir      string
	allowedOrigins []string
	clock          *Clock
}

func NewServer(log *slog.Logger, dispatcher Dispatcher, reg *registry.Registry,
	staticDir string, allowedOrigins []string) *Server {
	return &Server{
		log:            log,
		dispatcher:     dispatcher,
		registry:       reg,
		staticDir:      staticDir,
		allowedOrigins: allowedOrigins,
		clock:          NewClock(nil),
	}
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.logging)
	r.Use(middleware.Recoverer)
	r.Use(s.cors().Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/services", s.handleListServices)
		r.Post("/service/{serviceId}", s.handleService)
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}

	return r
}

func (s *Server) cors() *cors.Cors {
	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{dispatch.RequestIDHeader},
	})
}

// ParseOrigins splits a comma separated origin list.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
