package gateway

import (
	"net/http"
	"time"

	"marketplace/gateway/internal/dispatch"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// requestID reuses an inbound X-Request-Id or mints one, and exposes it to
// the dispatcher so it reaches the backend.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(dispatch.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(dispatch.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(dispatch.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", dispatch.RequestID(r.Context()),
		)
	})
}
