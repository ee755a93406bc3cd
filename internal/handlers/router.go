package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the HTTP surface. wsHandler may be nil to disable /ws.
func NewRouter(links *LinkHandler, stream *StreamHandler, wsHandler http.HandlerFunc, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(allowedOrigins))

	r.Get("/", links.Index)

	r.Route("/api", func(api chi.Router) {
		api.Post("/check_link", links.CheckLink)
		api.Get("/latest", links.Latest)
		api.Get("/ping", links.Ping)
		api.Get("/stream", stream.HandleSSE)
	})

	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	return r
}

// corsMiddleware adds CORS headers for the configured origins; "*" allows any.
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	anyOrigin := len(allowed) == 0 || slices.Contains(allowed, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowed, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
