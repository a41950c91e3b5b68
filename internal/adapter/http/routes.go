package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/NetBoxAssistant/internal/adapter/otel"
)

// RouterConfig holds the settings NewRouter needs besides the handlers.
type RouterConfig struct {
	CORSOrigin  string
	ServiceName string
	WebSocket   http.HandlerFunc // optional; mounted at /ws
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(h *Handlers, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(CORS(cfg.CORSOrigin))
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cfotel.HTTPMiddleware(cfg.ServiceName))

	r.Get("/health", h.Health)
	if cfg.WebSocket != nil {
		r.Get("/ws", cfg.WebSocket)
	}

	MountRoutes(r, h)
	return r
}

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Threads
		r.Post("/threads", h.CreateThread)
		r.Get("/threads/{threadID}/status", h.ThreadStatus)
		r.Post("/threads/{threadID}/turns", h.RunTurn)
		r.Get("/threads/{threadID}/turns", h.ThreadHistory)

		// Tools
		r.Get("/tools", h.ListTools)
		r.Get("/tools/status", h.ToolsStatus)
	})
}
