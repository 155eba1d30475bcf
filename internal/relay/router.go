package relay

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	middlewarePkg "github.com/medichat/docboard/internal/middleware"
)

// NewRouter wires the relay's HTTP surface: the websocket endpoint, a REST
// view of the roster snapshot, and a health probe.
func NewRouter(hub *Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	handler := NewHandler(hub)
	r.Get("/ws", handler.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/patients", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, hub.Snapshot())
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})

	return r
}
