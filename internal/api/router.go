package api

import (
	_ "fxrelay/docs"
	"fxrelay/internal/rate/handler"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	swagger "github.com/swaggo/http-swagger"
)

func newBaseRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))
	router.MethodNotAllowed(handler.MethodNotAllowed)

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)
	return router
}

// NewProducerRouter serves the trigger endpoint and the static front end.
func NewProducerRouter(rateHandler *handler.Handler, staticDir string) *chi.Mux {
	router := newBaseRouter()

	router.Post("/api/fetch-and-send", rateHandler.FetchAndSend)
	router.HandleFunc("/api/*", handler.MethodNotAllowed)

	index := filepath.Join(staticDir, "index.html")
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	})
	router.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(staticDir))))
	return router
}

// NewConsumerRouter serves the status text and, when the journal is enabled, the latest rates.
func NewConsumerRouter(rateHandler *handler.Handler, withLatest bool) *chi.Mux {
	router := newBaseRouter()

	router.Get("/", rateHandler.Status)
	if withLatest {
		router.Get("/api/rates/latest", rateHandler.GetLatest)
	}
	router.HandleFunc("/api/*", handler.MethodNotAllowed)
	return router
}
