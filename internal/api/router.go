package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apihandler "github.com/dusk-indust/bizdoc/internal/api/handler"
	apimw "github.com/dusk-indust/bizdoc/internal/api/middleware"
)

// RouterDeps holds optional dependencies for the router.
type RouterDeps struct {
	// Ready backs /readyz. Nil reports ready.
	Ready apihandler.Pinger
}

func NewRouter(logger *zap.Logger, svc apihandler.RunService, deps *RouterDeps) *chi.Mux {
	if deps == nil {
		deps = &RouterDeps{}
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(chimw.Recoverer)

	health := apihandler.NewHealthHandler(deps.Ready)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		runs := apihandler.NewRunHandler(logger, svc)
		r.Post("/runs", runs.Create)
		r.Post("/runs:sync", runs.CreateSync)
		r.Route("/runs/{runID}", func(r chi.Router) {
			r.Get("/", runs.Get)
			r.Get("/events", runs.Events)
			r.Get("/document", runs.Document)
		})
	})

	return r
}
