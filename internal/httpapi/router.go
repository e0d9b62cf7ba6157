// Package httpapi wires the chi router, middleware and server lifecycle.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raspscan/raspscan/internal/httpapi/handlers"
)

// NewRouter builds the full HTTP routing tree. The websocket endpoint is
// mounted outside the timeout middleware so long-lived connections survive.
func NewRouter(api *handlers.API, ws http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RecoverJSON(api))
	r.Use(RequestLogger(api))

	r.Get("/api/ws", ws.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/healthz", api.Health)
		r.Route("/api", func(apiRouter chi.Router) {
			apiRouter.Get("/discovery", api.Discover)

			apiRouter.Get("/devices", api.ListDevices)
			apiRouter.Post("/devices", api.ConfirmDevice)
			apiRouter.Get("/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.GetDevice(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Delete("/devices/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.DeleteDevice(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Patch("/devices/{id}/favorite", func(w http.ResponseWriter, r *http.Request) {
				api.SetFavorite(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Post("/devices/{id}/check", func(w http.ResponseWriter, r *http.Request) {
				api.CheckDevice(w, r, chi.URLParam(r, "id"))
			})

			apiRouter.Get("/health/status", api.HealthStatus)
			apiRouter.Get("/scan/profiles", api.ScanProfiles)

			apiRouter.Post("/jobs", api.SubmitJob)
			apiRouter.Get("/jobs", api.ListJobs)
			apiRouter.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.GetJob(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Post("/jobs/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
				api.CancelJob(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Post("/jobs/{id}/retry", func(w http.ResponseWriter, r *http.Request) {
				api.RetryJob(w, r, chi.URLParam(r, "id"))
			})

			apiRouter.Get("/targets", api.ListTargets)
			apiRouter.Post("/targets", api.CreateTarget)
			apiRouter.Get("/targets/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.GetTarget(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Put("/targets/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.UpdateTarget(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Delete("/targets/{id}", func(w http.ResponseWriter, r *http.Request) {
				api.DeleteTarget(w, r, chi.URLParam(r, "id"))
			})
			apiRouter.Post("/targets/{id}/test", func(w http.ResponseWriter, r *http.Request) {
				api.TestTarget(w, r, chi.URLParam(r, "id"))
			})
		})
	})

	return r
}

// RunServer starts and gracefully stops HTTP server with context cancellation.
func RunServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
