package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.deviceIDMiddleware)
				r.Get("/", s.handleGetDevice)
				r.Get("/scans", s.handleListScans)

				r.Route("/tuners/{tuner}", func(r chi.Router) {
					r.Use(s.tunerIndexMiddleware)
					r.Get("/status", s.handleTunerStatus)
					r.Get("/programs", s.handleTunerPrograms)
					r.Get("/plp", s.handleTunerPlp)
					r.Get("/l1", s.handleTunerL1)
					r.Put("/channel", s.handleSetChannel)
					r.Delete("/channel", s.handleClearTuner)
					r.Post("/channel/up", s.handleChannelUp)
					r.Post("/channel/down", s.handleChannelDown)
					r.Put("/program", s.handleSetProgram)
					r.Post("/scan", s.handleScan)
					r.Get("/scan/latest", s.handleLatestScan)
				})
			})
		})

		// Monitoring sessions
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
