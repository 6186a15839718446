// Package ops exposes the operational HTTP surface: liveness, readiness,
// and the detector inventory. It is read-only and intended for internal use
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"classrouter/internal/core/classify"
	perr "classrouter/internal/platform/errors"
	"classrouter/internal/platform/logger"
)

// Deps are the read-only collaborators the ops surface serves from
type Deps struct {
	Router *classify.Router
	// Ready reports whether the ingest loop is accepting work
	Ready func() bool
}

// Server wraps the ops HTTP listener
type Server struct {
	srv  *http.Server
	deps Deps
}

// New builds the ops server on addr (e.g. ":8080")
func New(addr string, deps Deps) *Server {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/detectors", s.handleDetectors)
		r.Get("/detectors/{name}", s.handleDetector)
		r.Get("/mapping", s.handleMapping)
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background; listener errors are logged, not fatal
func (s *Server) Start() {
	log := logger.Named("ops-http")
	log.Info().Str("addr", s.srv.Addr).Msg("ops server listening")
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops server failed")
		}
	}()
}

// Shutdown drains open requests
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Ready != nil && s.deps.Ready() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}

func (s *Server) handleDetectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"detectors": s.deps.Router.AvailableDetectors()})
}

func (s *Server) handleDetector(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	d, err := s.deps.Router.DetectorInfo(name)
	if err != nil {
		writeErr(w, perr.WithOp(perr.NotFoundf("detector %q not found", name), "detector_info"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        d.Name,
		"impl":        d.Impl,
		"description": d.Description,
		"output_type": d.OutputType,
	})
}

func (s *Server) handleMapping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mapping": s.deps.Router.OutputTypes()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status, wire := perr.HTTP(err)
	writeJSON(w, status, map[string]any{"error": wire})
}

// accessLog emits one structured line per request
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		logger.Named("ops-http").Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

// recoverer turns handler panics into 500s instead of killing the process
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.Named("ops-http").Error().Interface("panic", p).Msg("handler panicked")
				writeErr(w, perr.PanicErrf("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
