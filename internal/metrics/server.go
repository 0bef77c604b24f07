// internal/metrics/server.go
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthSource reports interface health for /healthz.
type HealthSource interface {
	// Report returns every interface and whether none is failing.
	Report() (any, bool)
	// Interface returns one interface, if known.
	Interface(name string) (any, bool)
}

// Server exposes /metrics and /healthz.
type Server struct {
	srv *http.Server
	ln  net.Listener
	log zerolog.Logger
}

// NewServer creates the HTTP server. It does not listen yet.
func NewServer(listen string, health HealthSource, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              listen,
			Handler:           Router(health),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Router builds the routes. Exported for tests.
func Router(health HealthSource) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		report, healthy := health.Report()
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		respondJSON(w, code, report)
	}).Methods("GET")
	r.HandleFunc("/healthz/{interface}", func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["interface"]
		snap, ok := health.Interface(name)
		if !ok {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "unknown interface " + name})
			return
		}
		respondJSON(w, http.StatusOK, snap)
	}).Methods("GET")
	return r
}

// Listen binds the listen address. Addr is valid afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Serve blocks until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.log.Info().Str("listen", s.Addr()).Msg("metrics server started")

	err := s.srv.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
