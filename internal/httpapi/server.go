// ABOUTME: Ops HTTP server exposing connection state and Prometheus metrics
// ABOUTME: Routes: GET /healthz and GET /metrics
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harper/marcusbot/internal/health"
	"github.com/harper/marcusbot/internal/supervisor"
)

const shutdownTimeout = 5 * time.Second

// StateSource reports the supervisor state
type StateSource interface {
	State() supervisor.State
}

// HealthSource reports the latest outbound probe
type HealthSource interface {
	Status() health.Status
}

type Server struct {
	state   StateSource
	health  HealthSource
	metrics http.Handler
	logger  *slog.Logger
}

func New(state StateSource, healthSrc HealthSource, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{state: state, health: healthSrc, metrics: metrics, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type healthResponse struct {
	State  string `json:"state"`
	Health string `json:"health"`
}

// handleHealth answers 200 while the session is connected, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.state.State()
	probe := health.StatusUnknown
	if s.health != nil {
		probe = s.health.Status()
	}

	status := http.StatusOK
	if state != supervisor.StateConnected {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, healthResponse{State: state.String(), Health: string(probe)})
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
