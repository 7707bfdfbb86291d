// Package server wires the HTTP surface: the gesture WebSocket, the JSON
// API, health and metrics endpoints, and optional static files.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ayusman/visionctl/internal/action"
	"github.com/ayusman/visionctl/internal/combo"
	"github.com/ayusman/visionctl/internal/gateway"
	"github.com/ayusman/visionctl/internal/gesture"
	"github.com/ayusman/visionctl/internal/metrics"
	"github.com/ayusman/visionctl/internal/server/api"
	"github.com/ayusman/visionctl/internal/store"
)

// Config holds the server's collaborators. Nil members disable their routes.
type Config struct {
	StaticDir string

	Gateway    *gateway.Handler
	Store      *store.Store
	Library    *gesture.Library
	Catalog    *combo.Catalog
	Dispatcher *action.Dispatcher
	Registry   *action.Registry
	// ReloadTemplates rebuilds the classifier snapshot after training.
	ReloadTemplates func() error

	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Server is the HTTP handler for the whole API.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	logger  zerolog.Logger
	start   time.Time
}

// New creates a Server with its routes registered.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: config.Logger.With().Str("component", "http").Logger(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = instrument(s.mux, config.Metrics, s.logger)
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	if s.config.Gateway != nil {
		s.mux.Handle("/ws/gestures", s.config.Gateway)
	}

	if s.config.Store != nil {
		gestures := api.NewGestureHandler(s.config.Store, s.config.Library, s.config.ReloadTemplates, s.logger)
		s.mux.Handle("/api/gestures", gestures)
		s.mux.Handle("/api/gestures/", gestures)
		s.mux.Handle("/api/train-gesture", api.NewTrainHandler(s.config.Store, s.config.ReloadTemplates, s.logger))
	}

	if s.config.Catalog != nil {
		s.mux.Handle("/api/combos", api.NewComboHandler(s.config.Catalog))
	}

	if s.config.Dispatcher != nil || s.config.Registry != nil {
		actions := api.NewActionHandler(s.config.Dispatcher, s.config.Registry)
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Connections int    `json:"connections"`
	Enabled     bool   `json:"enabled"`
	Templates   int    `json:"templates"`
	Combos      int    `json:"combos"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if g := s.config.Gateway; g != nil {
		resp.Connections = g.Sessions()
		resp.Enabled = g.Enabled()
	}
	if s.config.Library != nil {
		resp.Templates = s.config.Library.Load().Len()
	}
	if s.config.Catalog != nil {
		resp.Combos = len(s.config.Catalog.Definitions())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
