package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/viniciusgp/stickerlot/internal/metrics"
)

// KeepaliveServer is the small HTTP surface that keeps the host platform
// happy and exposes health and metrics endpoints.
type KeepaliveServer struct {
	server    *http.Server
	logger    zerolog.Logger
	startTime time.Time
	running   bool
	mu        sync.Mutex
}

// statusResponse is the body served on the root endpoint.
type statusResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
}

// NewKeepaliveServer creates the keepalive HTTP server.
func NewKeepaliveServer(host string, port int, logger zerolog.Logger) *KeepaliveServer {
	s := &KeepaliveServer{
		logger:    logger.With().Str("module", "keepalive").Logger(),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving in a background goroutine.
func (s *KeepaliveServer) Start() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("Keepalive server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Keepalive server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *KeepaliveServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

func (s *KeepaliveServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writeJSON(w, statusResponse{
		Status: "The bot is running!",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *KeepaliveServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, statusResponse{Status: "ok"})
}

func (s *KeepaliveServer) writeJSON(w http.ResponseWriter, body statusResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}

// Handler exposes the mux for tests.
func (s *KeepaliveServer) Handler() http.Handler {
	return s.server.Handler
}
