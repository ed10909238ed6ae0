// Package server exposes the microphone's control surface over HTTP: health
// with the current state, remote wake and interrupt, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-mic/internal/domain"
)

// MicControl is the part of the microphone the server drives.
type MicControl interface {
	State() domain.MicState
	Interrupt()
}

// Waker queues a remote hotword detection.
type Waker interface {
	Trigger() bool
}

type Options struct {
	Addr           string
	AuthToken      string
	RatePerMinute  int
	TrustProxy     bool
	MetricsEnabled bool
}

type Server struct {
	opts        Options
	mic         MicControl
	waker       Waker
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// New builds the server. waker may be nil when the hotword detector cannot
// be triggered remotely; /wake is then not registered.
func New(opts Options, mic MicControl, waker Waker, logger *slog.Logger) *Server {
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 30
	}

	s := &Server{
		opts:        opts,
		mic:         mic,
		waker:       waker,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(opts.RatePerMinute, time.Minute, opts.TrustProxy),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /interrupt", s.rateLimiter.Middleware(s.authorized(s.handleInterrupt)))
	if waker != nil {
		s.mux.HandleFunc("POST /wake", s.rateLimiter.Middleware(s.authorized(s.handleWake)))
	}
	if opts.MetricsEnabled {
		s.mux.Handle("GET /metrics", promhttp.Handler())
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("control server starting", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.opts.AuthToken {
				s.logger.Warn("unauthorized control request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.mic.State().String(),
	})
}

func (s *Server) handleWake(w http.ResponseWriter, _ *http.Request) {
	if !s.waker.Trigger() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_pending"})
		return
	}
	s.logger.Info("remote wake queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleInterrupt(w http.ResponseWriter, _ *http.Request) {
	state := s.mic.State()
	s.mic.Interrupt()
	s.logger.Info("remote interrupt", "state", state.String())
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "interrupted",
		"state":  state.String(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
