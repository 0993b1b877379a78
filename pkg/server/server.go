package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server accepts WebSocket connections and runs one Session per client.
type Server struct {
	cfg      *Config
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   atomic.Uint64

	httpServer *http.Server
}

// New creates a Server. Unset config fields get defaults.
func New(cfg *Config) *Server {
	cfg = cfg.withDefaults()

	s := &Server{
		cfg:      cfg,
		metrics:  NewMetrics(cfg.Registry, cfg.MetricsNamespace),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if gatherer, ok := cfg.Registry.(prometheus.Gatherer); ok {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the server's HTTP handler, for embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	s.cfg.Logger.Info("listening", "address", s.cfg.Address)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.cfg.Logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	id := fmt.Sprintf("s-%d", s.nextID.Add(1))
	sess := NewSession(id, conn, s.cfg, s.metrics)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.sessions, id)
			s.mu.Unlock()
		}()
		if err := sess.Run(); err != nil {
			s.cfg.Logger.Error("session failed", "session", id, "error", err)
		}
	}()
}
