// Package gateway exposes the voice assistant over HTTP: a health probe,
// a turn endpoint for clients that capture audio themselves, and a
// WebSocket event stream for transcript and state updates.
package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voiceteller/voiceteller/internal/config"
	"github.com/voiceteller/voiceteller/internal/logging"
	"github.com/voiceteller/voiceteller/internal/turn"
)

// maxUploadBytes caps turn audio uploads.
const maxUploadBytes = 16 << 20

// Server is the gateway HTTP + WebSocket server.
type Server struct {
	cfg  config.GatewayConfig
	orch *turn.Orchestrator
	log  *logging.Logger

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// wsClient is one connected event-stream subscriber.
type wsClient struct {
	conn *websocket.Conn
	send chan turn.Event
}

// New creates a gateway server around an orchestrator. The server
// installs itself as the orchestrator's event listener.
func New(cfg config.GatewayConfig, orch *turn.Orchestrator, log *logging.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		orch:    orch,
		log:     log.Sub("gateway"),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	orch.OnEvent(s.broadcast)
	return s
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins serving. It blocks until ctx is canceled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.AuthToken == "" {
		s.log.Warn().Msg("gateway auth token not configured, requests are unauthenticated")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Msg("gateway server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.closeAllClients()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the gateway's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("POST /v1/turn", s.requireAuth(s.handleTurn))
	mux.HandleFunc("GET /v1/events", s.requireAuth(s.handleEvents))
	return mux
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// requireAuth enforces the bearer token when one is configured. The
// token may also arrive as a query parameter for WebSocket clients that
// cannot set headers.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken == "" {
			next(w, r)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			token = r.URL.Query().Get("token")
		}
		if !safeEqual(token, s.cfg.AuthToken) {
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("unauthorized request")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// safeEqual performs a constant-time string comparison.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}

// broadcast fans one orchestrator event out to all subscribers. Slow
// clients drop events rather than stalling the turn pipeline.
func (s *Server) broadcast(e turn.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- e:
		default:
			s.log.Warn().Msg("event subscriber too slow, dropping event")
		}
	}
}

func (s *Server) addClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeAllClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
		c.conn.Close()
	}
}
