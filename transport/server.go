package transport

import (
	"chat-relay/contract"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// SessionFactory builds the lifecycle owner for a freshly accepted
// connection. The transport never touches sessions beyond starting
// them; registry bookkeeping is entirely the session's business.
type SessionFactory func(conn contract.Conn) contract.Worker

// ServerConfig carries the transport-level knobs.
type ServerConfig struct {
	Host         string
	Port         int
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
	ReadLimit    int64
}

// Server owns the HTTP listener and the websocket upgrade endpoint.
// Each accepted connection gets its own goroutine pair: the session
// read loop and a keepalive pinger.
type Server struct {
	config   ServerConfig
	factory  SessionFactory
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewServer(config ServerConfig, factory SessionFactory, log *slog.Logger) *Server {
	return &Server{
		config:  config,
		factory: factory,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are native apps, not browsers; no origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Run serves until the context is canceled, then shuts the listener
// down gracefully. It satisfies the Worker contract so the supervisor
// can own it like any other background task.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleUpgrade(ctx, w, r)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Relay listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := NewWSConn(wsConn, s.config.WriteTimeout, s.config.PongTimeout, s.config.ReadLimit)
	session := s.factory(conn)

	sessionCtx, cancel := context.WithCancel(ctx)
	go s.keepalive(sessionCtx, conn)

	// The session read loop runs on the request goroutine; the
	// handler returns when the connection dies.
	if err := session.Run(sessionCtx); err != nil {
		s.log.Warn("Session ended with error", "remote", conn.RemoteAddr(), "error", err)
	}
	cancel()
}

func (s *Server) keepalive(ctx context.Context, conn *WSConn) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				return
			}
		}
	}
}
