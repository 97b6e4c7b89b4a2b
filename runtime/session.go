package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// SessionState is the lifecycle of one connection.
// Connecting -> Open -> Closing -> Closed, terminal.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosing
	StateClosed
)

// CloseHook runs during teardown of a session whose connection was
// bound to an identity. Used by features holding per-user transient
// state (voice channels) to clean up after a dead connection.
type CloseHook func(userID string)

// Session owns one connection from accept to teardown. It reads events
// sequentially, hands each to the dispatcher, and deregisters from the
// registry exactly once when the transport closes or errors, whether or
// not the connection ever authenticated.
//
// Events on the same connection are strictly ordered; different
// sessions run fully concurrently and meet only in the registry.
type Session struct {
	conn       contract.Conn
	dispatcher *Dispatcher
	registry   contract.IRegistry
	presence   *Presence
	monitoring *observability.MonitoringManager
	log        *slog.Logger

	// Teardown may run from outside the Run goroutine, so the state is
	// read and written atomically
	state      atomic.Int32
	closeHooks []CloseHook
	teardown   sync.Once
}

func NewSession(conn contract.Conn, dispatcher *Dispatcher, registry contract.IRegistry,
	presence *Presence, monitoring *observability.MonitoringManager, log *slog.Logger) *Session {
	return &Session{
		conn:       conn,
		dispatcher: dispatcher,
		registry:   registry,
		presence:   presence,
		monitoring: monitoring,
		log:        log.With("remote", conn.RemoteAddr()),
	}
}

// OnClose registers a teardown hook. Must be called before Run.
func (s *Session) OnClose(hook CloseHook) {
	s.closeHooks = append(s.closeHooks, hook)
}

// Run is the per-connection loop. It blocks until the transport reports
// closure or an error, then tears the session down. A panicking handler
// is recovered here: the fault is logged, the sender gets a generic
// system error, and the loop keeps serving the connection's other
// traffic.
func (s *Session) Run(ctx context.Context) error {
	s.state.Store(int32(StateOpen))
	s.monitoring.IncrConnections()
	s.log.Info("Connection open")

	defer s.Teardown()

	for {
		payload, err := s.conn.Receive()
		if err != nil {
			s.log.Info("Connection closed", "reason", err)
			return nil
		}
		s.dispatch(ctx, payload)
	}
}

func (s *Session) dispatch(ctx context.Context, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			userID, _ := s.registry.UserFor(s.conn)
			s.monitoring.IncrHandlerFaults()
			s.log.Error("Handler fault", "user", userID, "panic", r)
			s.reply(domain.Error("system", "Internal server error"))
		}
	}()
	s.dispatcher.Dispatch(ctx, s.conn, payload)
}

// Teardown deregisters the connection and fires the offline presence
// transition when this was the identity's last device. Safe to call
// more than once; only the first call does anything.
func (s *Session) Teardown() {
	s.teardown.Do(func() {
		s.state.Store(int32(StateClosing))
		s.monitoring.DecrConnections()

		userID, offline, bound := s.registry.Unbind(s.conn)
		if bound {
			for _, hook := range s.closeHooks {
				hook(userID)
			}
			if offline {
				s.presence.UserOffline(userID)
			}
		}

		_ = s.conn.Close()
		s.state.Store(int32(StateClosed))
	})
}

// State exposes the lifecycle phase, mainly for tests.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) reply(res domain.Response) {
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.conn.Send(payload); err != nil {
		s.log.Warn("Reply not delivered", "error", err)
	}
}
