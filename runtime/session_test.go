package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	registry   *Registry
	monitoring *observability.MonitoringManager
	dispatcher *Dispatcher
	presence   *Presence
}

func newSessionFixture() sessionFixture {
	log := slog.Default()
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(log)
	broadcaster := NewBroadcaster(registry, monitoring, log)
	return sessionFixture{
		registry:   registry,
		monitoring: monitoring,
		dispatcher: NewDispatcher(monitoring, log),
		presence:   NewPresence(broadcaster, log),
	}
}

func (f sessionFixture) newSession(conn contract.Conn) *Session {
	return NewSession(conn, f.dispatcher, f.registry, f.presence, f.monitoring, slog.Default())
}

func runSession(t *testing.T, session *Session) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		require.NoError(t, session.Run(context.Background()))
		close(done)
	}()
	return done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func TestSession_Teardown_Fires_Offline_Presence_Exactly_Once(t *testing.T) {
	req := require.New(t)
	fixture := newSessionFixture()

	// Given an observer already online
	observer := newFakeConn("observer")
	fixture.registry.Bind("bob", observer)

	// And an authenticated session
	conn := newFakeConn("alice-phone")
	session := fixture.newSession(conn)
	var hookCalls []string
	session.OnClose(func(userID string) { hookCalls = append(hookCalls, userID) })

	done := runSession(t, session)
	fixture.registry.Bind("alice", conn)

	// When the transport dies
	close(conn.inbox)
	waitDone(t, done)

	// Then the binding is gone, the hook ran once, the observer saw one
	// offline presence event
	req.False(fixture.registry.IsOnline("alice"))
	req.Equal([]string{"alice"}, hookCalls)
	req.Equal([]string{"presence"}, observer.sentTypes(t))
	req.True(conn.closed)
	req.Equal(StateClosed, session.State())

	// When teardown races a second call
	session.Teardown()

	// Then nothing fires again
	req.Equal(1, observer.sentCount())
	req.Len(hookCalls, 1)
}

func TestSession_Unauthenticated_Teardown_Is_Silent(t *testing.T) {
	req := require.New(t)
	fixture := newSessionFixture()

	observer := newFakeConn("observer")
	fixture.registry.Bind("bob", observer)

	// Given a connection that never authenticated
	conn := newFakeConn("stranger")
	session := fixture.newSession(conn)
	done := runSession(t, session)

	close(conn.inbox)
	waitDone(t, done)

	// Then no presence event was broadcast
	req.Zero(observer.sentCount())
	req.True(conn.closed)
}

func TestSession_Handler_Panic_Recovered_Connection_Survives(t *testing.T) {
	req := require.New(t)
	fixture := newSessionFixture()

	fixture.dispatcher.Register("explode", func(_ context.Context, _ contract.Conn, _ json.RawMessage) {
		panic("boom")
	})
	handled := make(chan struct{}, 1)
	fixture.dispatcher.Register("ping", func(_ context.Context, _ contract.Conn, _ json.RawMessage) {
		handled <- struct{}{}
	})

	conn := newFakeConn("c1")
	session := fixture.newSession(conn)
	done := runSession(t, session)

	// When a handler panics mid-session
	conn.inbox <- []byte(`{"type":"explode"}`)
	// And traffic continues on the same connection
	conn.inbox <- []byte(`{"type":"ping"}`)

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("connection stopped serving after handler panic")
	}
	close(conn.inbox)
	waitDone(t, done)

	// Then the sender got a generic system error and the fault was counted
	var res domain.Response
	conn.mu.Lock()
	req.NotEmpty(conn.sent)
	req.NoError(json.Unmarshal(conn.sent[0], &res))
	conn.mu.Unlock()
	req.Equal(domain.StatusError, res.Status)
	req.Equal("system", res.Type)
	req.Equal("Internal server error", res.Message)
	req.Equal(uint64(1), fixture.monitoring.Snapshot().HandlerFaults)
}

func TestSession_State_Readable_During_External_Teardown(t *testing.T) {
	req := require.New(t)
	fixture := newSessionFixture()

	conn := newFakeConn("c1")
	session := fixture.newSession(conn)
	done := runSession(t, session)

	req.Eventually(func() bool { return session.State() == StateOpen },
		2*time.Second, 10*time.Millisecond)

	// Teardown is called from outside the read loop, like a server
	// shutdown path would, while another goroutine polls the state
	stop := make(chan struct{})
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		for {
			select {
			case <-stop:
				return
			default:
				_ = session.State()
			}
		}
	}()

	session.Teardown()
	close(conn.inbox)
	waitDone(t, done)
	close(stop)
	<-polled

	req.Equal(StateClosed, session.State())
}

func TestSession_Connection_Counter_Tracks_Lifecycle(t *testing.T) {
	req := require.New(t)
	fixture := newSessionFixture()

	conn := newFakeConn("c1")
	session := fixture.newSession(conn)
	done := runSession(t, session)

	req.Eventually(func() bool {
		return fixture.monitoring.Snapshot().ActiveConnections == 1
	}, 2*time.Second, 10*time.Millisecond)

	close(conn.inbox)
	waitDone(t, done)
	req.Zero(fixture.monitoring.Snapshot().ActiveConnections)
}
