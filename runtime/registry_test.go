package runtime

import (
	"chat-relay/domain"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn is the in-memory transport used across the runtime tests.
// Receive drains the inbox until the test closes it.
type fakeConn struct {
	id    string
	inbox chan []byte

	mu       sync.Mutex
	sent     [][]byte
	failSend bool
	closed   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, inbox: make(chan []byte, 16)}
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("device gone")
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeConn) Receive() ([]byte, error) {
	payload, ok := <-c.inbox
	if !ok {
		return nil, net.ErrClosed
	}
	return payload, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.id }

// sentTypes decodes the type tag of every response the conn received.
func (c *fakeConn) sentTypes(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var types []string
	for _, payload := range c.sent {
		var res domain.Response
		require.NoError(t, json.Unmarshal(payload, &res))
		types = append(types, res.Type)
	}
	return types
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestRegistry_Bind_First_Device_Is_Online_Transition(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("c1")

	// When the user's first device binds
	online := registry.Bind("alice", conn)

	// Then the online transition fires and the binding is visible both ways
	req.True(online)
	req.True(registry.IsOnline("alice"))
	userID, bound := registry.UserFor(conn)
	req.True(bound)
	req.Equal("alice", userID)
	req.Len(registry.ConnectionsFor("alice"), 1)
}

func TestRegistry_Bind_Second_Device_Is_Presence_Neutral(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given a user already online on one device
	req.True(registry.Bind("alice", newFakeConn("phone")))

	// When a second device binds
	online := registry.Bind("alice", newFakeConn("laptop"))

	// Then no transition fires and both devices are live
	req.False(online)
	req.Len(registry.ConnectionsFor("alice"), 2)
	req.Equal(2, registry.ConnectionCount())
}

func TestRegistry_Unbind_Last_Device_Is_Offline_Transition(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone := newFakeConn("phone")
	laptop := newFakeConn("laptop")
	registry.Bind("alice", phone)
	registry.Bind("alice", laptop)

	// When the first device goes away
	userID, offline, bound := registry.Unbind(phone)

	// Then the user stays online
	req.True(bound)
	req.False(offline)
	req.Equal("alice", userID)
	req.True(registry.IsOnline("alice"))

	// When the last device goes away
	userID, offline, bound = registry.Unbind(laptop)

	// Then the offline transition fires and the user vanishes
	req.True(bound)
	req.True(offline)
	req.Equal("alice", userID)
	req.False(registry.IsOnline("alice"))
	req.Empty(registry.OnlineUsers())
}

func TestRegistry_Unbind_Unknown_Connection_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When an unauthenticated connection closes
	userID, offline, bound := registry.Unbind(newFakeConn("stranger"))

	// Then nothing happened
	req.False(bound)
	req.False(offline)
	req.Empty(userID)
}

func TestRegistry_Unbind_Twice_Second_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("c1")
	registry.Bind("alice", conn)

	_, offline, bound := registry.Unbind(conn)
	req.True(bound)
	req.True(offline)

	// When teardown races a second unbind
	_, offline, bound = registry.Unbind(conn)

	// Then the second call reports nothing to do
	req.False(bound)
	req.False(offline)
}

func TestRegistry_Rebind_Moves_Connection_To_New_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("c1")

	// Given a connection bound to one account
	registry.Bind("alice", conn)

	// When the same connection authenticates as someone else
	online := registry.Bind("bob", conn)

	// Then the old binding is gone and the new one is live
	req.True(online)
	req.False(registry.IsOnline("alice"))
	req.True(registry.IsOnline("bob"))
	userID, _ := registry.UserFor(conn)
	req.Equal("bob", userID)
	req.Equal(1, registry.ConnectionCount())
}
