package handlers

import (
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeConn records everything sent to it; the handlers under test only
// ever call Send.
type fakeConn struct {
	id string

	mu       sync.Mutex
	sent     [][]byte
	failSend bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
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

func (c *fakeConn) Receive() ([]byte, error) { return nil, errors.New("not used") }
func (c *fakeConn) Close() error             { return nil }
func (c *fakeConn) RemoteAddr() string       { return c.id }

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// responses decodes everything the conn received.
func (c *fakeConn) responses(t *testing.T) []domain.Response {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Response, 0, len(c.sent))
	for _, payload := range c.sent {
		var res domain.Response
		require.NoError(t, json.Unmarshal(payload, &res))
		out = append(out, res)
	}
	return out
}

// lastOfType returns the most recent response with the given type tag.
func (c *fakeConn) lastOfType(t *testing.T, eventType string) (domain.Response, bool) {
	t.Helper()
	all := c.responses(t)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Type == eventType {
			return all[i], true
		}
	}
	return domain.Response{}, false
}

// fixture wires the real storage and routing core around the handlers.
type fixture struct {
	registry      *runtime.Registry
	broadcaster   *runtime.Broadcaster
	presence      *runtime.Presence
	monitoring    *observability.MonitoringManager
	users         *repositories.UserRepository
	groups        *repositories.GroupRepository
	messages      *repositories.MessageRepository
	notifications *repositories.NotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.Default()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoringManager(log)
	broadcaster := runtime.NewBroadcaster(registry, monitoring, log)

	return &fixture{
		registry:      registry,
		broadcaster:   broadcaster,
		presence:      runtime.NewPresence(broadcaster, log),
		monitoring:    monitoring,
		users:         repositories.NewUserRepository(db),
		groups:        repositories.NewGroupRepository(db),
		messages:      repositories.NewMessageRepository(db, log, nil),
		notifications: repositories.NewNotificationRepository(db),
	}
}

// seedUser stores an account and binds a fresh connection for it.
func (f *fixture) seedUser(t *testing.T, username string) (domain.User, *fakeConn) {
	t.Helper()
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Tag:       "0001",
		Handle:    username + "#0001",
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.users.Save(user))

	conn := newFakeConn(username + "-conn")
	f.registry.Bind(user.ID, conn)
	return user, conn
}

// seedGroup stores a group owned by the first user with the rest as
// plain members.
func (f *fixture) seedGroup(t *testing.T, name string, owner domain.User, members ...domain.User) domain.Group {
	t.Helper()
	group := domain.Group{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   owner.ID,
		JoinCode:  "JOIN01",
		CreatedAt: time.Now(),
		Members: map[string]domain.Member{
			owner.ID: {Role: domain.RoleOwner, Username: owner.Username, JoinedAt: time.Now()},
		},
	}
	for _, member := range members {
		group.Members[member.ID] = domain.Member{
			Role: domain.RoleMember, Username: member.Username, JoinedAt: time.Now(),
		}
	}
	require.NoError(t, f.groups.Save(group))
	return group
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
