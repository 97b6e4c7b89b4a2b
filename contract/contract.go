//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"encoding/json"
	"reflect"
)

// Conn is one live duplex channel to a client. It carries no session
// knowledge; binding it to an identity is the registry's job.
// Implementations must allow Send from multiple goroutines.
type Conn interface {
	Send(payload []byte) error
	Receive() ([]byte, error)
	Close() error
	RemoteAddr() string
}

// IRegistry is the identity <-> connection bidirectional map.
// Bind reports whether the identity just came online (first device);
// Unbind reports the identity, whether it just went offline (last
// device), and whether the connection was bound at all.
type IRegistry interface {
	Bind(userID string, conn Conn) (online bool)
	Unbind(conn Conn) (userID string, offline bool, bound bool)
	UserFor(conn Conn) (string, bool)
	ConnectionsFor(userID string) []Conn
	IsOnline(userID string) bool
	OnlineUsers() []string
}

// IBroadcaster delivers one response to a resolved set of identities.
// Target resolution (group members, channel participants) is always the
// caller's job; the broadcaster only knows the registry.
type IBroadcaster interface {
	DeliverToUser(userID string, res domain.Response)
	DeliverToUsers(userIDs []string, res domain.Response, exclude string)
	BroadcastAll(res domain.Response, exclude string)
}

// IMembership is the read-only group membership collaborator.
// It returns an empty map when the group does not exist, never an error
// a fan-out would have to handle.
type IMembership interface {
	MembersOf(groupID string) map[string]domain.Member
}

// IParticipants is the read-only voice channel collaborator.
// Empty slice when the channel does not exist.
type IParticipants interface {
	ParticipantsOf(channelID string) []string
}

// HandlerFunc processes one inbound event for one connection.
// Handlers resolve the caller identity through the registry when
// authorization is required and reply with an error themselves;
// they never return one.
type HandlerFunc func(ctx context.Context, conn Conn, data json.RawMessage)

// Worker is a supervised background task. It should return promptly
// once its context is canceled.
type Worker interface {
	Run(ctx context.Context) error
}

// ISupervisor runs workers in goroutines, restarting them on crash
// until the context is canceled.
type ISupervisor interface {
	Run(ctx context.Context)
	Add(worker ...Worker) ISupervisor
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming on the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
