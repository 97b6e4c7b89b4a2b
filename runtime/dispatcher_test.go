package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDispatcher() (*Dispatcher, *observability.MonitoringManager) {
	monitoring := observability.NewMonitoringManager(slog.Default())
	return NewDispatcher(monitoring, slog.Default()), monitoring
}

func lastResponse(t *testing.T, conn *fakeConn) domain.Response {
	t.Helper()
	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.NotEmpty(t, conn.sent)

	var res domain.Response
	require.NoError(t, json.Unmarshal(conn.sent[len(conn.sent)-1], &res))
	return res
}

func TestDispatcher_Routes_To_Registered_Handler(t *testing.T) {
	req := require.New(t)
	dispatcher, monitoring := newTestDispatcher()
	conn := newFakeConn("c1")

	var gotData json.RawMessage
	dispatcher.Register("ping", func(_ context.Context, _ contract.Conn, data json.RawMessage) {
		gotData = data
	})

	dispatcher.Dispatch(context.Background(), conn, []byte(`{"type":"ping","data":{"n":1}}`))

	req.JSONEq(`{"n":1}`, string(gotData))
	req.Equal(uint64(1), monitoring.Snapshot().EventsRouted)
}

func TestDispatcher_Unknown_Type_One_Error_Reply(t *testing.T) {
	req := require.New(t)
	dispatcher, monitoring := newTestDispatcher()
	conn := newFakeConn("c1")

	dispatcher.Dispatch(context.Background(), conn, []byte(`{"type":"bogus"}`))

	// Then exactly one error reply, nothing routed
	req.Equal(1, conn.sentCount())
	res := lastResponse(t, conn)
	req.Equal(domain.StatusError, res.Status)
	req.Equal("system", res.Type)
	req.Equal("Unknown type: bogus", res.Message)
	req.Zero(monitoring.Snapshot().EventsRouted)
}

func TestDispatcher_Invalid_JSON_One_Error_Reply(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher()
	conn := newFakeConn("c1")

	dispatcher.Dispatch(context.Background(), conn, []byte(`{not json`))

	req.Equal(1, conn.sentCount())
	res := lastResponse(t, conn)
	req.Equal(domain.StatusError, res.Status)
	req.Equal("Invalid JSON", res.Message)
}

func TestDispatcher_Missing_Type_One_Error_Reply(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher()
	conn := newFakeConn("c1")

	dispatcher.Dispatch(context.Background(), conn, []byte(`{"data":{"x":1}}`))

	req.Equal(1, conn.sentCount())
	res := lastResponse(t, conn)
	req.Equal(domain.StatusError, res.Status)
	req.Equal("Missing event type", res.Message)
}

func TestDispatcher_Bad_Envelope_Does_Not_Kill_Connection(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher()
	conn := newFakeConn("c1")

	handled := 0
	dispatcher.Register("ping", func(_ context.Context, _ contract.Conn, _ json.RawMessage) {
		handled++
	})

	// Given garbage arrived first
	dispatcher.Dispatch(context.Background(), conn, []byte(`garbage`))

	// When a valid event follows on the same connection
	dispatcher.Dispatch(context.Background(), conn, []byte(`{"type":"ping"}`))

	// Then the connection still works
	req.Equal(1, handled)
}
