package runtime

import (
	"chat-relay/domain"
	"chat-relay/observability"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliverToUsers_Excludes_Sender_All_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default())
	broadcaster := NewBroadcaster(registry, monitoring, slog.Default())

	// Given the sender on two devices and one recipient
	senderPhone := newFakeConn("sender-phone")
	senderLaptop := newFakeConn("sender-laptop")
	recipient := newFakeConn("recipient")
	registry.Bind("alice", senderPhone)
	registry.Bind("alice", senderLaptop)
	registry.Bind("bob", recipient)

	// When a fan-out excludes the sender
	broadcaster.DeliverToUsers([]string{"alice", "bob"},
		domain.Success("typing", map[string]string{"from": "alice"}), "alice")

	// Then only the recipient's device got it, neither sender device did
	req.Equal(1, recipient.sentCount())
	req.Zero(senderPhone.sentCount())
	req.Zero(senderLaptop.sentCount())
}

func TestBroadcaster_DeliverToUser_Reaches_Every_Device(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default())
	broadcaster := NewBroadcaster(registry, monitoring, slog.Default())

	phone := newFakeConn("phone")
	laptop := newFakeConn("laptop")
	registry.Bind("alice", phone)
	registry.Bind("alice", laptop)

	broadcaster.DeliverToUser("alice", domain.Success("message", nil))

	req.Equal(1, phone.sentCount())
	req.Equal(1, laptop.sentCount())
	req.Equal(uint64(2), monitoring.Snapshot().Deliveries)
}

func TestBroadcaster_Failing_Device_Skipped_Not_Fatal(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default())
	broadcaster := NewBroadcaster(registry, monitoring, slog.Default())

	// Given one dead device among live ones
	dead := newFakeConn("dead")
	dead.failSend = true
	live := newFakeConn("live")
	other := newFakeConn("other")
	registry.Bind("alice", dead)
	registry.Bind("alice", live)
	registry.Bind("bob", other)

	broadcaster.DeliverToUsers([]string{"alice", "bob"}, domain.Success("message", nil), "")

	// Then the failure neither blocked the user's other device nor the
	// next target
	req.Equal(1, live.sentCount())
	req.Equal(1, other.sentCount())
	stats := monitoring.Snapshot()
	req.Equal(uint64(1), stats.DeliveryFailures)
	req.Equal(uint64(2), stats.Deliveries)
}

func TestBroadcaster_Duplicate_Targets_Delivered_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default())
	broadcaster := NewBroadcaster(registry, monitoring, slog.Default())

	conn := newFakeConn("c1")
	registry.Bind("alice", conn)

	broadcaster.DeliverToUsers([]string{"alice", "alice", "alice"},
		domain.Success("message", nil), "")

	req.Equal(1, conn.sentCount())
}

func TestBroadcaster_Offline_Target_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitoring := observability.NewMonitoringManager(slog.Default())
	broadcaster := NewBroadcaster(registry, monitoring, slog.Default())

	// When delivering to someone with no live connection
	broadcaster.DeliverToUser("ghost", domain.Success("message", nil))

	// Then nothing fails and nothing is counted
	req.Zero(monitoring.Snapshot().Deliveries)
	req.Zero(monitoring.Snapshot().DeliveryFailures)
}
