package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// systemEventType tags protocol-level error replies that cannot be
// attributed to a specific feature event.
const systemEventType = "system"

// Dispatcher routes one inbound envelope to the handler registered for
// its type tag. The table is built once at startup; adding an event
// type is a Register call, not a branch.
//
// Malformed envelopes and unknown tags produce exactly one error reply
// to the sender and nothing else. Neither is fatal to the connection.
type Dispatcher struct {
	table      map[string]contract.HandlerFunc
	monitoring *observability.MonitoringManager
	log        *slog.Logger
}

func NewDispatcher(monitoring *observability.MonitoringManager, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		table:      make(map[string]contract.HandlerFunc),
		monitoring: monitoring,
		log:        log,
	}
}

// Register adds a handler for an event type. Registering the same tag
// twice is a wiring bug, so the last registration wins loudly.
func (d *Dispatcher) Register(eventType string, handler contract.HandlerFunc) {
	if _, exists := d.table[eventType]; exists {
		d.log.Warn("Handler registered twice, overwriting", "type", eventType)
	}
	d.table[eventType] = handler
}

// Dispatch parses the envelope and invokes the matching handler.
// It never panics on bad input; handler panics are the session's
// problem, caught one frame up at the connection boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, conn contract.Conn, raw []byte) {
	var envelope domain.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		d.reply(conn, domain.Error(systemEventType, "Invalid JSON"))
		return
	}
	if envelope.Type == "" {
		d.reply(conn, domain.Error(systemEventType, "Missing event type"))
		return
	}

	handler, ok := d.table[envelope.Type]
	if !ok {
		d.log.Warn("Unknown event type received", "type", envelope.Type)
		d.reply(conn, domain.Error(systemEventType, fmt.Sprintf("Unknown type: %s", envelope.Type)))
		return
	}

	d.monitoring.IncrEventsRouted()
	handler(ctx, conn, envelope.Data)
}

func (d *Dispatcher) reply(conn contract.Conn, res domain.Response) {
	payload, err := json.Marshal(res)
	if err != nil {
		d.log.Error("Marshalling error reply failed", "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		d.log.Warn("Error reply not delivered", "error", err)
	}
}
