// Package handlers implements the feature side of the relay: one
// handler struct per concern, each registered on the dispatcher table.
// Handlers resolve the caller's identity through the registry, talk to
// their repositories for state, and hand fan-out targets to the
// broadcaster; they never touch other connections directly.
package handlers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"encoding/json"
	"log/slog"
)

// reply sends a response to the originating connection only.
func reply(log *slog.Logger, conn contract.Conn, res domain.Response) {
	payload, err := json.Marshal(res)
	if err != nil {
		log.Error("Marshalling reply failed", "type", res.Type, "error", err)
		return
	}
	if err := conn.Send(payload); err != nil {
		log.Warn("Reply not delivered", "type", res.Type, "error", err)
	}
}

// replyError is the error-path shorthand used across handlers.
func replyError(log *slog.Logger, conn contract.Conn, eventType, message string) {
	reply(log, conn, domain.Error(eventType, message))
}

// decode unmarshals an event payload, reporting a malformed one back
// to the sender. Handlers bail out when it returns false.
func decode[T any](log *slog.Logger, conn contract.Conn, eventType string, data json.RawMessage, out *T) bool {
	if err := json.Unmarshal(data, out); err != nil {
		replyError(log, conn, eventType, "Malformed payload")
		return false
	}
	return true
}
