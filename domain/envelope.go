// Package domain contains the core concepts of the relay: identities,
// groups, messages, voice participants and the wire envelope.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the shape shared by every inbound frame.
// The payload stays raw until a handler decodes it; the router
// only needs the type tag.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Response is the shape shared by every outbound frame.
// Message is only present on errors.
type Response struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Success builds a success response for the given event type.
func Success(eventType string, data any) Response {
	return Response{
		Type:      eventType,
		Status:    StatusSuccess,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Error builds an error response for the given event type.
func Error(eventType, message string) Response {
	return Response{
		Type:      eventType,
		Status:    StatusError,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
}
