// Package hub provides the dashboard event broadcast hub
// using the channel-based fan-out pattern.
package hub

import "time"

// Message represents a message to be broadcast to clients
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// Event is what dashboards receive.
type Event struct {
	Type    string      `json:"type"`
	KioskID string      `json:"kiosk_id,omitempty"`
	TestID  string      `json:"test_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	At      time.Time   `json:"at"`
}
