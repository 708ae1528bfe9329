// Package protocol defines the JSON control messages of the /ws/tts
// streaming endpoint. Audio travels as binary websocket frames between a
// "started" and a "done" (or "error") message.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeSynthesize MessageType = "synthesize" // Start a synthesis
	TypeCancel     MessageType = "cancel"     // Abort the running synthesis

	// Server → Client messages
	TypeStarted MessageType = "started" // Synthesis accepted, audio follows
	TypeDone    MessageType = "done"    // All audio sent
	TypeError   MessageType = "error"   // Synthesis failed

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = sonic.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return sonic.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return sonic.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// SynthesizeData requests one synthesis
type SynthesizeData struct {
	Text      string `json:"text"`
	Voice     string `json:"voice,omitempty"`     // ID or display name
	Protocol  string `json:"protocol,omitempty"`  // "default", "streaming"
	Operation string `json:"operation,omitempty"` // "submit", "query"
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// StartedData acknowledges a synthesis
type StartedData struct {
	ID    string `json:"id"`
	Voice string `json:"voice,omitempty"`
}

// DoneData closes a successful synthesis
type DoneData struct {
	ID        string `json:"id"`
	Bytes     int64  `json:"bytes"`
	LatencyMs int64  `json:"latency_ms"`
}

// ErrorData reports a failed synthesis
type ErrorData struct {
	ID      string `json:"id,omitempty"`
	Kind    string `json:"kind"` // tts error kind
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
