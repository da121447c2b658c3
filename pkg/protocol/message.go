// Package protocol defines the WebSocket message types for kiosk-server
// communication. It is shared by the server and the terminal kiosk.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-acuity/pkg/geometry"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Kiosk → Server messages
	TypeStart  MessageType = "start"  // Start or restart the test
	TypeAnswer MessageType = "answer" // Subject's direction response
	TypeFrame  MessageType = "frame"  // Camera frame for server-side detection
	TypeFace   MessageType = "face"   // Predictions from a browser-side detector
	TypeCamera MessageType = "camera" // Enable or disable the camera

	// Server → Kiosk messages
	TypeReading      MessageType = "reading"       // Distance and readiness for one frame
	TypeTrial        MessageType = "trial"         // Optotype to render
	TypeEyeResult    MessageType = "eye_result"    // One eye scored
	TypeSummary      MessageType = "summary"       // Test finished
	TypeCameraConfig MessageType = "camera_config" // Capture constraints and hint
	TypeError        MessageType = "error"         // Request rejected

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
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
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
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Kiosk → Server Message Types
// =============================================================================

// StartData starts a test. An existing test on the kiosk is restarted.
type StartData struct {
	WithCamera bool `json:"with_camera,omitempty"`
}

// AnswerData carries the subject's response.
type AnswerData struct {
	Direction string `json:"direction"` // "up", "down", "left", "right"
}

// FrameData contains a video frame
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// FaceData carries predictions from a detector running on the kiosk.
type FaceData struct {
	FrameWidth  int                      `json:"frame_width"`
	FrameHeight int                      `json:"frame_height"`
	Predictions []geometry.RawPrediction `json:"predictions"`
}

// CameraToggle enables or disables the kiosk camera.
type CameraToggle struct {
	Enabled bool `json:"enabled"`
}

// =============================================================================
// Server → Kiosk Message Types
// =============================================================================

// ReadingData is one frame's positioning feedback. DistanceM is absent when
// no face was detected.
type ReadingData struct {
	DistanceM    *float64 `json:"distance_m,omitempty"`
	Forward      bool     `json:"forward"`
	Ready        bool     `json:"ready"`
	Warning      string   `json:"warning,omitempty"`
	DistanceText string   `json:"distance_text"`
	Badge        string   `json:"badge"`
	Adjustment   string   `json:"adjustment,omitempty"` // "closer", "farther"
}

// TrialData is the optotype the kiosk should render.
type TrialData struct {
	TestID      string  `json:"test_id"`
	Eye         string  `json:"eye"`
	Direction   string  `json:"direction"`
	Rotation    int     `json:"rotation"` // degrees clockwise
	StepIndex   int     `json:"step_index"`
	Pixels      int     `json:"px"`
	Acuity      string  `json:"acuity"`
	Millimeters float64 `json:"mm"`
}

// EyeResultData reports one eye's score.
type EyeResultData struct {
	TestID      string  `json:"test_id"`
	Eye         string  `json:"eye"`
	StepIndex   int     `json:"step_index"`
	Acuity      string  `json:"acuity"`
	LogMAR      float64 `json:"logmar"`
	Millimeters float64 `json:"mm"`
}

// EyeMetrics is one row of the result table.
type EyeMetrics struct {
	Eye           string  `json:"eye"`
	Acuity        string  `json:"acuity"`
	LogMAR        float64 `json:"logmar"`
	Severity      string  `json:"severity"`
	Condition     string  `json:"condition"`
	TestDistanceM float64 `json:"test_distance_m"`
}

// SummaryData is the final result of a test.
type SummaryData struct {
	TestID             string       `json:"test_id"`
	When               time.Time    `json:"when"`
	Similar            bool         `json:"similar"`
	WeakerEye          string       `json:"weaker_eye,omitempty"`
	StrongerEye        string       `json:"stronger_eye,omitempty"`
	WeaknessPercentage int          `json:"weakness_percentage"`
	Text               string       `json:"text"`
	Eyes               []EyeMetrics `json:"eyes"`
}

// CameraConfigData tells the kiosk how to capture frames.
type CameraConfigData struct {
	Available  bool   `json:"available"` // a detector is configured
	Enabled    bool   `json:"enabled"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FacingMode string `json:"facing_mode"`
	Hint       string `json:"hint,omitempty"`
}

// ErrorData describes a rejected request.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadMessage   = "bad_message"
	ErrCodeBadDirection = "bad_direction"
	ErrCodeNoTest       = "no_test"
	ErrCodeFinished     = "finished"
	ErrCodeNoDetector   = "no_detector"
)

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
