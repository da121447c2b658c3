// Package kiosk serves the subject-facing devices over WebSocket. Each
// connected kiosk runs one test at a time and streams camera frames or
// browser-side face predictions for positioning feedback.
package kiosk

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-acuity/pkg/acuity"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/monitor"
	"github.com/teslashibe/go-acuity/pkg/protocol"
	"github.com/teslashibe/go-acuity/pkg/screening"
)

// Publisher receives dashboard events.
type Publisher interface {
	Publish(eventType, kioskID, testID string, data interface{}) error
}

// Connection represents a connected kiosk
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	mu            sync.Mutex
	lastSeen      time.Time
	testID        string
	cameraEnabled bool
	lastReading   *protocol.ReadingData
}

// Send sends a message to the kiosk
func (k *Connection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.Conn.WriteMessage(websocket.TextMessage, data)
}

func (k *Connection) state() (testID string, camera bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.testID, k.cameraEnabled
}

// Hub manages WebSocket connections from kiosks
type Hub struct {
	mu     sync.RWMutex
	kiosks map[string]*Connection

	tests   *screening.Service
	monitor *monitor.Monitor
	cameras *camera.Manager
	events  Publisher
	logger  *slog.Logger

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesReceived   atomic.Uint64
	answersReceived  atomic.Uint64
}

// NewHub creates a kiosk hub. mon may have no detector, in which case
// kiosks are told the camera is unavailable and can still take the test.
func NewHub(tests *screening.Service, mon *monitor.Monitor, cameras *camera.Manager, logger *slog.Logger) *Hub {
	if mon == nil {
		mon = monitor.New(nil, nil, logger)
	}
	if cameras == nil {
		cameras = camera.NewManager()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		kiosks:  make(map[string]*Connection),
		tests:   tests,
		monitor: mon,
		cameras: cameras,
		logger:  logger.With("component", "kiosk"),
	}
}

// SetPublisher sets where dashboard events go.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.events = p
	h.mu.Unlock()
}

func (h *Hub) publish(eventType, kioskID, testID string, data interface{}) {
	h.mu.RLock()
	p := h.events
	h.mu.RUnlock()
	if p == nil {
		return
	}
	if err := p.Publish(eventType, kioskID, testID, data); err != nil {
		h.logger.Warn("publish failed", "event", eventType, "error", err)
	}
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/kiosk", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/kiosk", websocket.New(h.handleKiosk))
	app.Get("/ws/kiosk/:id", websocket.New(h.handleKiosk))
}

// handleKiosk handles a kiosk WebSocket connection
func (h *Hub) handleKiosk(c *websocket.Conn) {
	kioskID := c.Params("id")
	if kioskID == "" {
		kioskID = uuid.New().String()
	}

	now := time.Now()
	k := &Connection{
		ID:            kioskID,
		Conn:          c,
		Connected:     now,
		lastSeen:      now,
		cameraEnabled: h.cameras.GetConfig().Enabled,
	}

	h.mu.Lock()
	if old, ok := h.kiosks[kioskID]; ok {
		old.Conn.Close()
	}
	h.kiosks[kioskID] = k
	count := len(h.kiosks)
	h.mu.Unlock()

	h.logger.Info("kiosk connected", "kiosk_id", kioskID, "total", count)
	h.publish("kiosk_connected", kioskID, "", nil)

	defer h.disconnect(k)

	h.sendCameraConfig(k)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("kiosk read ended", "kiosk_id", kioskID, "error", err)
			return
		}

		k.mu.Lock()
		k.lastSeen = time.Now()
		k.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(k, data)
	}
}

func (h *Hub) disconnect(k *Connection) {
	h.mu.Lock()
	if cur, ok := h.kiosks[k.ID]; ok && cur == k {
		delete(h.kiosks, k.ID)
	}
	count := len(h.kiosks)
	h.mu.Unlock()

	// An abandoned test cannot be resumed by a new connection.
	if testID, _ := k.state(); testID != "" {
		h.tests.Remove(testID)
	}

	h.logger.Info("kiosk disconnected", "kiosk_id", k.ID, "total", count)
	h.publish("kiosk_disconnected", k.ID, "", nil)
}

// handleMessage processes an incoming message from a kiosk
func (h *Hub) handleMessage(k *Connection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeStart:
		start, err := msg.GetStartData()
		if err != nil {
			h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
			return
		}
		h.handleStart(k, start)

	case protocol.TypeAnswer:
		h.answersReceived.Add(1)
		answer, err := msg.GetAnswerData()
		if err != nil {
			h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
			return
		}
		h.handleAnswer(k, answer.Direction)

	case protocol.TypeFrame:
		h.framesReceived.Add(1)
		frame, err := msg.GetFrameData()
		if err != nil {
			h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
			return
		}
		h.handleFrame(k, frame)

	case protocol.TypeFace:
		face, err := msg.GetFaceData()
		if err != nil {
			h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
			return
		}
		h.handleFace(k, face)

	case protocol.TypeCamera:
		toggle, err := msg.GetCameraToggle()
		if err != nil {
			h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
			return
		}
		h.SetCamera(k.ID, toggle.Enabled)

	case protocol.TypePing:
		h.sendPong(k, msg)

	default:
		h.sendError(k, protocol.ErrCodeBadMessage, "unknown message type "+string(msg.Type))
	}
}

func (h *Hub) handleStart(k *Connection, start *protocol.StartData) {
	testID, _ := k.state()

	var snap screening.Snapshot
	var err error
	if testID != "" {
		snap, err = h.tests.Restart(testID)
	}
	if testID == "" || errors.Is(err, screening.ErrTestNotFound) {
		snap = h.tests.Start()
	}

	k.mu.Lock()
	k.testID = snap.ID
	if start.WithCamera {
		k.cameraEnabled = true
	}
	k.mu.Unlock()

	h.logger.Info("test started on kiosk", "kiosk_id", k.ID, "test_id", snap.ID)
	h.publish("kiosk_test", k.ID, snap.ID, nil)

	if start.WithCamera {
		h.sendCameraConfig(k)
	}
	h.send(k, protocol.TypeTrial, TrialData(snap.ID, snap.Session.Trial))
}

func (h *Hub) handleAnswer(k *Connection, raw string) {
	testID, _ := k.state()
	if testID == "" {
		h.sendError(k, protocol.ErrCodeNoTest, "no test in progress; send start first")
		return
	}

	dir, err := acuity.ParseDirection(raw)
	if err != nil {
		h.sendError(k, protocol.ErrCodeBadDirection, err.Error())
		return
	}

	res, err := h.tests.Answer(testID, dir)
	switch {
	case errors.Is(err, acuity.ErrNotActive):
		h.sendError(k, protocol.ErrCodeFinished, "test already finished; send start to retry")
		return
	case errors.Is(err, screening.ErrTestNotFound):
		h.sendError(k, protocol.ErrCodeNoTest, err.Error())
		return
	case err != nil:
		h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
		return
	}

	out := res.Outcome
	if out.Result != nil {
		h.send(k, protocol.TypeEyeResult, EyeResultData(testID, out.Eye, *out.Result))
	}

	switch out.Kind {
	case acuity.Continue, acuity.EyeComplete:
		h.send(k, protocol.TypeTrial, TrialData(testID, out.Trial))
	case acuity.Finished:
		if res.Summary != nil {
			h.send(k, protocol.TypeSummary, SummaryData(testID, time.Now(), *res.Summary))
		}
	}
}

func (h *Hub) handleFrame(k *Connection, frame *protocol.FrameData) {
	if _, on := k.state(); !on {
		return
	}
	if !h.monitor.Available() {
		h.sendError(k, protocol.ErrCodeNoDetector, "no face detector configured")
		return
	}

	jpeg, err := frame.DecodeFrameData()
	if err != nil {
		h.sendError(k, protocol.ErrCodeBadMessage, err.Error())
		return
	}

	h.sendReading(k, h.monitor.Evaluate(jpeg))
}

func (h *Hub) handleFace(k *Connection, face *protocol.FaceData) {
	if _, on := k.state(); !on {
		return
	}
	res := detection.FromRaw(face.Predictions, face.FrameWidth, face.FrameHeight)
	h.sendReading(k, h.monitor.ObserveResult(res))
}

func (h *Hub) sendReading(k *Connection, r monitor.Reading) {
	data := ReadingData(r)
	k.mu.Lock()
	k.lastReading = &data
	k.mu.Unlock()
	h.send(k, protocol.TypeReading, data)
}

// SetCamera enables or disables a kiosk's camera. The kiosk is sent the
// resulting camera configuration.
func (h *Hub) SetCamera(kioskID string, enabled bool) error {
	k := h.GetKiosk(kioskID)
	if k == nil {
		return fiber.NewError(fiber.StatusNotFound, "kiosk not connected")
	}

	k.mu.Lock()
	k.cameraEnabled = enabled
	if !k.cameraEnabled {
		k.lastReading = nil
	}
	k.mu.Unlock()

	h.sendCameraConfig(k)
	return nil
}

// BroadcastCameraConfig pushes new capture constraints to every kiosk.
func (h *Hub) BroadcastCameraConfig(cfg camera.Config) error {
	for _, k := range h.GetKiosks() {
		_, on := k.state()
		msg, err := protocol.NewMessage(protocol.TypeCameraConfig, CameraConfigData(cfg, h.monitor.Available(), on))
		if err != nil {
			return err
		}
		h.messagesSent.Add(1)
		if err := k.Send(msg); err != nil {
			h.logger.Warn("camera config push failed", "kiosk_id", k.ID, "error", err)
		}
	}
	return nil
}

func (h *Hub) sendCameraConfig(k *Connection) {
	_, on := k.state()
	h.send(k, protocol.TypeCameraConfig, CameraConfigData(h.cameras.GetConfig(), h.monitor.Available(), on))
}

func (h *Hub) sendPong(k *Connection, ping *protocol.Message) {
	var id string
	if data, err := ping.GetPingData(); err == nil {
		id = data.ID
	}
	msg, err := protocol.NewPongMessage(id, ping.Timestamp, time.Now().UnixMilli())
	if err != nil {
		return
	}
	h.messagesSent.Add(1)
	k.Send(msg)
}

func (h *Hub) sendError(k *Connection, code, message string) {
	h.send(k, protocol.TypeError, protocol.ErrorData{Code: code, Message: message})
}

func (h *Hub) send(k *Connection, t protocol.MessageType, data interface{}) {
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		h.logger.Error("encode message", "type", t, "error", err)
		return
	}
	h.messagesSent.Add(1)
	if err := k.Send(msg); err != nil {
		h.logger.Debug("send failed", "kiosk_id", k.ID, "type", t, "error", err)
	}
}

// GetKiosk returns a kiosk connection by ID
func (h *Hub) GetKiosk(kioskID string) *Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.kiosks[kioskID]
}

// GetKiosks returns all connected kiosks
func (h *Hub) GetKiosks() []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	kiosks := make([]*Connection, 0, len(h.kiosks))
	for _, k := range h.kiosks {
		kiosks = append(kiosks, k)
	}
	return kiosks
}

// KioskCount returns the number of connected kiosks
func (h *Hub) KioskCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.kiosks)
}

// Stats contains hub statistics
type Stats struct {
	KioskCount       int    `json:"kiosk_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesReceived   uint64 `json:"frames_received"`
	AnswersReceived  uint64 `json:"answers_received"`
	DetectorReady    bool   `json:"detector_ready"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		KioskCount:       h.KioskCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		FramesReceived:   h.framesReceived.Load(),
		AnswersReceived:  h.answersReceived.Load(),
		DetectorReady:    h.monitor.Available(),
	}
}

// Info contains info about a connected kiosk
type Info struct {
	ID            string                `json:"id"`
	Connected     time.Time             `json:"connected"`
	LastSeen      time.Time             `json:"last_seen"`
	TestID        string                `json:"test_id,omitempty"`
	CameraEnabled bool                  `json:"camera_enabled"`
	LastReading   *protocol.ReadingData `json:"last_reading,omitempty"`
}

// GetKioskInfos returns info about all connected kiosks
func (h *Hub) GetKioskInfos() []Info {
	kiosks := h.GetKiosks()

	infos := make([]Info, 0, len(kiosks))
	for _, k := range kiosks {
		k.mu.Lock()
		infos = append(infos, Info{
			ID:            k.ID,
			Connected:     k.Connected,
			LastSeen:      k.lastSeen,
			TestID:        k.testID,
			CameraEnabled: k.cameraEnabled,
			LastReading:   k.lastReading,
		})
		k.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Connected.Before(infos[j].Connected) })
	return infos
}

// RegisterAPIRoutes registers API routes for kiosk management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	kiosks := api.Group("/kiosks")

	// List connected kiosks
	kiosks.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"kiosks": h.GetKioskInfos(),
			"count":  h.KioskCount(),
		})
	})

	// Get hub stats
	kiosks.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Toggle a kiosk camera
	kiosks.Post("/:id/camera", func(c *fiber.Ctx) error {
		var req protocol.CameraToggle
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		if err := h.SetCamera(c.Params("id"), req.Enabled); err != nil {
			return err
		}

		return c.JSON(fiber.Map{"status": "sent", "enabled": req.Enabled})
	})
}
