package web

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-acuity/pkg/acuity"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/history"
	"github.com/teslashibe/go-acuity/pkg/protocol"
	"github.com/teslashibe/go-acuity/pkg/screening"
)

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, screening.ErrTestNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, acuity.ErrNotActive):
		return fiber.StatusConflict
	case errors.Is(err, acuity.ErrInvalidDirection):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.version,
		"kiosks":  s.kiosks.KioskCount(),
	})
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.kiosks.GetStats()
	return c.SendString(fmt.Sprintf(`# HELP acuity_kiosks Connected kiosk count
# TYPE acuity_kiosks gauge
acuity_kiosks %d

# HELP acuity_tests Tests held in memory
# TYPE acuity_tests gauge
acuity_tests %d

# HELP acuity_messages_received Total kiosk messages received
# TYPE acuity_messages_received counter
acuity_messages_received %d

# HELP acuity_messages_sent Total kiosk messages sent
# TYPE acuity_messages_sent counter
acuity_messages_sent %d

# HELP acuity_frames_received Total camera frames received
# TYPE acuity_frames_received counter
acuity_frames_received %d

# HELP acuity_answers_received Total answers received over websocket
# TYPE acuity_answers_received counter
acuity_answers_received %d

# HELP acuity_dashboard_dropped Dashboard events dropped on a full queue
# TYPE acuity_dashboard_dropped counter
acuity_dashboard_dropped %d
`, stats.KioskCount, s.tests.Count(), stats.MessagesReceived, stats.MessagesSent,
		stats.FramesReceived, stats.AnswersReceived, s.events.Dropped()))
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Uptime           string      `json:"uptime"`
	Tests            int         `json:"tests"`
	DetectorReady    bool        `json:"detector_ready"`
	DashboardClients int         `json:"dashboard_clients"`
	HistoryEnabled   bool        `json:"history_enabled"`
	Kiosks           interface{} `json:"kiosks"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		Tests:            s.tests.Count(),
		DetectorReady:    s.monitor.Available(),
		DashboardClients: s.events.ClientCount(),
		HistoryEnabled:   s.history != nil,
		Kiosks:           s.kiosks.GetStats(),
	})
}

func (s *Server) handleSteps(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"steps":            acuity.Steps[:],
		"streak_threshold": acuity.StreakThreshold,
		"ideal":            s.monitor.Gate().Bounds(),
	})
}

func (s *Server) handleListTests(c *fiber.Ctx) error {
	tests := s.tests.List()
	return c.JSON(fiber.Map{
		"tests": tests,
		"count": len(tests),
	})
}

func (s *Server) handleStartTest(c *fiber.Ctx) error {
	snap := s.tests.Start()
	return c.Status(fiber.StatusCreated).JSON(snap)
}

func (s *Server) handleGetTest(c *fiber.Ctx) error {
	snap, err := s.tests.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (s *Server) handleRestartTest(c *fiber.Ctx) error {
	snap, err := s.tests.Restart(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// AnswerRequest is the body of POST /api/tests/:id/answers.
type AnswerRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleAnswer(c *fiber.Ctx) error {
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	dir, err := acuity.ParseDirection(req.Direction)
	if err != nil {
		return err
	}

	res, err := s.tests.Answer(c.Params("id"), dir)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleDeleteTest(c *fiber.Ctx) error {
	if err := s.tests.Remove(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReadinessRequest is the body of POST /api/readiness. A null distance
// means no face was detected.
type ReadinessRequest struct {
	DistanceM *float64 `json:"distance_m"`
	Forward   bool     `json:"forward"`
}

func (s *Server) handleReadiness(c *fiber.Ctx) error {
	var req ReadinessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	distance := math.NaN()
	if req.DistanceM != nil {
		distance = *req.DistanceM
	}
	return c.JSON(s.monitor.Gate().Evaluate(distance, req.Forward))
}

// handleFrame runs server-side detection on a raw JPEG body.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	if !s.monitor.Available() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no face detector configured")
	}

	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty frame")
	}

	// The request buffer is reused after the handler returns.
	jpeg := make([]byte, len(body))
	copy(jpeg, body)

	return c.JSON(s.monitor.Evaluate(jpeg))
}

func (s *Server) handleFaces(c *fiber.Ctx) error {
	var req protocol.FaceData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res := detection.FromRaw(req.Predictions, req.FrameWidth, req.FrameHeight)
	return c.JSON(s.monitor.ObserveResult(res))
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.history == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, history.ErrNotConfigured.Error())
	}

	records, err := s.history.List(c.UserContext())
	if err != nil {
		return err
	}
	if limit := c.QueryInt("limit", 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	if records == nil {
		records = []history.Record{}
	}

	return c.JSON(fiber.Map{
		"records": records,
		"count":   len(records),
		"trend":   history.ComputeTrend(records),
	})
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.cameras.GetConfig())
}

func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.cameras.UpdateConfig(params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(s.cameras.GetConfig())
}

func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets": camera.Presets(),
		"names":   camera.PresetNames(),
	})
}
