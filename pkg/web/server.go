// Package web serves the acuity REST API and mounts the kiosk and
// dashboard websockets.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	requestlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/history"
	"github.com/teslashibe/go-acuity/pkg/hub"
	"github.com/teslashibe/go-acuity/pkg/kiosk"
	"github.com/teslashibe/go-acuity/pkg/monitor"
	"github.com/teslashibe/go-acuity/pkg/readiness"
	"github.com/teslashibe/go-acuity/pkg/screening"
)

// Options wires the server to its collaborators. Only Tests is required.
type Options struct {
	Tests   *screening.Service
	Monitor *monitor.Monitor
	Cameras *camera.Manager
	History history.Lister

	// Recorder, if set, reports each background save to dashboards.
	Recorder *history.Recorder

	// StaticDir, if set, is served at /.
	StaticDir string
	Version   string
	Debug     bool
	Logger    *slog.Logger
}

// Server is the HTTP server
type Server struct {
	app     *fiber.App
	port    string
	version string
	started time.Time
	logger  *slog.Logger

	tests   *screening.Service
	monitor *monitor.Monitor
	cameras *camera.Manager
	history history.Lister

	kiosks *kiosk.Hub
	events *hub.Hub
}

// NewServer creates the server and registers all routes
func NewServer(port string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tests := opts.Tests
	if tests == nil {
		tests = screening.NewService(screening.WithLogger(logger))
	}
	mon := opts.Monitor
	if mon == nil {
		mon = monitor.New(readiness.New(readiness.DefaultBounds()), nil, logger)
	}
	cameras := opts.Cameras
	if cameras == nil {
		cameras = camera.NewManager()
	}

	s := &Server{
		port:    port,
		version: opts.Version,
		started: time.Now(),
		logger:  logger.With("component", "web"),
		tests:   tests,
		monitor: mon,
		cameras: cameras,
		history: opts.History,
		kiosks:  kiosk.NewHub(tests, mon, cameras, logger),
		events:  hub.New("events", logger),
	}

	// Dashboards see kiosk presence and every test state change.
	s.kiosks.SetPublisher(s.events)
	tests.OnEvent(func(ev screening.Event) {
		s.events.Publish(string(ev.Type), "", ev.TestID, ev)
	})
	cameras.OnConfigChange = s.kiosks.BroadcastCameraConfig
	if opts.Recorder != nil {
		opts.Recorder.OnSaved = s.publishSaved
	}

	app := fiber.New(fiber.Config{
		AppName:               "Acuity",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if opts.Debug {
		app.Use(requestlog.New())
	}

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/steps", s.handleSteps)

	api.Get("/tests", s.handleListTests)
	api.Post("/tests", s.handleStartTest)
	api.Get("/tests/:id", s.handleGetTest)
	api.Post("/tests/:id/restart", s.handleRestartTest)
	api.Post("/tests/:id/answers", s.handleAnswer)
	api.Delete("/tests/:id", s.handleDeleteTest)

	api.Post("/readiness", s.handleReadiness)
	api.Post("/frames", s.handleFrame)
	api.Post("/faces", s.handleFaces)

	api.Get("/history", s.handleHistory)

	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Get("/camera/presets", s.handleCameraPresets)

	s.kiosks.RegisterAPIRoutes(api)

	// WebSocket routes
	s.kiosks.RegisterRoutes(app)
	app.Get("/ws/events", s.events.Handler())

	s.app = app
	return s
}

// Dashboard events for background history saves.
const (
	EventHistorySaved      = "history_saved"
	EventHistorySaveFailed = "history_save_failed"
)

func (s *Server) publishSaved(rec history.Record, receipt history.Receipt, err error) {
	if err != nil {
		s.events.Publish(EventHistorySaveFailed, "", "", fiber.Map{
			"record_id": rec.ID,
			"error":     err.Error(),
		})
		return
	}
	s.events.Publish(EventHistorySaved, "", "", receipt)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Kiosks returns the kiosk hub.
func (s *Server) Kiosks() *kiosk.Hub {
	return s.kiosks
}

// Events returns the dashboard event hub.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Start starts the event hub and blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("listening", "url", "http://localhost:"+s.port)
	go s.events.Run()
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server and disconnects dashboards.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.events.Stop()
	return err
}
