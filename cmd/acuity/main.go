// acuity: visual-acuity screening server
// Serves the REST API, kiosk websockets and dashboard events, and records
// finished tests to local and remote history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-acuity/internal/config"
	acuitylog "github.com/teslashibe/go-acuity/internal/log"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/detection/yunet"
	"github.com/teslashibe/go-acuity/pkg/history"
	"github.com/teslashibe/go-acuity/pkg/monitor"
	"github.com/teslashibe/go-acuity/pkg/readiness"
	"github.com/teslashibe/go-acuity/pkg/screening"
	"github.com/teslashibe/go-acuity/pkg/web"
)

var version = "1.0.0"

type flags struct {
	port       string
	model      string
	store      string
	static     string
	noDetector bool
	debug      bool
}

func main() {
	cfg, f := loadConfig()

	acuitylog.Init(cfg.LogLevel)
	logger := acuitylog.With("version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sink, lister, closeStore, err := openHistory(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("❌ History store: %v", err)
	}
	defer closeStore()

	recorder := history.NewRecorder(sink, logger)

	var det detection.Detector
	if !f.noDetector {
		dcfg := detection.DefaultConfig()
		dcfg.ModelPath = cfg.ModelPath
		d, err := yunet.New(dcfg)
		if err != nil {
			logger.Warn("face detector unavailable, kiosks can still take the test", "error", err)
		} else {
			det = d
			defer d.Close()
		}
	}

	gate := readiness.New(readiness.Bounds{Min: cfg.IdealMin, Max: cfg.IdealMax})
	mon := monitor.New(gate, det, logger)

	tests := screening.NewService(
		screening.WithRecorder(recorder),
		screening.WithLogger(logger),
	)

	srv := web.NewServer(cfg.Port, web.Options{
		Tests:     tests,
		Monitor:   mon,
		Cameras:   camera.NewManager(),
		History:   lister,
		Recorder:  recorder,
		StaticDir: cfg.StaticDir,
		Version:   version,
		Debug:     f.debug,
		Logger:    logger,
	})

	fmt.Println()
	fmt.Println("👁  Acuity v" + version)
	fmt.Printf("   REST:      http://localhost:%s/api\n", cfg.Port)
	fmt.Printf("   Kiosk:     ws://localhost:%s/ws/kiosk\n", cfg.Port)
	fmt.Printf("   Dashboard: ws://localhost:%s/ws/events\n", cfg.Port)
	fmt.Println()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			log.Fatalf("❌ Server error: %v", err)
		}
	}

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	recorder.Wait()
}

// loadConfig reads config sources and applies command line flags.
func loadConfig() (config.Config, flags) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	var f flags
	flag.StringVar(&f.port, "port", "", "HTTP server port (overrides ACUITY_PORT)")
	flag.StringVar(&f.model, "model", "", "YuNet ONNX model path")
	flag.StringVar(&f.store, "store", "", "Local history store: json, sqlite or none")
	flag.StringVar(&f.static, "static", "", "Directory of kiosk pages to serve at /")
	flag.BoolVar(&f.noDetector, "no-detector", false, "Disable server-side face detection")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging and request logs")
	flag.Parse()

	if f.port != "" {
		cfg.Port = f.port
	}
	if f.model != "" {
		cfg.ModelPath = f.model
	}
	if f.store != "" {
		cfg.LocalStore = f.store
	}
	if f.static != "" {
		cfg.StaticDir = f.static
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "config:", e)
		}
		os.Exit(1)
	}
	return cfg, f
}
