// acuity-distance: live viewing-distance check from a local webcam
// Runs the detector on every frame and prints the distance, gaze and
// readiness guidance the kiosk would show.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-acuity/internal/config"
	acuitylog "github.com/teslashibe/go-acuity/internal/log"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/detection/yunet"
	"github.com/teslashibe/go-acuity/pkg/monitor"
	"github.com/teslashibe/go-acuity/pkg/readiness"
)

var (
	device   = flag.Int("device", 0, "Webcam device index")
	model    = flag.String("model", "", "YuNet ONNX model path (overrides ACUITY_MODEL_PATH)")
	preset   = flag.String("preset", "default", "Capture preset: default, low, hd")
	interval = flag.Duration("interval", monitor.DefaultInterval, "Time between frames")
	debug    = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if *model != "" {
		cfg.ModelPath = *model
	}
	level := cfg.LogLevel
	if *debug {
		level = "debug"
	}
	acuitylog.Init(level)
	logger := acuitylog.L()

	capture := camera.GetPreset(*preset)
	if capture == nil {
		log.Fatalf("❌ Unknown preset %q (have %v)", *preset, camera.PresetNames())
	}

	dcfg := detection.DefaultConfig()
	dcfg.ModelPath = cfg.ModelPath
	det, err := yunet.New(dcfg)
	if err != nil {
		log.Fatalf("❌ Detector: %v", err)
	}
	defer det.Close()

	cam, err := yunet.OpenWebcam(*device, capture.Width, capture.Height)
	if err != nil {
		log.Fatalf("❌ %s", readiness.MsgNoCamera)
	}
	defer cam.Close()

	gate := readiness.New(readiness.Bounds{Min: cfg.IdealMin, Max: cfg.IdealMax})
	mon := monitor.New(gate, det, logger)
	mon.SetInterval(*interval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println()
	fmt.Println("📏 " + readiness.MsgStartHint)
	fmt.Println("   Ctrl+C to stop.")
	fmt.Println()

	last := time.Time{}
	err = mon.Enable(ctx, cam, func(r monitor.Reading) {
		// One line per 200ms keeps the terminal readable at 30fps.
		if r.At.Sub(last) < 200*time.Millisecond {
			return
		}
		last = r.At
		fmt.Printf("\r%-8s %-22s %-9s %-60s", r.Status.Badge, r.Status.DistanceText, gaze(r), r.Status.Warning)
	})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	<-ctx.Done()
	mon.Disable()
	fmt.Println()
}

func gaze(r monitor.Reading) string {
	switch {
	case !r.HasFace():
		return ""
	case r.Forward:
		return "forward"
	}
	return "away"
}
