// Package monitor runs the per-frame positioning loop: frame, detector,
// distance and gaze estimate, readiness gate, reading.
//
// Readings are advisory. Nothing here blocks or gates the test itself.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/geometry"
	"github.com/teslashibe/go-acuity/pkg/readiness"
)

// DefaultInterval is roughly one display refresh.
const DefaultInterval = 33 * time.Millisecond

// ErrUnavailable is returned by Enable when there is no detector or no
// frame source.
var ErrUnavailable = errors.New("monitor: camera or detector unavailable")

// FrameSource produces JPEG frames.
type FrameSource interface {
	CaptureJPEG() ([]byte, error)
}

// Reading is the per-frame output.
type Reading struct {
	Distance    float64          // meters; NaN when no face was detected
	Forward     bool             // gaze forward
	Box         geometry.FaceBox // selected face, zero when none
	FrameWidth  int
	FrameHeight int
	Status      readiness.Status
	At          time.Time
}

// HasFace reports whether a face was detected.
func (r Reading) HasFace() bool {
	return !math.IsNaN(r.Distance)
}

type readingJSON struct {
	Distance     *float64             `json:"distance_m,omitempty"`
	Forward      bool                 `json:"forward"`
	Ready        bool                 `json:"ready"`
	Warning      string               `json:"warning,omitempty"`
	DistanceText string               `json:"distance_text"`
	Badge        string               `json:"badge"`
	Adjustment   readiness.Adjustment `json:"adjustment,omitempty"`
	Box          *geometry.FaceBox    `json:"box,omitempty"`
	FrameWidth   int                  `json:"frame_width,omitempty"`
	FrameHeight  int                  `json:"frame_height,omitempty"`
	At           time.Time            `json:"at"`
}

// MarshalJSON omits distance_m when no face was detected; JSON has no NaN.
func (r Reading) MarshalJSON() ([]byte, error) {
	out := readingJSON{
		Forward:      r.Forward,
		Ready:        r.Status.Ready,
		Warning:      r.Status.Warning,
		DistanceText: r.Status.DistanceText,
		Badge:        r.Status.Badge,
		Adjustment:   r.Status.Adjustment,
		FrameWidth:   r.FrameWidth,
		FrameHeight:  r.FrameHeight,
		At:           r.At,
	}
	if r.HasFace() {
		d := r.Distance
		out.Distance = &d
		box := r.Box
		out.Box = &box
	}
	return json.Marshal(out)
}

// Observe turns a detection result into a reading. Frame sizes of zero
// fall back to the geometry defaults.
func Observe(gate *readiness.Gate, res detection.Result) Reading {
	fw, fh := float64(res.FrameWidth), float64(res.FrameHeight)
	if fw <= 0 {
		fw = geometry.DefaultFrameWidth
	}
	if fh <= 0 {
		fh = geometry.DefaultFrameHeight
	}

	r := Reading{
		Distance:    math.NaN(),
		FrameWidth:  int(fw),
		FrameHeight: int(fh),
		At:          time.Now(),
	}

	if face, ok := res.Best(); ok {
		box := face.Box()
		r.Distance = geometry.EstimateDistance(box, fw)
		if r.HasFace() {
			r.Box = box
			r.Forward = geometry.EstimateGazeForward(box, fw, fh)
		}
	}

	r.Status = gate.Evaluate(r.Distance, r.Forward)
	return r
}

// Unavailable is the reading shown when no camera or detector exists. The
// test may still be taken.
func Unavailable() Reading {
	return Reading{
		Distance: math.NaN(),
		Status: readiness.Status{
			Warning:      readiness.MsgNoCamera,
			DistanceText: "Distance: No face detected",
			Badge:        "Adjust",
		},
		At: time.Now(),
	}
}

// Monitor evaluates frames against a gate. It can be fed frames one at a
// time (Evaluate) or poll a FrameSource in its own goroutine (Enable).
type Monitor struct {
	gate     *readiness.Gate
	detector detection.Detector
	logger   *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a monitor. detector may be nil, in which case every reading
// is Unavailable and Enable fails.
func New(gate *readiness.Gate, detector detection.Detector, logger *slog.Logger) *Monitor {
	if gate == nil {
		gate = readiness.New(readiness.DefaultBounds())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		gate:     gate,
		detector: detector,
		interval: DefaultInterval,
		logger:   logger.With("component", "monitor"),
	}
}

// Gate returns the readiness gate.
func (m *Monitor) Gate() *readiness.Gate {
	return m.gate
}

// Available reports whether a detector is configured.
func (m *Monitor) Available() bool {
	return m.detector != nil
}

// SetInterval changes the polling interval for subsequent Enable calls.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	m.mu.Lock()
	m.interval = d
	m.mu.Unlock()
}

// Evaluate runs the detector on one JPEG frame. A detector error is logged
// and reported as a no-face reading for this frame only.
func (m *Monitor) Evaluate(jpeg []byte) Reading {
	if m.detector == nil {
		return Unavailable()
	}

	res, err := m.detector.Detect(jpeg)
	if err != nil {
		m.logger.Debug("detection failed", "error", err)
		res = detection.Result{}
	}
	return Observe(m.gate, res)
}

// ObserveResult evaluates a detection made elsewhere, such as in the
// subject's browser.
func (m *Monitor) ObserveResult(res detection.Result) Reading {
	return Observe(m.gate, res)
}

// Enable starts polling source on its own goroutine, calling onReading for
// every frame. It stops on Disable or when ctx is cancelled and never
// restarts by itself. Enabling while running replaces the previous loop.
func (m *Monitor) Enable(ctx context.Context, source FrameSource, onReading func(Reading)) error {
	if m.detector == nil || source == nil {
		return ErrUnavailable
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	prevCancel, prevDone := m.cancel, m.done
	m.cancel, m.done = cancel, done
	interval := m.interval
	m.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	go m.run(loopCtx, source, interval, onReading, done)

	m.logger.Info("detection loop enabled", "interval", interval)
	return nil
}

// Disable stops the polling loop and waits for it to exit. It must not be
// called from onReading, which runs on the loop goroutine.
func (m *Monitor) Disable() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("detection loop disabled")
}

// Enabled reports whether the polling loop is running.
func (m *Monitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Monitor) run(ctx context.Context, source FrameSource, interval time.Duration, onReading func(Reading), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var r Reading
		frame, err := source.CaptureJPEG()
		if err != nil {
			m.logger.Debug("frame capture failed", "error", err)
			r = Observe(m.gate, detection.Result{})
		} else {
			r = m.Evaluate(frame)
		}

		if onReading != nil {
			onReading(r)
		}
	}
}
