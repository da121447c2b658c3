package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-acuity/pkg/detection"
	"github.com/teslashibe/go-acuity/pkg/readiness"
)

// centered returns a frontal face of the given pixel width centered in a
// 640x480 frame.
func centered(width float64) detection.Face {
	h := width * 1.1
	return detection.BoxFace(320-width/2, 240-h/2, 320+width/2, 240+h/2, 0.9)
}

type staticSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *staticSource) CaptureJPEG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte{0xff, 0xd8}, nil
}

func TestObserve(t *testing.T) {
	gate := readiness.New(readiness.DefaultBounds())

	tests := []struct {
		name    string
		res     detection.Result
		ready   bool
		warning string
		hasFace bool
	}{
		{
			name:    "no face",
			res:     detection.Result{FrameWidth: 640, FrameHeight: 480},
			warning: readiness.MsgNoFace,
		},
		{
			// 640*4.15*160 / (w*6.4) = 0.4m at w=166
			name:    "in range and centered",
			res:     detection.Result{Faces: []detection.Face{centered(166)}, FrameWidth: 640, FrameHeight: 480},
			ready:   true,
			hasFace: true,
		},
		{
			name:    "too close",
			res:     detection.Result{Faces: []detection.Face{centered(400)}, FrameWidth: 640, FrameHeight: 480},
			warning: readiness.MsgAdjust,
			hasFace: true,
		},
		{
			name: "off center",
			res: detection.Result{
				Faces:      []detection.Face{detection.BoxFace(0, 0, 166, 183, 0.9)},
				FrameWidth: 640, FrameHeight: 480,
			},
			warning: readiness.MsgFaceCamera,
			hasFace: true,
		},
		{
			name:    "degenerate box is no face",
			res:     detection.Result{Faces: []detection.Face{detection.BoxFace(10, 10, 10, 50, 1)}},
			warning: readiness.MsgNoFace,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := Observe(gate, tc.res)
			assert.Equal(t, tc.ready, r.Status.Ready)
			assert.Equal(t, tc.warning, r.Status.Warning)
			assert.Equal(t, tc.hasFace, r.HasFace())
		})
	}
}

func TestObserve_DefaultsFrameSize(t *testing.T) {
	r := Observe(readiness.New(readiness.DefaultBounds()), detection.Result{})
	assert.Equal(t, 640, r.FrameWidth)
	assert.Equal(t, 480, r.FrameHeight)
	assert.True(t, math.IsNaN(r.Distance))
}

func TestReading_MarshalJSON(t *testing.T) {
	gate := readiness.New(readiness.DefaultBounds())

	noFace, err := json.Marshal(Observe(gate, detection.Result{}))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(noFace, &m))
	assert.NotContains(t, m, "distance_m")
	assert.NotContains(t, m, "box")
	assert.Equal(t, "Distance: No face detected", m["distance_text"])

	withFace, err := json.Marshal(Observe(gate, detection.Result{Faces: []detection.Face{centered(166)}, FrameWidth: 640, FrameHeight: 480}))
	require.NoError(t, err)
	m = nil
	require.NoError(t, json.Unmarshal(withFace, &m))
	assert.InDelta(t, 0.4, m["distance_m"], 0.01)
	assert.Equal(t, true, m["ready"])
}

func TestMonitor_EvaluateDetectorError(t *testing.T) {
	mock := detection.NewMock(detection.Result{Faces: []detection.Face{centered(166)}, FrameWidth: 640, FrameHeight: 480})
	mock.FailNext(errors.New("inference failed"))
	m := New(nil, mock, nil)

	first := m.Evaluate(nil)
	assert.False(t, first.HasFace())
	assert.Equal(t, readiness.MsgNoFace, first.Status.Warning)

	second := m.Evaluate(nil)
	assert.True(t, second.HasFace())
	assert.True(t, second.Status.Ready)
}

func TestMonitor_NoDetector(t *testing.T) {
	m := New(nil, nil, nil)
	assert.False(t, m.Available())

	r := m.Evaluate([]byte{1})
	assert.Equal(t, readiness.MsgNoCamera, r.Status.Warning)
	assert.False(t, r.Status.Ready)

	err := m.Enable(context.Background(), &staticSource{}, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMonitor_EnableRequiresSource(t *testing.T) {
	m := New(nil, detection.NewMock(), nil)
	assert.ErrorIs(t, m.Enable(context.Background(), nil, nil), ErrUnavailable)
}

func TestMonitor_Loop(t *testing.T) {
	mock := detection.NewMock(detection.Result{Faces: []detection.Face{centered(166)}, FrameWidth: 640, FrameHeight: 480})
	m := New(nil, mock, nil)
	m.SetInterval(2 * time.Millisecond)

	readings := make(chan Reading, 100)
	require.NoError(t, m.Enable(context.Background(), &staticSource{}, func(r Reading) {
		select {
		case readings <- r:
		default:
		}
	}))
	assert.True(t, m.Enabled())

	select {
	case r := <-readings:
		assert.True(t, r.Status.Ready)
	case <-time.After(time.Second):
		t.Fatal("no reading from loop")
	}

	m.Disable()
	assert.False(t, m.Enabled())

	calls := mock.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, mock.Calls(), "loop must not restart after Disable")
}

func TestMonitor_LoopSurvivesCaptureErrors(t *testing.T) {
	src := &staticSource{err: errors.New("no frame")}
	m := New(nil, detection.NewMock(), nil)
	m.SetInterval(2 * time.Millisecond)

	var mu sync.Mutex
	count := 0
	require.NoError(t, m.Enable(context.Background(), src, func(r Reading) {
		mu.Lock()
		count++
		mu.Unlock()
		assert.False(t, r.HasFace())
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 3
	}, time.Second, 5*time.Millisecond)

	m.Disable()
}

func TestMonitor_ContextCancelStopsLoop(t *testing.T) {
	m := New(nil, detection.NewMock(), nil)
	m.SetInterval(2 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Enable(ctx, &staticSource{}, nil))
	cancel()

	require.Eventually(t, func() bool { return !m.Enabled() }, time.Second, 5*time.Millisecond)
	m.Disable()
}

func TestMonitor_ConcurrentEnableLeavesOneLoop(t *testing.T) {
	m := New(nil, detection.NewMock(), nil)
	m.SetInterval(2 * time.Millisecond)

	sources := make([]*staticSource, 8)
	var wg sync.WaitGroup
	for i := range sources {
		sources[i] = &staticSource{}
		wg.Add(1)
		go func(src *staticSource) {
			defer wg.Done()
			assert.NoError(t, m.Enable(context.Background(), src, nil))
		}(sources[i])
	}
	wg.Wait()
	require.True(t, m.Enabled())

	m.Disable()
	assert.False(t, m.Enabled())

	before := make([]int, len(sources))
	for i, src := range sources {
		src.mu.Lock()
		before[i] = src.calls
		src.mu.Unlock()
	}
	time.Sleep(20 * time.Millisecond)
	for i, src := range sources {
		src.mu.Lock()
		assert.Equal(t, before[i], src.calls, "source %d still polled after Disable", i)
		src.mu.Unlock()
	}
}
