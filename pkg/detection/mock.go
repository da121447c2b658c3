package detection

import (
	"sync"

	"github.com/teslashibe/go-acuity/pkg/geometry"
)

// Mock is a scripted Detector for tests and demos. Each Detect call returns
// the next queued result; once the queue is drained the last one repeats.
type Mock struct {
	mu      sync.Mutex
	results []Result
	errs    []error
	calls   int
	closed  bool
}

// NewMock creates a mock returning results in order.
func NewMock(results ...Result) *Mock {
	return &Mock{results: results}
}

// FailNext queues an error for the next call.
func (m *Mock) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Detect implements Detector.
func (m *Mock) Detect(jpeg []byte) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return Result{}, err
	}

	if len(m.results) == 0 {
		return Result{}, nil
	}
	res := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	return res, nil
}

// Calls returns the number of Detect calls so far.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close implements Detector.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// BoxFace is a convenience constructor for a box-shaped face.
func BoxFace(left, top, right, bottom, confidence float64) Face {
	return Face{
		Prediction: geometry.BoxPrediction{
			TopLeft:     geometry.Point{X: left, Y: top},
			BottomRight: geometry.Point{X: right, Y: bottom},
		},
		Confidence: confidence,
	}
}
