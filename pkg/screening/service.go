// Package screening keeps the registry of running acuity tests. It wires
// the staircase engine to scoring and to the history recorder.
package screening

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-acuity/pkg/acuity"
	"github.com/teslashibe/go-acuity/pkg/history"
	"github.com/teslashibe/go-acuity/pkg/scoring"
)

// ErrTestNotFound is returned for an unknown test id.
var ErrTestNotFound = errors.New("screening: test not found")

// Snapshot is a read-only view of one test.
type Snapshot struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Session   acuity.Session   `json:"session"`
	Summary   *scoring.Summary `json:"summary,omitempty"`
	Finished  bool             `json:"finished"`
}

// AnswerResult is the outcome of one answer plus the test state after it.
type AnswerResult struct {
	Snapshot
	Outcome acuity.Outcome `json:"outcome"`
}

// EventType names a service event.
type EventType string

const (
	EventStarted   EventType = "test_started"
	EventRestarted EventType = "test_restarted"
	EventAnswered  EventType = "test_answered"
	EventFinished  EventType = "test_finished"
	EventRemoved   EventType = "test_removed"
)

// Event is emitted to the listener after each state change.
type Event struct {
	Type    EventType        `json:"type"`
	TestID  string           `json:"test_id"`
	Outcome *acuity.Outcome  `json:"outcome,omitempty"`
	Summary *scoring.Summary `json:"summary,omitempty"`
}

type test struct {
	id        string
	createdAt time.Time
	engine    *acuity.Engine

	mu      sync.Mutex
	summary *scoring.Summary
}

func (t *test) snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.engine.Session()
	return Snapshot{
		ID:        t.id,
		CreatedAt: t.createdAt,
		Session:   s,
		Summary:   t.summary,
		Finished:  s.Finished(),
	}
}

// Service manages tests by id.
type Service struct {
	mu    sync.RWMutex
	tests map[string]*test

	pick     acuity.Picker
	recorder *history.Recorder
	logger   *slog.Logger
	now      func() time.Time

	listenerMu sync.RWMutex
	listener   func(Event)
}

// Option configures a Service.
type Option func(*Service)

// WithPicker sets the direction picker used for new tests.
func WithPicker(p acuity.Picker) Option {
	return func(s *Service) { s.pick = p }
}

// WithRecorder saves every finished test through r.
func WithRecorder(r *history.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an empty registry.
func NewService(opts ...Option) *Service {
	s := &Service{
		tests:  make(map[string]*test),
		pick:   acuity.RandomPicker,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "screening")
	return s
}

// OnEvent registers a listener for state changes. It is called
// synchronously and must not block.
func (s *Service) OnEvent(fn func(Event)) {
	s.listenerMu.Lock()
	s.listener = fn
	s.listenerMu.Unlock()
}

func (s *Service) emit(ev Event) {
	s.listenerMu.RLock()
	fn := s.listener
	s.listenerMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// Start begins a new test on the right eye at the largest optotype.
func (s *Service) Start() Snapshot {
	t := &test{
		id:        uuid.New().String(),
		createdAt: s.now().UTC(),
		engine:    acuity.NewEngine(s.pick),
	}

	s.mu.Lock()
	s.tests[t.id] = t
	s.mu.Unlock()

	s.logger.Info("test started", "test_id", t.id)
	s.emit(Event{Type: EventStarted, TestID: t.id})
	return t.snapshot()
}

func (s *Service) lookup(id string) (*test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	return t, nil
}

// Get returns the current state of a test.
func (s *Service) Get(id string) (Snapshot, error) {
	t, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return t.snapshot(), nil
}

// Restart discards all progress of a test, including a finished one, and
// starts it over on the right eye.
func (s *Service) Restart(id string) (Snapshot, error) {
	t, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	t.mu.Lock()
	t.engine.Restart()
	t.summary = nil
	t.mu.Unlock()

	s.logger.Info("test restarted", "test_id", id)
	s.emit(Event{Type: EventRestarted, TestID: id})
	return t.snapshot(), nil
}

// Answer applies the subject's answer to the current trial. Answers on a
// finished test return acuity.ErrNotActive.
func (s *Service) Answer(id string, dir acuity.Direction) (AnswerResult, error) {
	t, err := s.lookup(id)
	if err != nil {
		return AnswerResult{}, err
	}

	t.mu.Lock()
	sess, out, err := t.engine.Answer(dir)
	if err != nil {
		t.mu.Unlock()
		return AnswerResult{}, fmt.Errorf("answer test %s: %w", id, err)
	}

	var summary *scoring.Summary
	if out.Kind == acuity.Finished {
		sum := scoring.Summarize(*sess.Right, *sess.Left)
		summary = &sum
		t.summary = summary
	}
	t.mu.Unlock()

	res := AnswerResult{
		Snapshot: Snapshot{
			ID:        id,
			CreatedAt: t.createdAt,
			Session:   sess,
			Summary:   summary,
			Finished:  sess.Finished(),
		},
		Outcome: out,
	}

	s.emit(Event{Type: EventAnswered, TestID: id, Outcome: &out})

	if summary != nil {
		s.logger.Info("test finished",
			"test_id", id,
			"right", summary.Right.Acuity,
			"left", summary.Left.Acuity,
			"similar", summary.Similar,
		)
		// Fire and forget; the summary is returned regardless of the save.
		s.recorder.Record(history.NewRecord(s.now(), *summary))
		s.emit(Event{Type: EventFinished, TestID: id, Summary: summary})
	}

	return res, nil
}

// Remove deletes a test.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	_, ok := s.tests[id]
	delete(s.tests, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	s.emit(Event{Type: EventRemoved, TestID: id})
	return nil
}

// List returns all tests, oldest first.
func (s *Service) List() []Snapshot {
	s.mu.RLock()
	tests := make([]*test, 0, len(s.tests))
	for _, t := range s.tests {
		tests = append(tests, t)
	}
	s.mu.RUnlock()

	out := make([]Snapshot, len(tests))
	for i, t := range tests {
		out[i] = t.snapshot()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of tests held.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tests)
}
