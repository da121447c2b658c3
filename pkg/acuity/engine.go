package acuity

import "sync"

// Engine serializes answers on one Session for callers that share it
// across goroutines (HTTP handlers, websocket readers).
type Engine struct {
	mu      sync.Mutex
	pick    Picker
	session Session
}

// NewEngine creates an engine with a started session. A nil picker uses
// RandomPicker.
func NewEngine(pick Picker) *Engine {
	if pick == nil {
		pick = RandomPicker
	}
	return &Engine{
		pick:    pick,
		session: NewSession(pick),
	}
}

// Restart discards all state and begins a new session.
func (e *Engine) Restart() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session = NewSession(e.pick)
	return e.session
}

// Session returns a copy of the current session.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Answer applies one answer. It returns ErrNotActive once the session has
// finished.
func (e *Engine) Answer(answer Direction) (Session, Outcome, error) {
	if !answer.Valid() {
		return Session{}, Outcome{}, ErrInvalidDirection
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.Active {
		return e.session, Outcome{}, ErrNotActive
	}

	next, out := Advance(e.session, answer, e.pick)
	e.session = next
	return next, out, nil
}
