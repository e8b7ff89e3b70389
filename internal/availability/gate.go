// Package availability holds the process-wide switch that pauses read
// access to stored readings.
package availability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// State is the current availability of the read path.
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
)

// Accepted status values for Apply. The Portuguese forms are the ones
// existing clients send.
const (
	StatusPause     = "pause"
	StatusRestart   = "restart"
	StatusPausar    = "pausar"
	StatusReiniciar = "reiniciar"
)

// ErrInvalidStatus is returned by Apply for an unknown status value.
var ErrInvalidStatus = errors.New("invalid availability status")

// Observer is told about every applied state. actor is the account that
// made the change.
type Observer func(ctx context.Context, state State, actor string)

// Gate is an atomic active/paused flag. The zero value is active. It is
// not persisted, so a restarted process is always active.
type Gate struct {
	paused atomic.Bool

	mu        sync.RWMutex
	observers []Observer
}

// NewGate returns an active Gate.
func NewGate() *Gate {
	return &Gate{}
}

// Paused reports whether reads are paused.
func (g *Gate) Paused() bool {
	return g.paused.Load()
}

// State returns the current state.
func (g *Gate) State() State {
	if g.Paused() {
		return StatePaused
	}
	return StateActive
}

// Apply sets the gate from a status value and notifies observers.
// Applying the current state again is allowed.
func (g *Gate) Apply(ctx context.Context, status, actor string) (State, error) {
	var state State
	switch status {
	case StatusPause, StatusPausar:
		g.paused.Store(true)
		state = StatePaused
	case StatusRestart, StatusReiniciar:
		g.paused.Store(false)
		state = StateActive
	default:
		return g.State(), ErrInvalidStatus
	}

	g.mu.RLock()
	observers := g.observers
	g.mu.RUnlock()
	for _, o := range observers {
		o(ctx, state, actor)
	}
	return state, nil
}

// Observe registers fn to be called after every successful Apply.
func (g *Gate) Observe(fn Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, fn)
}

type contextKey struct{}

// WithGate returns a context carrying g.
func WithGate(ctx context.Context, g *Gate) context.Context {
	return context.WithValue(ctx, contextKey{}, g)
}

// FromContext returns the Gate carried by ctx, or nil.
func FromContext(ctx context.Context) *Gate {
	g, _ := ctx.Value(contextKey{}).(*Gate)
	return g
}
