package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker is probing")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit
	FailureThreshold int
	// Cooldown is how long the circuit stays open before a trial call
	Cooldown time.Duration
	// IsFailure decides whether an error counts against the source
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from, to State)
}

// Breaker implements the circuit breaker pattern
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a circuit breaker, filling unset settings with defaults
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}

	return &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current()
}

// Do runs fn if the circuit accepts it and records the outcome
func (b *Breaker) Do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	failed := true
	defer func() { b.after(failed) }()

	err := fn()
	failed = err != nil && b.settings.IsFailure(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return ErrTooManyRequests
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) after(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if state == StateHalfOpen {
		b.probing = false
	}

	if !failed {
		b.failures = 0
		if state == StateHalfOpen {
			b.setState(StateClosed)
		}
		return
	}

	b.failures++
	if state == StateHalfOpen || b.failures >= b.settings.FailureThreshold {
		b.setState(StateOpen)
	}
}

// current must be called with the lock held
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.failures = 0
	if state == StateOpen {
		b.openedAt = b.now()
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
