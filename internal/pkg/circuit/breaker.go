// Package circuit provides a small circuit breaker used to shield venue
// REST endpoints from hammering while they are degraded.
package circuit

import (
	"sync"
	"time"

	"ordo/internal/logger"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker trips after `threshold` consecutive failures and stays open for
// `openFor`. Once the window elapses a single probe call is let through;
// its outcome decides whether the breaker closes again or re-opens.
type Breaker struct {
	name      string
	threshold int
	openFor   time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	onChange func(name string, from, to State)
}

func NewBreaker(name string, threshold int, openFor time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, openFor: openFor}
}

// OnStateChange replaces the default log line emitted on transitions.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if time.Since(b.openedAt) < b.openFor {
			return false
		}
		b.shift(HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		// one probe at a time
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	if b.state != Closed {
		b.shift(Closed)
	}
}

func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	switch b.state {
	case HalfOpen:
		b.openedAt = time.Now()
		b.shift(Open)
	case Closed:
		b.failures++
		if b.failures >= b.threshold {
			b.openedAt = time.Now()
			b.shift(Open)
		}
	}
}

func (b *Breaker) shift(to State) {
	from := b.state
	b.state = to
	if b.onChange != nil {
		go b.onChange(b.name, from, to)
		return
	}
	logger.Warnf("circuit %s: %s -> %s (failures=%d/%d, open_for=%s)",
		b.name, from, to, b.failures, b.threshold, b.openFor)
}
