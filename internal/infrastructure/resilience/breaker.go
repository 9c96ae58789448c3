package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
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

// Settings configures a breaker. Zero values pick the defaults noted on
// each field.
type Settings struct {
	// Probes is how many sends half-open admits, and how many must succeed
	// to close again (1)
	Probes uint32
	// ResetInterval clears the counts of a closed breaker (60s)
	ResetInterval time.Duration
	// OpenTimeout is how long the breaker stays open (30s)
	OpenTimeout time.Duration
	// Trip decides whether a closed breaker opens (5 consecutive failures)
	Trip func(counts Counts) bool
	// IsFailure classifies a send error (any error). The caller's own
	// cancellation is never classified.
	IsFailure func(err error) bool
	// OnStateChange observes transitions
	OnStateChange func(endpoint string, from State, to State)
	// Now overrides the clock, for tests
	Now func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.Probes == 0 {
		s.Probes = 1
	}
	if s.ResetInterval <= 0 {
		s.ResetInterval = 60 * time.Second
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.Trip == nil {
		s.Trip = func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	if s.IsFailure == nil {
		s.IsFailure = func(err error) bool {
			return err != nil
		}
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Counts are the outcomes seen in the current generation
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) recordSuccess() {
	c.Successes++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) recordFailure() {
	c.Failures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker stops sending to a collector that keeps failing, so a dead
// collector costs one fast error per report instead of a full timeout.
type Breaker struct {
	endpoint string
	settings Settings

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
}

// New creates a breaker guarding endpoint
func New(endpoint string, settings Settings) *Breaker {
	settings = settings.withDefaults()
	return &Breaker{
		endpoint: endpoint,
		settings: settings,
		state:    StateClosed,
		expiry:   settings.Now().Add(settings.ResetInterval),
	}
}

// Endpoint returns the guarded endpoint
func (b *Breaker) Endpoint() string {
	return b.endpoint
}

// State returns the current state, applying any pending timeout
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.advance(b.settings.Now())
	return state
}

// Counts returns a copy of the current generation's counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Allow reserves a send. On success the caller must invoke done exactly
// once with the send's error. A send the caller cancelled proves nothing
// about the collector: it is neither a success nor a failure, and its
// half-open slot is handed back.
func (b *Breaker) Allow() (done func(err error), err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, generation := b.advance(b.settings.Now())
	switch {
	case state == StateOpen:
		return nil, ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.Probes:
		return nil, ErrTooManyRequests
	}

	b.counts.Requests++

	var once sync.Once
	return func(err error) {
		once.Do(func() {
			if errors.Is(err, context.Canceled) {
				b.release(generation)
				return
			}
			b.record(generation, !b.settings.IsFailure(err))
		})
	}, nil
}

// Execute runs fn through Allow. A panic in fn counts as a failure and is
// re-raised.
func (b *Breaker) Execute(fn func() error) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			done(errPanicked)
			panic(p)
		}
	}()

	err = fn()
	done(err)
	return err
}

var errPanicked = errors.New("send panicked")

func (b *Breaker) record(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	state, current := b.advance(now)

	// Outcome of a send admitted before the last transition
	if current != generation {
		return
	}

	if success {
		b.counts.recordSuccess()
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.recordFailure()
	if state == StateHalfOpen || b.settings.Trip(b.counts) {
		b.transition(StateOpen, now)
	}
}

// release returns the slot of a send that produced no outcome
func (b *Breaker) release(generation uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, current := b.advance(b.settings.Now()); current == generation && b.counts.Requests > 0 {
		b.counts.Requests--
	}
}

// advance applies time-based transitions. Caller holds mu.
func (b *Breaker) advance(now time.Time) (State, uint64) {
	if now.After(b.expiry) {
		switch b.state {
		case StateClosed:
			b.reset(now)
		case StateOpen:
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, b.generation
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.reset(now)

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.endpoint, from, to)
	}
}

// reset starts a new generation. Half-open never expires on its own.
func (b *Breaker) reset(now time.Time) {
	b.generation++
	b.counts = Counts{}

	switch b.state {
	case StateClosed:
		b.expiry = now.Add(b.settings.ResetInterval)
	case StateOpen:
		b.expiry = now.Add(b.settings.OpenTimeout)
	default:
		b.expiry = farFuture
	}
}

var farFuture = time.Unix(1<<62, 0)
