package tritonlink

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/tritonscrape/internal/logger"
)

const (
	assertionPending int32 = iota
	assertionCancelled
	assertionFired
)

// Assertions schedules per-step deadlines. Each Arm returns its own handle;
// there is no lookup by step name.
type Assertions struct {
	mu      sync.Mutex
	pending map[*Assertion]struct{}
}

// NewAssertions returns an empty registry.
func NewAssertions() *Assertions {
	return &Assertions{pending: make(map[*Assertion]struct{})}
}

// Assertion is a one-shot failure trigger guarding a single step.
type Assertion struct {
	registry *Assertions
	task     string
	deadline time.Time
	timer    *time.Timer
	state    atomic.Int32
}

// Arm schedules onTimeout to run after timeout unless the returned assertion
// is cancelled first. A zero timeout schedules nothing; the assertion can still
// be cancelled so callers treat every step the same way.
func (r *Assertions) Arm(task string, timeout time.Duration, onTimeout func()) *Assertion {
	a := &Assertion{registry: r, task: task}

	r.mu.Lock()
	r.pending[a] = struct{}{}
	r.mu.Unlock()

	if timeout > 0 {
		a.deadline = time.Now().Add(timeout)
		a.timer = time.AfterFunc(timeout, func() {
			if !a.state.CompareAndSwap(assertionPending, assertionFired) {
				return
			}
			r.remove(a)
			logger.Debug("assertion fired", "step", task, "timeout", timeout)
			if onTimeout != nil {
				onTimeout()
			}
		})
	}
	logger.Debug("assertion armed", "step", task, "timeout", timeout)
	return a
}

// Cancel disarms the assertion. It reports whether the caller won the race:
// false means the deadline already fired or the assertion was already
// cancelled, and the caller must not resolve the step.
func (a *Assertion) Cancel(succeeded bool) bool {
	if a == nil {
		return false
	}
	if !a.state.CompareAndSwap(assertionPending, assertionCancelled) {
		return false
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.registry.remove(a)
	logger.Debug("assertion cancelled", "step", a.task, "succeeded", succeeded)
	return true
}

// Fired reports whether the deadline elapsed before Cancel.
func (a *Assertion) Fired() bool {
	return a.state.Load() == assertionFired
}

// Task returns the step name the assertion guards.
func (a *Assertion) Task() string { return a.task }

// Deadline returns when the assertion fires, or the zero time if it never does.
func (a *Assertion) Deadline() time.Time { return a.deadline }

// Pending returns the number of armed assertions that have neither fired nor
// been cancelled.
func (r *Assertions) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Assertions) remove(a *Assertion) {
	r.mu.Lock()
	delete(r.pending, a)
	r.mu.Unlock()
}
