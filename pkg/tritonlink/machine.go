package tritonlink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

// State is a position in the workflow.
type State int

const (
	StateIdle State = iota
	StateCreated
	StatePageOpen
	StatePortalLoaded
	StateAuthenticated
	StateAuditSelectorOpen
	StateAuditReportOpen
	StateAuditExtracted
	StateHistoryOpen
	StateHistoryExtracted
	StateClosed
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "Idle",
	StateCreated:           "Created",
	StatePageOpen:          "PageOpen",
	StatePortalLoaded:      "PortalLoaded",
	StateAuthenticated:     "Authenticated",
	StateAuditSelectorOpen: "AuditSelectorOpen",
	StateAuditReportOpen:   "AuditReportOpen",
	StateAuditExtracted:    "AuditExtracted",
	StateHistoryOpen:       "HistoryOpen",
	StateHistoryExtracted:  "HistoryExtracted",
	StateClosed:            "Closed",
	StateFailed:            "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Observer receives step progress. Calls come from the goroutine running
// Scraper.Run.
type Observer interface {
	StepStarted(s Step)
	StepFinished(s Step, elapsed time.Duration, err error)
}

// machine runs the transition table once.
type machine struct {
	driver      driver.Driver
	transitions map[State]Step
	assertions  *Assertions
	observer    Observer

	state   State
	session *Session
	failed  *StepError
}

func newMachine(d driver.Driver, steps []Step, assertions *Assertions, o Observer) *machine {
	transitions := make(map[State]Step, len(steps))
	for _, s := range steps {
		transitions[s.From] = s
	}
	return &machine{
		driver:      d,
		transitions: transitions,
		assertions:  assertions,
		observer:    o,
		state:       StateIdle,
	}
}

// run advances until Closed or Failed. Only one step is in flight at a time.
func (m *machine) run(ctx context.Context) error {
	for !m.state.Terminal() {
		step, ok := m.transitions[m.state]
		if !ok {
			return m.fail(Step{Name: m.state.String()}, fmt.Errorf("no transition out of state %s", m.state))
		}
		if err := m.exec(ctx, step); err != nil {
			return m.fail(step, err)
		}
		logger.Debug("state transition", "from", step.From, "to", step.To, "step", step.Name)
		m.state = step.To
	}
	return nil
}

// exec runs a single step: arm its deadline, start the action together with
// its success detector, then wait for whichever outcome arrives first.
func (m *machine) exec(ctx context.Context, s Step) error {
	a := newAttempt(ctx, m, s)
	a.assertion = m.assertions.Arm(s.Name, s.Timeout, a.timedOut)

	log := logger.With("step", s.Name)
	log.Debug("step started", "state", m.state, "timeout", s.Timeout)
	if m.observer != nil {
		m.observer.StepStarted(s)
	}
	start := time.Now()

	go func() {
		if a.watch() {
			s.perform(a)
		}
	}()

	select {
	case <-a.done:
	case <-ctx.Done():
		a.fail(ErrUnexpectedTeardown, ctx.Err())
		<-a.done
	}

	elapsed := time.Since(start)
	if m.observer != nil {
		m.observer.StepFinished(s, elapsed, a.err)
	}
	if a.err != nil {
		log.Error("step failed", "state", m.state, "elapsed", elapsed, "error", a.err)
		return a.err
	}
	log.Info("step completed", "elapsed", elapsed)
	return nil
}

// fail moves the machine to Failed and releases the browser if still held.
func (m *machine) fail(s Step, err error) error {
	var se *StepError
	if !errors.As(err, &se) {
		se = stepError(s, m.state, ErrUnexpectedTeardown, err)
	}
	m.state = StateFailed
	m.failed = se
	if m.session != nil {
		if cerr := m.session.release(); cerr != nil {
			logger.Warn("browser close failed", "step", s.Name, "error", cerr)
		}
	}
	return se
}

// attempt is one execution of a step. Exactly one of succeed, fail or the
// deadline settles it; the assertion decides which.
type attempt struct {
	step      Step
	state     State
	machine   *machine
	session   *Session
	assertion *Assertion

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	mu       sync.Mutex
	regs     []*registration
	finished bool
}

func newAttempt(ctx context.Context, m *machine, s Step) *attempt {
	actx, cancel := context.WithCancel(ctx)
	return &attempt{
		step:    s,
		state:   m.state,
		machine: m,
		session: m.session,
		ctx:     actx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// succeed resolves the step. commit, when non-nil, runs after the step has
// been claimed and before waiters are released; its error fails the step.
// It reports whether this call settled the step.
func (a *attempt) succeed(commit func() error) bool {
	if !a.assertion.Cancel(true) {
		return false
	}
	var err error
	if commit != nil {
		err = commit()
	}
	a.finish(err)
	return true
}

// fail resolves the step with kind. It reports whether this call settled the step.
func (a *attempt) fail(kind, cause error) bool {
	if !a.assertion.Cancel(false) {
		return false
	}
	a.finish(a.errorf(kind, cause))
	return true
}

// timedOut is the assertion's deadline handler. The browser is released
// before the failure is reported.
func (a *attempt) timedOut() {
	if a.session != nil {
		if err := a.session.release(); err != nil {
			logger.Warn("browser close failed", "step", a.step.Name, "error", err)
		}
	}
	a.finish(a.errorf(ErrNavigationTimeout, fmt.Errorf("no success signal within %s", a.step.Timeout)))
}

func (a *attempt) errorf(kind, cause error) *StepError {
	return stepError(a.step, a.state, kind, cause)
}

func (a *attempt) finish(err error) {
	a.mu.Lock()
	regs := a.regs
	a.regs = nil
	a.finished = true
	a.mu.Unlock()
	for _, r := range regs {
		r.resolve()
	}
	a.cancel()
	a.err = err
	close(a.done)
}

// settled reports whether the step already has an outcome.
func (a *attempt) settled() bool {
	select {
	case <-a.done:
		return true
	default:
		return a.assertion.Fired()
	}
}

// track ties r to the attempt so it is removed when the step settles.
func (a *attempt) track(r *registration) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		r.resolve()
		return
	}
	a.regs = append(a.regs, r)
	a.mu.Unlock()
}
