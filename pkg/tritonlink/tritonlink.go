// Package tritonlink drives a browser through the TritonLink portal and
// captures the degree audit report and academic history documents.
//
// The workflow is a fixed sequence of ten steps run as a small state machine.
// Every step is bounded by a deadline, waits for a browser event that proves it
// succeeded, and tears the browser down on the first failure.
package tritonlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

// Result is the outcome of a run. On failure it still describes how far the
// run got.
type Result struct {
	State     State
	Pages     int
	Documents map[string]Document
	Duration  time.Duration
}

// Content returns slot name to raw HTML for every filled slot.
func (r *Result) Content() map[string]string {
	out := make(map[string]string, len(r.Documents))
	for slot, doc := range r.Documents {
		out[slot] = doc.HTML
	}
	return out
}

// Scraper runs the portal workflow.
type Scraper struct {
	driver driver.Driver
	config Config
	steps  []Step
}

// New creates a Scraper that launches browsers with d.
func New(d driver.Driver, creds Credentials, opts ...Option) (*Scraper, error) {
	if d == nil {
		return nil, errors.New("driver is required")
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: username and password are required")
	}

	return &Scraper{
		driver: d,
		config: cfg,
		steps:  buildSteps(cfg, creds),
	}, nil
}

// Steps returns the step table in execution order.
func (s *Scraper) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Run executes the workflow once. On success both content slots are filled
// and the browser is closed. On failure the error is a *StepError naming the
// step that failed, and the browser has been closed.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	m := newMachine(s.driver, s.steps, NewAssertions(), s.config.Observer)

	logger.Debug("workflow starting", "steps", len(s.steps), "portal", s.config.Endpoints.Portal)
	err := m.run(ctx)

	result := &Result{
		State:     m.state,
		Documents: map[string]Document{},
		Duration:  time.Since(start),
	}
	if m.session != nil {
		result.Pages = m.session.PageCount()
		result.Documents = m.session.Documents()
	}

	if err != nil {
		return result, err
	}
	logger.Info("workflow complete", "documents", len(result.Documents), "duration", result.Duration)
	return result, nil
}
