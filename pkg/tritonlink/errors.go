package tritonlink

import (
	"errors"
	"fmt"
)

// Failure kinds. Check with errors.Is(err, tritonlink.ErrNavigationTimeout).
var (
	// ErrDriverAcquisition indicates the browser could not be launched.
	ErrDriverAcquisition = errors.New("driver acquisition failed")
	// ErrPageCreation indicates the primary page could not be opened.
	ErrPageCreation = errors.New("page creation failed")
	// ErrNavigationTimeout indicates a step's deadline elapsed before its success signal.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrURLRead indicates the page URL could not be read after a navigation.
	ErrURLRead = errors.New("url read failed")
	// ErrContentRetrieval indicates a document could not be retrieved or was unusable.
	ErrContentRetrieval = errors.New("content retrieval failed")
	// ErrUnexpectedTeardown indicates the session went away while a step was running.
	ErrUnexpectedTeardown = errors.New("unexpected teardown")
	// ErrAction indicates the browser rejected a navigation or script call.
	ErrAction = errors.New("browser action failed")
)

// Causes attached to ErrContentRetrieval.
var (
	// ErrSlotFilled is returned when a content slot would be written twice.
	ErrSlotFilled = errors.New("content slot already populated")
	// ErrLoginPage is returned when a retrieved document is the SSO login form,
	// which means the authenticated session was lost.
	ErrLoginPage = errors.New("document is the sso login page")
	// ErrContentTooSmall is returned when a document is below the configured minimum size.
	ErrContentTooSmall = errors.New("document below minimum size")
)

// StepError reports the step that ended the run.
// Use errors.As to recover it and errors.Is to match Kind or the cause.
type StepError struct {
	Step  string // step name, e.g. "Login to SSO"
	State State  // state the machine was in when the step ran
	Kind  error  // one of the Err* kind sentinels
	Err   error  // underlying cause, may be nil
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Failed %s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("Failed %s: %v: %v", e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stepError(s Step, state State, kind, cause error) *StepError {
	return &StepError{Step: s.Name, State: state, Kind: kind, Err: cause}
}
