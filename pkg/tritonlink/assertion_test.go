package tritonlink

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertions_FiresAfterTimeout(t *testing.T) {
	r := NewAssertions()
	fired := make(chan struct{})

	a := r.Arm(StepLogin, 20*time.Millisecond, func() { close(fired) })
	assert.Equal(t, 1, r.Pending())
	assert.False(t, a.Deadline().IsZero())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("assertion did not fire")
	}
	assert.True(t, a.Fired())
	assert.Equal(t, 0, r.Pending())
	assert.False(t, a.Cancel(true), "cancel after firing must lose")
}

func TestAssertions_CancelBeforeTimeout(t *testing.T) {
	r := NewAssertions()
	var calls atomic.Int32

	a := r.Arm(StepOpenPortal, 30*time.Millisecond, func() { calls.Add(1) })
	require.True(t, a.Cancel(true))
	assert.Equal(t, 0, r.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, a.Fired())
}

func TestAssertions_CancelIsOneShot(t *testing.T) {
	r := NewAssertions()
	a := r.Arm(StepOpenDegreeAudit, time.Second, nil)

	assert.True(t, a.Cancel(true))
	assert.False(t, a.Cancel(false))
	assert.False(t, a.Cancel(true))
}

func TestAssertions_ZeroTimeoutNeverFires(t *testing.T) {
	r := NewAssertions()
	var calls atomic.Int32

	a := r.Arm(StepOpenBrowser, 0, func() { calls.Add(1) })
	assert.True(t, a.Deadline().IsZero())
	assert.Equal(t, 1, r.Pending())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, a.Cancel(false))
	assert.Equal(t, 0, r.Pending())
}

func TestAssertions_HandlesAreIndependent(t *testing.T) {
	r := NewAssertions()
	first := r.Arm(StepGetDegreeAudit, time.Second, nil)
	second := r.Arm(StepGetDegreeAudit, time.Second, nil)

	assert.Equal(t, 2, r.Pending())
	assert.True(t, first.Cancel(true))
	assert.Equal(t, 1, r.Pending(), "cancelling one handle must not touch another with the same name")
	assert.True(t, second.Cancel(true))
	assert.Equal(t, StepGetDegreeAudit, second.Task())
}

func TestAssertion_NilCancel(t *testing.T) {
	var a *Assertion
	assert.False(t, a.Cancel(true))
}
