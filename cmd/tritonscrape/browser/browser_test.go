package browser

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindChrome(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", errors.New("not found")
	}

	want, err := filepath.Abs("/usr/bin/chromium")
	require.NoError(t, err)
	assert.Equal(t, want, findChrome([]string{"google-chrome", "chromium", "chrome"}, lookPath))
}

func TestFindChrome_NoneFound(t *testing.T) {
	lookPath := func(string) (string, error) { return "", errors.New("not found") }
	assert.Empty(t, findChrome([]string{"chrome"}, lookPath))
}

func TestNew_FillsDefaults(t *testing.T) {
	d := New(Config{ExecPath: "/opt/chrome"})

	def := DefaultConfig()
	assert.Equal(t, def.UserAgent, d.config.UserAgent)
	assert.Equal(t, def.Width, d.config.Width)
	assert.Equal(t, def.Height, d.config.Height)
	assert.Equal(t, def.Startup, d.config.Startup)
	assert.Equal(t, "/opt/chrome", d.config.ExecPath)
}

func newTestSubscription() *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{ctx: ctx, cancel: cancel, wake: make(chan struct{}, 1)}
	go s.deliver()
	return s
}

func TestSubscription_DeliversInOrder(t *testing.T) {
	s := newTestSubscription()
	defer s.Cancel()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := range 50 {
		s.push(func() {
			mu.Lock()
			got = append(got, i)
			n := len(got)
			mu.Unlock()
			if n == 50 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callbacks not delivered")
	}
	for i, v := range got {
		require.Equal(t, i, v, "callback delivered out of order")
	}
}

func TestSubscription_CancelStopsDelivery(t *testing.T) {
	s := newTestSubscription()

	block := make(chan struct{})
	started := make(chan struct{})
	s.push(func() {
		close(started)
		<-block
	})
	<-started

	var called atomic.Bool
	s.push(func() { called.Store(true) })
	s.Cancel()
	close(block)

	assert.Never(t, called.Load, 100*time.Millisecond, 10*time.Millisecond)
}

func TestStart_CallerCancelledAfterReturnDoesNotAbort(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())

	var aborted atomic.Bool
	// A plain context is not a chromedp context, so the Run fails at once.
	err := start(context.Background(), caller, func() { aborted.Store(true) })
	require.Error(t, err)

	cancelCaller()
	assert.Never(t, aborted.Load, 100*time.Millisecond, 10*time.Millisecond)
}

func TestStart_CallerAlreadyDoneAborts(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	cancelCaller()

	var aborted atomic.Bool
	err := start(context.Background(), caller, func() { aborted.Store(true) })
	require.Error(t, err)
	assert.Eventually(t, aborted.Load, time.Second, 10*time.Millisecond)
}

type ctxKey struct{}

func TestBind_CallerCancels(t *testing.T) {
	parent := context.WithValue(context.Background(), ctxKey{}, "browser")
	caller, cancelCaller := context.WithCancel(context.Background())

	ctx, stop := bind(parent, caller)
	defer stop()

	assert.Equal(t, "browser", ctx.Value(ctxKey{}))
	cancelCaller()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bound context not cancelled with caller")
	}
}

func TestBind_StopDetaches(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	ctx, stop := bind(context.Background(), caller)
	stop()
	assert.Error(t, ctx.Err())
}
