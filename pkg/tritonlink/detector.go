package tritonlink

import (
	"sync"

	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

// registration is a detector's hold on one driver subscription. Once
// resolved it ignores every further event, so late callbacks are no-ops.
type registration struct {
	mu   sync.Mutex
	sub  driver.Subscription
	done bool
}

// bind attaches the subscription. If the registration was resolved before the
// driver returned it, the subscription is cancelled straight away.
func (r *registration) bind(sub driver.Subscription) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		sub.Cancel()
		return
	}
	r.sub = sub
	r.mu.Unlock()
}

// resolve marks the registration used and cancels its subscription.
// Only the first caller gets true.
func (r *registration) resolve() bool {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return false
	}
	r.done = true
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
	return true
}

func (r *registration) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.done
}

// watch installs the success detector for the attempt's step before its
// action runs. It reports false if the step was failed instead.
func (a *attempt) watch() bool {
	if a.step.Expect == ExpectReturn {
		return true
	}
	p, ok := a.page(a.step.Page)
	if !ok {
		return false
	}
	switch a.step.Expect {
	case ExpectURL:
		watchURL(a, p, a.step.URL)
	case ExpectURLChange:
		watchURLChange(a, p, a.step.URL)
	case ExpectNewPage:
		watchNewPage(a, p, a.step.URL)
	}
	return true
}

// watchURL resolves the step the first time a navigation on p finishes with
// p at exactly want. Other URLs are intermediate hops and are ignored.
func watchURL(a *attempt, p driver.Page, want string) {
	r := &registration{}
	a.track(r)
	r.bind(p.OnNavigationFinished(func() {
		if !r.active() || a.settled() {
			return
		}
		got, err := p.CurrentURL(a.ctx)
		if err != nil {
			if r.resolve() {
				a.fail(ErrURLRead, err)
			}
			return
		}
		if got != want {
			logger.Debug("navigation finished elsewhere", "step", a.step.Name, "url", got, "want", want)
			return
		}
		if r.resolve() {
			a.succeed(nil)
		}
	}))
}

// watchURLChange resolves the step when p reports a URL change to want.
func watchURLChange(a *attempt, p driver.Page, want string) {
	r := &registration{}
	a.track(r)
	r.bind(p.OnURLChanged(func(got string) {
		if !r.active() || a.settled() {
			return
		}
		if got != want {
			logger.Debug("url changed elsewhere", "step", a.step.Name, "url", got, "want", want)
			return
		}
		if r.resolve() {
			a.succeed(nil)
		}
	}))
}

// watchNewPage records the first page p opens and then waits for that page to
// finish navigating to want. The step succeeds only on the second signal.
func watchNewPage(a *attempt, p driver.Page, want string) {
	r := &registration{}
	a.track(r)
	r.bind(p.OnPageCreated(func(created driver.Page) {
		if a.settled() || !r.resolve() {
			return
		}
		idx := a.session.addPage(created)
		logger.Debug("new page recorded", "step", a.step.Name, "index", idx)
		watchURL(a, created, want)
	}))
}
