package tritonlink

import (
	"errors"

	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

// page returns the session page at i or fails the attempt.
func (a *attempt) page(i int) (driver.Page, bool) {
	if a.session == nil {
		a.fail(ErrUnexpectedTeardown, errors.New("no session"))
		return nil, false
	}
	p, err := a.session.Page(i)
	if err != nil {
		kind := ErrAction
		if errors.Is(err, ErrUnexpectedTeardown) {
			kind = ErrUnexpectedTeardown
		}
		a.fail(kind, err)
		return nil, false
	}
	return p, true
}

func launch(a *attempt) {
	b, err := a.machine.driver.Launch(a.ctx)
	if err != nil {
		a.fail(ErrDriverAcquisition, err)
		return
	}
	won := a.succeed(func() error {
		a.machine.session = newSession(b)
		return nil
	})
	if !won {
		// The run gave up while the browser was starting.
		_ = b.Close()
	}
}

func createPage(a *attempt) {
	if a.session == nil {
		a.fail(ErrPageCreation, errors.New("no session"))
		return
	}
	p, err := a.session.browser.NewPage(a.ctx)
	if err != nil {
		a.fail(ErrPageCreation, err)
		return
	}
	a.succeed(func() error {
		a.session.addPage(p)
		return nil
	})
}

func navigate(url string) func(a *attempt) {
	return func(a *attempt) {
		p, ok := a.page(a.step.Page)
		if !ok {
			return
		}
		logger.Debug("navigating", "step", a.step.Name, "url", url)
		if err := p.Navigate(a.ctx, url); err != nil {
			a.fail(ErrAction, err)
		}
	}
}

func runScript(fn string, args ...any) func(a *attempt) {
	return func(a *attempt) {
		p, ok := a.page(a.step.Page)
		if !ok {
			return
		}
		logger.Debug("running script", "step", a.step.Name, "args", len(args))
		if err := p.RunScript(a.ctx, fn, args...); err != nil {
			a.fail(ErrAction, err)
		}
	}
}

// closeBrowser is the terminal step. A close error is logged, not fatal.
func closeBrowser(a *attempt) {
	if a.session != nil {
		if err := a.session.release(); err != nil {
			logger.Warn("browser close failed", "step", a.step.Name, "error", err)
		}
	}
	a.succeed(nil)
}
