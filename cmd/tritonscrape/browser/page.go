package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

// Page is a single Chrome tab.
type Page struct {
	browser *Browser
	ctx     context.Context
	cancel  context.CancelFunc // nil for the startup tab
	popup   bool
}

// run executes actions against the tab, bounded by the caller's context.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, stop := bind(p.ctx, ctx)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

func (p *Page) targetID() target.ID {
	if c := chromedp.FromContext(p.ctx); c != nil && c.Target != nil {
		return c.Target.TargetID
	}
	return ""
}

func clearCache() chromedp.Action {
	return network.ClearBrowserCache()
}

// Navigate starts loading url and returns without waiting for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res); err != nil {
			return err
		}
		if res.ErrorText != "" {
			return fmt.Errorf("navigate to %s: %s", url, res.ErrorText)
		}
		return nil
	}))
}

// CurrentURL returns the tab's location.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Content returns the serialized document.
func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// RunScript calls the function declaration fn in the page with args passed
// as call arguments.
func (p *Page) RunScript(ctx context.Context, fn string, args ...any) error {
	var ok bool
	return p.run(ctx, chromedp.CallFunctionOn(fn, &ok, nil, args...))
}

// OnNavigationFinished reports load events. A page adopted from a popup that
// has already finished loading gets one immediate notification.
func (p *Page) OnNavigationFinished(fn func()) driver.Subscription {
	sub := p.subscribe(chromedp.ListenTarget, func(_ context.Context, ev any) func() {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			return fn
		}
		return nil
	})
	if p.popup {
		go func() {
			var state string
			if err := p.run(sub.ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
				return
			}
			if state == "complete" {
				sub.push(fn)
			}
		}()
	}
	return sub
}

// OnURLChanged reports main-frame navigations, including same-document ones.
func (p *Page) OnURLChanged(fn func(url string)) driver.Subscription {
	return p.subscribe(chromedp.ListenTarget, func(_ context.Context, ev any) func() {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame == nil || e.Frame.ParentID != "" {
				return nil
			}
			url := e.Frame.URL + e.Frame.URLFragment
			return func() { fn(url) }
		case *page.EventNavigatedWithinDocument:
			url := e.URL
			return func() { fn(url) }
		}
		return nil
	})
}

// OnPageCreated reports tabs opened by this page. The new tab is attached
// before fn is called.
func (p *Page) OnPageCreated(fn func(driver.Page)) driver.Subscription {
	return p.subscribe(chromedp.ListenBrowser, func(ctx context.Context, ev any) func() {
		e, ok := ev.(*target.EventTargetCreated)
		if !ok || e.TargetInfo == nil || e.TargetInfo.Type != "page" {
			return nil
		}
		if e.TargetInfo.OpenerID != p.targetID() {
			return nil
		}
		id := e.TargetInfo.TargetID
		return func() {
			child, err := p.browser.attach(ctx, id)
			if err != nil {
				logger.Debug("ignoring new page", "target", id, "error", err)
				return
			}
			fn(child)
		}
	})
}

// subscribe registers match with chromedp and delivers the callbacks it
// returns in order on a dedicated goroutine. chromedp listeners must not
// block, so delivery is queued. match receives the subscription's context.
func (p *Page) subscribe(listen func(context.Context, func(any)), match func(context.Context, any) func()) *subscription {
	ctx, cancel := context.WithCancel(p.ctx)
	s := &subscription{
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	listen(ctx, func(ev any) {
		if cb := match(ctx, ev); cb != nil {
			s.push(cb)
		}
	})
	go s.deliver()
	return s
}

type subscription struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func (s *subscription) push(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) next() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	fn := s.queue[0]
	s.queue = s.queue[1:]
	return fn
}

func (s *subscription) deliver() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for fn := s.next(); fn != nil; fn = s.next() {
			if s.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// Cancel stops delivery. It does not wait for a callback already running.
func (s *subscription) Cancel() {
	s.cancel()
}
