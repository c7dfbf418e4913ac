// Package drivertest provides an in-memory driver.Driver for tests.
//
// Pages never load anything on their own. Tests either fire events directly
// (Load, ChangeURL, FinishNavigation, Open) or install OnNavigate / OnScript
// hooks that react to the scraper's actions. Hooks run on their own goroutine,
// the same way a real browser reports events asynchronously.
package drivertest

import (
	"context"
	"errors"
	"sync"

	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

var (
	_ driver.Driver  = (*Driver)(nil)
	_ driver.Browser = (*Browser)(nil)
	_ driver.Page    = (*Page)(nil)
)

// ErrClosed is returned by page operations after the browser was closed.
var ErrClosed = errors.New("drivertest: browser closed")

// Driver is a fake driver.Driver.
type Driver struct {
	mu       sync.Mutex
	browser  *Browser
	launches int

	// LaunchErr is returned from Launch when set.
	LaunchErr error
	// NewPageErr and CloseErr are copied into every launched browser.
	NewPageErr error
	CloseErr   error
	// Configure is called with every new page before it is returned from
	// NewPage or announced through OnPageCreated.
	Configure func(p *Page)
}

// New returns a fake driver.
func New() *Driver {
	return &Driver{}
}

// Launch implements driver.Driver.
func (d *Driver) Launch(ctx context.Context) (driver.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launches++
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.browser = &Browser{driver: d, NewPageErr: d.NewPageErr, CloseErr: d.CloseErr}
	return d.browser, nil
}

// Browser returns the most recently launched browser, or nil.
func (d *Driver) Browser() *Browser {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.browser
}

// Launches returns the number of Launch calls.
func (d *Driver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// Browser is a fake driver.Browser.
type Browser struct {
	driver *Driver

	mu     sync.Mutex
	pages  []*Page
	closes int

	// NewPageErr is returned from NewPage when set.
	NewPageErr error
	// CloseErr is returned from Close when set.
	CloseErr error
}

// NewPage implements driver.Browser.
func (b *Browser) NewPage(ctx context.Context) (driver.Page, error) {
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.newPage(), nil
}

func (b *Browser) newPage() *Page {
	p := &Page{
		browser: b,
		url:     "about:blank",
		nav:     make(map[int]func()),
		changed: make(map[int]func(string)),
		created: make(map[int]func(driver.Page)),
	}
	if b.driver != nil && b.driver.Configure != nil {
		b.driver.Configure(p)
	}
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
	return p
}

// Close implements driver.Browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return b.CloseErr
}

// Closes returns the number of Close calls.
func (b *Browser) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// Pages returns every page created in this browser, popups included.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Page, len(b.pages))
	copy(out, b.pages)
	return out
}

func (b *Browser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes > 0
}

// Script is a recorded RunScript call.
type Script struct {
	Fn   string
	Args []any
}

// Page is a fake driver.Page.
type Page struct {
	browser *Browser

	mu          sync.Mutex
	url         string
	html        string
	navigations []string
	scripts     []Script
	nextID      int
	nav         map[int]func()
	changed     map[int]func(string)
	created     map[int]func(driver.Page)

	// Errors returned from the matching operation when set.
	NavigateErr error
	URLErr      error
	ContentErr  error
	ScriptErr   error

	// ContentGate, when non-nil, blocks Content until it is closed or the
	// context is done.
	ContentGate chan struct{}

	// OnNavigate runs asynchronously after every successful Navigate.
	OnNavigate func(p *Page, url string)
	// OnScript runs asynchronously after every successful RunScript.
	OnScript func(p *Page, s Script)
}

// Navigate implements driver.Page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.check(ctx, p.NavigateErr); err != nil {
		return err
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	hook := p.OnNavigate
	p.mu.Unlock()
	if hook != nil {
		go hook(p, url)
	}
	return nil
}

// CurrentURL implements driver.Page.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	if err := p.check(ctx, p.URLErr); err != nil {
		return "", err
	}
	return p.URL(), nil
}

// Content implements driver.Page.
func (p *Page) Content(ctx context.Context) (string, error) {
	if p.ContentGate != nil {
		select {
		case <-p.ContentGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := p.check(ctx, p.ContentErr); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

// RunScript implements driver.Page.
func (p *Page) RunScript(ctx context.Context, fn string, args ...any) error {
	if err := p.check(ctx, p.ScriptErr); err != nil {
		return err
	}
	s := Script{Fn: fn, Args: args}
	p.mu.Lock()
	p.scripts = append(p.scripts, s)
	hook := p.OnScript
	p.mu.Unlock()
	if hook != nil {
		go hook(p, s)
	}
	return nil
}

func (p *Page) check(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if p.browser != nil && p.browser.isClosed() {
		return ErrClosed
	}
	return ctx.Err()
}

// OnNavigationFinished implements driver.Page.
func (p *Page) OnNavigationFinished(fn func()) driver.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.nav[id] = fn
	return p.unsubscribe(func() { delete(p.nav, id) })
}

// OnURLChanged implements driver.Page.
func (p *Page) OnURLChanged(fn func(url string)) driver.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.changed[id] = fn
	return p.unsubscribe(func() { delete(p.changed, id) })
}

// OnPageCreated implements driver.Page.
func (p *Page) OnPageCreated(fn func(driver.Page)) driver.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.created[id] = fn
	return p.unsubscribe(func() { delete(p.created, id) })
}

func (p *Page) unsubscribe(remove func()) driver.Subscription {
	var once sync.Once
	return driver.SubscriptionFunc(func() {
		once.Do(func() {
			p.mu.Lock()
			remove()
			p.mu.Unlock()
		})
	})
}

// SetHTML sets the document returned by Content.
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

// URL returns the current URL without going through the error hooks.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Navigations returns the URLs passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Scripts returns the recorded RunScript calls.
func (p *Page) Scripts() []Script {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Script(nil), p.scripts...)
}

// Subscribers returns the number of live navigation-finished, url-changed and
// page-created callbacks.
func (p *Page) Subscribers() (nav, changed, created int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nav), len(p.changed), len(p.created)
}

// Load moves the page to url and fires url-changed then navigation-finished.
func (p *Page) Load(url string) {
	p.ChangeURL(url)
	p.FinishNavigation()
}

// ChangeURL moves the page to url and fires url-changed only.
func (p *Page) ChangeURL(url string) {
	p.mu.Lock()
	p.url = url
	fns := make([]func(string), 0, len(p.changed))
	for _, fn := range p.changed {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(url)
	}
}

// FinishNavigation fires navigation-finished without changing the URL.
func (p *Page) FinishNavigation() {
	p.mu.Lock()
	fns := make([]func(), 0, len(p.nav))
	for _, fn := range p.nav {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Open creates a page as if this page opened a new window and fires
// page-created with it.
func (p *Page) Open() *Page {
	child := p.browser.newPage()
	p.mu.Lock()
	fns := make([]func(driver.Page), 0, len(p.created))
	for _, fn := range p.created {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(child)
	}
	return child
}
