// Package driver defines the browser capabilities the portal workflow relies on.
// Implement these interfaces to plug a different headless browser into the
// scraper; the chromedp implementation lives in cmd/tritonscrape/browser.
package driver

import (
	"context"
)

// Driver starts browser sessions.
type Driver interface {
	// Launch starts a browser and returns a handle that owns it.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser owned by a single session.
type Browser interface {
	// NewPage opens a new page (tab) in the browser.
	NewPage(ctx context.Context) (Page, error)

	// Close shuts the browser down. Pages are unusable afterwards.
	Close() error
}

// Page is a single browser page.
//
// Event registrations return a Subscription. Callbacks are delivered at most
// once per event and in order. A callback already in flight may still run
// after Cancel returns, so callers must tolerate late delivery.
type Page interface {
	// Navigate starts loading url. It does not wait for the load to finish.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the URL of the page's main frame.
	CurrentURL(ctx context.Context) (string, error)

	// Content returns the rendered HTML of the document.
	Content(ctx context.Context) (string, error)

	// RunScript calls the JavaScript function declaration fn in the page with
	// args bound as its parameters. Arguments are serialized as JSON values,
	// never interpolated into the source.
	RunScript(ctx context.Context, fn string, args ...any) error

	// OnNavigationFinished fires each time the main frame finishes loading.
	OnNavigationFinished(fn func()) Subscription

	// OnURLChanged fires with the new URL each time the main frame URL changes.
	OnURLChanged(fn func(url string)) Subscription

	// OnPageCreated fires when this page opens another page (popup, new window
	// or a form submitted to a named target).
	OnPageCreated(fn func(p Page)) Subscription
}

// Subscription is a registered event callback.
type Subscription interface {
	// Cancel removes the callback. It is safe to call more than once.
	Cancel()
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func()

// Cancel calls f.
func (f SubscriptionFunc) Cancel() { f() }
