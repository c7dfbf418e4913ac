package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/tritonscrape/internal/logger"
	"github.com/jmylchreest/tritonscrape/pkg/driver"
)

var (
	_ driver.Driver  = (*Driver)(nil)
	_ driver.Browser = (*Browser)(nil)
	_ driver.Page    = (*Page)(nil)
)

// Driver launches a local Chrome through chromedp.
type Driver struct {
	config Config
}

// New creates a driver. Zero-valued fields fall back to DefaultConfig.
func New(cfg Config) *Driver {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.Startup == 0 {
		cfg.Startup = def.Startup
	}
	return &Driver{config: cfg}
}

func (d *Driver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(d.config.Width, d.config.Height),
		chromedp.UserAgent(d.config.UserAgent),
	)

	execPath := d.config.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

// Launch starts Chrome and enables target discovery so popups are reported.
// The returned browser lives until Close, independent of ctx.
func (d *Driver) Launch(ctx context.Context) (driver.Browser, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions()...)

	var ctxOpts []chromedp.ContextOption
	if d.config.Verbose {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}))
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, ctxOpts...)

	startCtx, cancelStart := context.WithTimeout(ctx, d.config.Startup)
	defer cancelStart()

	abort := func() {
		cancelBrowser()
		cancelAlloc()
	}
	err := start(browserCtx, startCtx, abort, chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		return target.SetDiscoverTargets(true).Do(cdp.WithExecutor(ctx, c.Browser))
	}))
	if err != nil {
		abort()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("browser started", "headless", d.config.Headless)
	return &Browser{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// Browser is a running Chrome instance.
type Browser struct {
	ctx           context.Context // first tab; its cancellation closes Chrome
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	mu          sync.Mutex
	primaryUsed bool
	closed      bool
}

// NewPage returns the startup tab on the first call and a fresh tab after
// that. The browser cache is cleared before the page is handed out.
func (b *Browser) NewPage(ctx context.Context) (driver.Page, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("browser closed")
	}
	tabCtx, cancel := b.ctx, context.CancelFunc(nil)
	if b.primaryUsed {
		tabCtx, cancel = chromedp.NewContext(b.ctx)
	}
	b.primaryUsed = true
	b.mu.Unlock()

	p := &Page{browser: b, ctx: tabCtx, cancel: cancel}
	var err error
	if cancel == nil {
		err = p.run(ctx, clearCache())
	} else {
		err = start(tabCtx, ctx, cancel, clearCache())
	}
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return p, nil
}

// attach wraps an existing target, such as a popup the portal opened.
func (b *Browser) attach(ctx context.Context, id target.ID) (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx, chromedp.WithTargetID(id))
	p := &Page{browser: b, ctx: tabCtx, cancel: cancel, popup: true}
	if err := start(tabCtx, ctx, cancel); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach to page %s: %w", id, err)
	}
	return p, nil
}

// Close shuts Chrome down. Repeated calls are no-ops.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := chromedp.Cancel(b.ctx)
	b.cancelBrowser()
	b.cancelAlloc()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	logger.Debug("browser closed")
	return nil
}

// start performs the first Run on a fresh chromedp context c. That Run
// launches Chrome or attaches the tab for the lifetime of the context it is
// given, so it must be c itself and not a derived context. abort tears c down
// if caller is done before the Run completes.
func start(c, caller context.Context, abort func(), actions ...chromedp.Action) error {
	stop := context.AfterFunc(caller, abort)
	err := chromedp.Run(c, actions...)
	if !stop() && err == nil {
		// abort ran, so c is gone even though the Run finished.
		err = caller.Err()
	}
	return err
}

// bind returns a copy of chromedp context c that is also cancelled when
// caller is done. The stop function releases the link. Only use it once c
// has been started.
func bind(c, caller context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(c)
	unlink := context.AfterFunc(caller, cancel)
	return ctx, func() {
		unlink()
		cancel()
	}
}
