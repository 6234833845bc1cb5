package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/jobsuitex/autoapply/internal/config"
	"golang.org/x/sync/semaphore"
)

// Pool owns the shared browser process. The browser is started lazily on
// the first Acquire; at most cfg.PoolSize tabs are open at once.
type Pool struct {
	cfg config.BrowserConfig
	sem *semaphore.Weighted

	mu      sync.Mutex
	browser context.Context
	cancel  context.CancelFunc
}

func NewPool(cfg config.BrowserConfig) *Pool {
	size := cfg.PoolSize
	if size < 1 {
		size = 1
	}
	return &Pool{cfg: cfg, sem: semaphore.NewWeighted(int64(size))}
}

func (p *Pool) start() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		return p.browser, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(p.cfg.UserAgent),
	)
	if p.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Debug("chromedp", "message", fmt.Sprintf(format, args...))
		}),
	)

	// An empty Run launches the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	p.browser = browserCtx
	p.cancel = func() {
		browserCancel()
		allocCancel()
	}
	slog.Info("browser started", "headless", p.cfg.Headless, "pool_size", p.cfg.PoolSize)
	return browserCtx, nil
}

// Acquire opens a new tab, blocking while the pool is full.
func (p *Pool) Acquire(ctx context.Context) (PageDriver, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire page: %w", err)
	}

	browserCtx, err := p.start()
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	tabCtx, closeTab := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		closeTab()
		p.sem.Release(1)
		return nil, fmt.Errorf("open tab: %w", err)
	}

	return &ChromePage{
		ctx:      tabCtx,
		closeTab: closeTab,
		release:  func() { p.sem.Release(1) },
		timeout:  p.cfg.ActionTimeout,
	}, nil
}

// Close shuts the browser down. Open pages become unusable.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.browser = nil
		p.cancel = nil
		slog.Info("browser stopped")
	}
}

// ChromePage is a PageDriver backed by a chromedp tab.
type ChromePage struct {
	ctx      context.Context
	closeTab context.CancelFunc
	release  func()
	timeout  time.Duration
	once     sync.Once
}

func (p *ChromePage) run(ctx context.Context, what string, actions ...chromedp.Action) error {
	actx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(actx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(actx.Err(), context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (p *ChromePage) Goto(ctx context.Context, url string) error {
	return p.run(ctx, "goto "+url, chromedp.Navigate(url))
}

func (p *ChromePage) WaitForSelector(ctx context.Context, selector string) error {
	return p.run(ctx, "wait "+selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, "click "+selector, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Type replaces the field's current value with text, sending real key events.
func (p *ChromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(ctx, "type "+selector,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (p *ChromePage) Press(ctx context.Context, key string) error {
	return p.run(ctx, "press key", chromedp.KeyEvent(key))
}

func (p *ChromePage) Evaluate(ctx context.Context, script string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return p.run(ctx, "evaluate", chromedp.Evaluate(script, out))
}

func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, "read location", chromedp.Location(&u))
	return u, err
}

func (p *ChromePage) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := p.run(ctx, "read cookies", chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

func (p *ChromePage) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return p.run(ctx, "set cookies", chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
}

// Close closes the tab and frees its pool slot. Safe to call more than once.
func (p *ChromePage) Close() error {
	p.once.Do(func() {
		p.closeTab()
		p.release()
	})
	return nil
}

var (
	_ PageDriver = (*ChromePage)(nil)
	_ PageSource = (*Pool)(nil)
)
