package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Browser wraps a playwright instance with one isolated context. A Browser is
// single-use per scrape session; concurrent sessions each own their own.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless         bool
	Timeout          time.Duration
	UserAgent        string
	ViewportWidth    int
	ViewportHeight   int
	AcceptLanguage   string
	TimezoneID       string
	Locale           string
	ProxyServer      string
	StorageStatePath string
	BlockResources   bool
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "pt-BR,pt;q=0.9,en;q=0.8",
		TimezoneID:     "America/Sao_Paulo",
		Locale:         "pt-BR",
		BlockResources: true,
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--window-size=1920,1080",
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}

	// Replaying the storage state captured at login keeps the authenticated
	// session valid across runs.
	if opts.StorageStatePath != "" {
		contextOpts.StorageStatePath = &opts.StorageStatePath
	}

	context, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if opts.BlockResources {
		if err := blockHeavyResources(context); err != nil {
			context.Close()
			b.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to install resource blocking: %w", err)
		}
	}

	return &Browser{
		pw:      pw,
		browser: b,
		context: context,
		opts:    opts,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

// timeoutMs converts the configured timeout for playwright calls, falling
// back to the default when unset.
func (o *Options) timeoutMs() float64 {
	if o == nil || o.Timeout <= 0 {
		return float64((30 * time.Second).Milliseconds())
	}
	return float64(o.Timeout.Milliseconds())
}

// blockHeavyResources aborts image/font/media requests. Product extraction
// only needs the DOM, and skipping these cuts page load time substantially.
func blockHeavyResources(context playwright.BrowserContext) error {
	return context.Route("**/*", func(route playwright.Route) {
		switch route.Request().ResourceType() {
		case "image", "font", "media":
			route.Abort()
		default:
			route.Continue()
		}
	})
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(b.opts.timeoutMs())

	return page, nil
}

func (b *Browser) Context() playwright.BrowserContext {
	return b.context
}

// StorageState serializes the context's cookies and local storage so the
// session store can replay them later.
func (b *Browser) StorageState(path string) error {
	if _, err := b.context.StorageState(path); err != nil {
		return fmt.Errorf("failed to capture storage state: %w", err)
	}
	return nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// NavigateWithRetry navigates with bounded retries and linear backoff.
func (b *Browser) NavigateWithRetry(page playwright.Page, url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(b.opts.timeoutMs()),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// ScrollToBottom scrolls the page and reports whether the document height
// grew, which signals that more content was revealed.
func (b *Browser) ScrollToBottom(page playwright.Page) (bool, error) {
	before, err := pageHeight(page)
	if err != nil {
		return false, err
	}

	if _, err := page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return false, fmt.Errorf("failed to scroll: %w", err)
	}

	page.WaitForTimeout(1500)

	after, err := pageHeight(page)
	if err != nil {
		return false, err
	}

	return after > before, nil
}

func pageHeight(page playwright.Page) (float64, error) {
	raw, err := page.Evaluate(`document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("failed to read page height: %w", err)
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unexpected page height type %T", raw)
	}
}
