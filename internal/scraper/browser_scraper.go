package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/offerscout/offerscout/internal/browser"
	"github.com/offerscout/offerscout/internal/models"
	"github.com/offerscout/offerscout/internal/ratelimit"
	"github.com/offerscout/offerscout/internal/selectors"
	"github.com/offerscout/offerscout/internal/session"
)

// loadMoreSelectors are common "load more" control variants across the
// locales the supported marketplaces ship in, tried before falling back to
// scrolling.
var loadMoreSelectors = []string{
	`button:has-text("Carregar mais")`,
	`button:has-text("Ver mais")`,
	`button:has-text("Mostrar mais")`,
	`button:has-text("Load more")`,
	`button:has-text("Show more")`,
	`button:has-text("Más resultados")`,
	`a:has-text("Carregar mais")`,
	`a:has-text("Load more")`,
	`[class*="load-more"]`,
	`button[class*="more"]`,
}

// StateStore persists browser storage state (cookies, local storage) per
// platform so an authenticated session survives across runs.
type StateStore interface {
	LoadStorageState(ctx context.Context, platform string) ([]byte, error)
	SaveStorageState(ctx context.Context, platform string, state []byte) error
}

// BrowserScraper is the primary strategy: it drives a headless browser,
// discovers selectors against the live DOM, and paginates incrementally.
type BrowserScraper struct {
	browserOpts *browser.Options
	fingerprint session.Fingerprint
	states      StateStore
	logger      *slog.Logger
}

func NewBrowserScraper(opts *browser.Options, fp session.Fingerprint, states StateStore, logger *slog.Logger) *BrowserScraper {
	if opts == nil {
		opts = browser.DefaultOptions()
	}
	return &BrowserScraper{
		browserOpts: opts,
		fingerprint: fp,
		states:      states,
		logger:      logger.With("component", "browser_scraper"),
	}
}

func (s *BrowserScraper) Scrape(ctx context.Context, cfg Config, events chan<- Event) ([]models.NormalizedProduct, error) {
	cfg = cfg.withDefaults()
	em := emitter{ch: events}

	opts := *s.browserOpts
	opts.Timeout = cfg.Timeout
	s.fingerprint.Apply(&opts)

	statePath, cleanupState := s.restoreStorageState(ctx, cfg.Platform)
	defer cleanupState()
	if statePath != "" {
		opts.StorageStatePath = statePath
	}

	b, err := browser.New(&opts)
	if err != nil {
		em.errorf(ctx, "browser", "failed to launch browser: %v", err)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			s.logger.Warn("failed to release browser", "error", cerr)
		}
	}()

	page, err := b.NewPage()
	if err != nil {
		em.errorf(ctx, "browser", "failed to open page: %v", err)
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	em.log(ctx, "info", "navigating to marketplace", map[string]any{"url": cfg.URL})
	if err := b.NavigateWithRetry(page, cfg.URL, cfg.Retries); err != nil {
		em.errorf(ctx, "navigation", "failed to reach %s: %v", cfg.URL, err)
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	drv := &playwrightDriver{page: page, browser: b, logger: s.logger}
	limiter := ratelimit.NewHumanizedLimiter(cfg.DelayBetweenRequests/2, cfg.DelayBetweenRequests*3/2)

	products, resolved, err := runExtractionLoop(ctx, cfg, drv, em, limiter, s.logger)
	if err != nil {
		em.errorf(ctx, "extraction", "scrape aborted: %v", err)
		return products, err
	}

	s.persistStorageState(ctx, b, cfg.Platform)

	em.complete(ctx, len(products), map[string]string(resolved))
	s.logger.Info("scrape complete", "platform", cfg.Platform, "products", len(products))

	return products, nil
}

// restoreStorageState materializes the stored cookie and local-storage
// snapshot into a temp file playwright can load at context creation. Missing
// or unreadable state means a fresh session, never a failed scrape.
func (s *BrowserScraper) restoreStorageState(ctx context.Context, platform string) (string, func()) {
	noop := func() {}
	if s.states == nil || platform == "" {
		return "", noop
	}

	state, err := s.states.LoadStorageState(ctx, platform)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn("failed to load storage state", "platform", platform, "error", err)
		}
		return "", noop
	}

	f, err := os.CreateTemp("", "offerscout-state-*.json")
	if err != nil {
		s.logger.Warn("failed to materialize storage state", "error", err)
		return "", noop
	}
	path := f.Name()

	if _, err := f.Write(state); err != nil {
		f.Close()
		os.Remove(path)
		s.logger.Warn("failed to write storage state", "error", err)
		return "", noop
	}
	f.Close()

	s.logger.Debug("restored storage state", "platform", platform, "bytes", len(state))
	return path, func() { os.Remove(path) }
}

// persistStorageState captures the context's storage state after a successful
// session so the next run replays the same cookies. Best-effort.
func (s *BrowserScraper) persistStorageState(ctx context.Context, b *browser.Browser, platform string) {
	if s.states == nil || platform == "" {
		return
	}

	f, err := os.CreateTemp("", "offerscout-state-*.json")
	if err != nil {
		s.logger.Warn("failed to stage storage state capture", "error", err)
		return
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := b.StorageState(path); err != nil {
		s.logger.Warn("failed to capture storage state", "platform", platform, "error", err)
		return
	}

	state, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read captured storage state", "error", err)
		return
	}

	if err := s.states.SaveStorageState(ctx, platform, state); err != nil {
		s.logger.Warn("failed to persist storage state", "platform", platform, "error", err)
		return
	}

	s.logger.Debug("persisted storage state", "platform", platform, "bytes", len(state))
}

// playwrightDriver adapts a live page to the extraction loop.
type playwrightDriver struct {
	page    playwright.Page
	browser *browser.Browser
	logger  *slog.Logger
}

type pageScope struct {
	page playwright.Page
}

func (p pageScope) CountMatches(selector string) (int, error) {
	return p.page.Locator(selector).Count()
}

func (d *playwrightDriver) Discover(set selectors.SelectorSet) (selectors.Resolved, error) {
	return selectors.Discover(pageScope{page: d.page}, set)
}

func (d *playwrightDriver) ExtractCards(resolved selectors.Resolved) ([]models.RawProductRecord, error) {
	cards := d.page.Locator(resolved[selectors.FieldCard])
	count, err := cards.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	records := make([]models.RawProductRecord, 0, count)
	for i := 0; i < count; i++ {
		card := cards.Nth(i)
		records = append(records, models.RawProductRecord{
			Name:            innerText(card, resolved[selectors.FieldName]),
			PriceText:       innerText(card, resolved[selectors.FieldPrice]),
			CommissionText:  innerText(card, resolved[selectors.FieldCommission]),
			TemperatureText: innerText(card, resolved[selectors.FieldTemperature]),
			Category:        innerText(card, resolved[selectors.FieldCategory]),
			ProductURL:      innerAttr(card, resolved[selectors.FieldLink], "href"),
			ImageURL:        innerAttr(card, resolved[selectors.FieldImage], "src"),
		})
	}

	return records, nil
}

func (d *playwrightDriver) RevealMore(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	for _, selector := range loadMoreSelectors {
		button := d.page.Locator(selector).First()
		count, err := button.Count()
		if err != nil || count == 0 {
			continue
		}

		if visible, _ := button.IsVisible(); !visible {
			continue
		}

		d.logger.Debug("clicking load-more control", "selector", selector)
		if err := button.Click(); err != nil {
			d.logger.Warn("load-more click failed", "selector", selector, "error", err)
			continue
		}

		d.page.WaitForTimeout(1500)
		return true, nil
	}

	grew, err := d.browser.ScrollToBottom(d.page)
	if err != nil {
		return false, err
	}
	return grew, nil
}

// innerText reads the first match's trimmed text within a card scope.
// Missing selector or element is a per-item miss, not an error.
func innerText(card playwright.Locator, selector string) string {
	if selector == "" {
		return ""
	}

	el := card.Locator(selector).First()
	if count, err := el.Count(); err != nil || count == 0 {
		return ""
	}

	text, err := el.TextContent()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func innerAttr(card playwright.Locator, selector, attr string) string {
	if selector == "" {
		return ""
	}

	el := card.Locator(selector).First()
	if count, err := el.Count(); err != nil || count == 0 {
		return ""
	}

	value, err := el.GetAttribute(attr)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
