package scraper

import (
	"log/slog"

	"github.com/offerscout/offerscout/internal/browser"
	"github.com/offerscout/offerscout/internal/session"
)

// Strategy type tags accepted by the factory.
const (
	TypeBrowser = "browser"
	TypeFetch   = "fetch"
)

// FactoryDeps carries everything any strategy might need; each strategy
// takes only what it uses.
type FactoryDeps struct {
	BrowserOpts *browser.Options
	Fingerprint session.Fingerprint
	States      StateStore
	APIClient   *ScrapeAPIClient
	Logger      *slog.Logger
}

// NewScraper maps a configured type tag to a concrete strategy. Unknown or
// not-yet-implemented tags log a warning and substitute the browser strategy
// so the pipeline never hard-fails on a type selection.
func NewScraper(scraperType string, deps FactoryDeps) Scraper {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch scraperType {
	case TypeBrowser, "playwright", "":
		return NewBrowserScraper(deps.BrowserOpts, deps.Fingerprint, deps.States, logger)
	case TypeFetch, "api":
		if deps.APIClient == nil {
			logger.Warn("fetch strategy requested without API client, substituting browser strategy")
			return NewBrowserScraper(deps.BrowserOpts, deps.Fingerprint, deps.States, logger)
		}
		return NewFetchScraper(deps.APIClient, logger)
	default:
		logger.Warn("unsupported scraper type, substituting browser strategy", "type", scraperType)
		return NewBrowserScraper(deps.BrowserOpts, deps.Fingerprint, deps.States, logger)
	}
}
