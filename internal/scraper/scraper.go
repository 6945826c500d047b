// Package scraper discovers affiliate products on marketplace pages. Two
// strategies implement the same contract: a browser-driven one that resolves
// selectors against the live DOM and paginates, and a fetch-based fallback
// that calls a remote scraping API and mines the returned HTML.
package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/offerscout/offerscout/internal/models"
)

var (
	// ErrSelectorDiscovery means no candidate matched the card container;
	// nothing on the page can be identified as a product.
	ErrSelectorDiscovery = errors.New("selector discovery failed")
	// ErrNavigation wraps fatal navigation/timeout failures.
	ErrNavigation = errors.New("navigation failed")
	// ErrNoHTML means the remote scraping API returned no usable HTML.
	ErrNoHTML = errors.New("scraping API returned no HTML")
)

// Config is the per-invocation scrape configuration.
type Config struct {
	URL                  string
	Platform             string
	MarketplaceID        string
	MaxProducts          int
	Timeout              time.Duration
	Retries              int
	DelayBetweenRequests time.Duration
	// StagnantLimit bounds work against dead pagination: the session stops
	// after this many consecutive iterations with zero new products and no
	// revealable content.
	StagnantLimit int
}

func (c Config) withDefaults() Config {
	if c.MaxProducts <= 0 {
		c.MaxProducts = 100
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.DelayBetweenRequests <= 0 {
		c.DelayBetweenRequests = 2 * time.Second
	}
	if c.StagnantLimit <= 0 {
		c.StagnantLimit = 3
	}
	return c
}

// Scraper is the common strategy contract. Products are emitted on the event
// channel as they pass validation and also returned in bulk; events already
// emitted stay valid for the caller even when the scrape ends in error.
// A strategy instance is single-use per Scrape call.
type Scraper interface {
	Scrape(ctx context.Context, cfg Config, events chan<- Event) ([]models.NormalizedProduct, error)
}
