package scraper

import (
	"context"
	"log/slog"

	"github.com/offerscout/offerscout/internal/models"
	"github.com/offerscout/offerscout/internal/normalize"
	"github.com/offerscout/offerscout/internal/ratelimit"
	"github.com/offerscout/offerscout/internal/selectors"
)

// pageDriver is the DOM surface the extraction loop runs against. The
// browser strategy backs it with a playwright page; tests back it with a
// synthetic fixture.
type pageDriver interface {
	// Discover resolves the working selector per field for the current DOM.
	Discover(set selectors.SelectorSet) (selectors.Resolved, error)
	// ExtractCards returns raw records for every currently visible card.
	// Per-card failures are skipped, not reported.
	ExtractCards(resolved selectors.Resolved) ([]models.RawProductRecord, error)
	// RevealMore tries to surface more content (load-more click, then
	// scroll) and reports whether anything new appeared.
	RevealMore(ctx context.Context) (bool, error)
}

// extractSession owns dedup state for one scrape. Selector resolution and
// the seen-URL set live and die with the session.
type extractSession struct {
	cfg      Config
	seen     map[string]struct{}
	products []models.NormalizedProduct
}

func newExtractSession(cfg Config) *extractSession {
	return &extractSession{
		cfg:  cfg,
		seen: make(map[string]struct{}),
	}
}

// absorb normalizes and validates a batch of raw records, deduplicates by
// product URL, and returns only the newly collected products. Never collects
// past the configured cap.
func (s *extractSession) absorb(raws []models.RawProductRecord) []models.NormalizedProduct {
	var added []models.NormalizedProduct

	for _, raw := range raws {
		if len(s.products) >= s.cfg.MaxProducts {
			break
		}

		product, ok := normalize.FromRaw(raw, s.cfg.Platform, s.cfg.URL, s.cfg.MarketplaceID)
		if !ok {
			continue
		}

		if _, dup := s.seen[product.ProductURL]; dup {
			continue
		}
		s.seen[product.ProductURL] = struct{}{}

		s.products = append(s.products, product)
		added = append(added, product)
	}

	return added
}

func (s *extractSession) full() bool {
	return len(s.products) >= s.cfg.MaxProducts
}

// runExtractionLoop drives a session to completion: discover selectors once,
// then alternate extraction and content revealing until the target count is
// reached, the page goes stagnant, or the context is cancelled. Partial
// results are returned alongside any error.
func runExtractionLoop(
	ctx context.Context,
	cfg Config,
	drv pageDriver,
	em emitter,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
) ([]models.NormalizedProduct, selectors.Resolved, error) {
	set := selectors.ForPlatform(cfg.Platform)

	resolved, err := drv.Discover(set)
	if err != nil {
		return nil, nil, ErrSelectorDiscovery
	}
	logger.Info("selectors discovered", "platform", cfg.Platform, "card", resolved[selectors.FieldCard])

	session := newExtractSession(cfg)
	stagnant := 0

	for {
		if err := ctx.Err(); err != nil {
			return session.products, resolved, err
		}

		raws, err := drv.ExtractCards(resolved)
		if err != nil {
			// A momentarily unreadable page counts as a dead iteration
			// rather than a fatal error.
			logger.Warn("card extraction failed", "error", err)
			raws = nil
		}

		added := session.absorb(raws)
		for _, p := range added {
			em.product(ctx, p)
		}

		em.progress(ctx, len(session.products), cfg.MaxProducts, "extracting products")

		if session.full() {
			break
		}

		revealed, revealErr := drv.RevealMore(ctx)
		if revealErr != nil {
			logger.Warn("failed to reveal more content", "error", revealErr)
			revealed = false
		}

		if len(added) == 0 && !revealed {
			stagnant++
			if stagnant >= cfg.StagnantLimit {
				logger.Info("pagination stagnant, stopping", "iterations", stagnant)
				break
			}
		} else {
			stagnant = 0
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return session.products, resolved, err
			}
		}
	}

	return session.products, resolved, nil
}
