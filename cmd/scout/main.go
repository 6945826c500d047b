package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/offerscout/offerscout/internal/browser"
	"github.com/offerscout/offerscout/internal/config"
	"github.com/offerscout/offerscout/internal/scoring"
	"github.com/offerscout/offerscout/internal/scraper"
	"github.com/offerscout/offerscout/internal/session"
)

// scout scrapes one marketplace page, scores what it finds, and prints the
// ranked products as JSON. Useful for trying selectors and scoring against a
// live page without the server.
func main() {
	var (
		url         = flag.String("url", "", "marketplace page to scrape (required)")
		platform    = flag.String("platform", "hotmart", "platform tag (hotmart, clickbank, kiwify, eduzz, monetizze)")
		scraperType = flag.String("type", "browser", "scraper strategy (browser, fetch)")
		maxProducts = flag.Int("max", 50, "maximum products to extract")
		useAI       = flag.Bool("ai", false, "blend AI judgment into scores (requires AI_API_KEY)")
		topN        = flag.Int("top", 0, "print only the N best products (0 = all)")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall run timeout")
		verbose     = flag.Bool("v", false, "log scrape events to stderr")
	)
	flag.Parse()

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("interrupted, stopping")
		cancel()
	}()

	browserOpts := &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		Locale:         cfg.Browser.Locale,
		TimezoneID:     cfg.Browser.TimezoneID,
		BlockResources: true,
	}

	var apiClient *scraper.ScrapeAPIClient
	if cfg.Scraper.APIBaseURL != "" {
		apiClient = scraper.NewScrapeAPIClient(cfg.Scraper.APIBaseURL, cfg.Scraper.APIKey, cfg.Scraper.APITimeout)
	}

	scr := scraper.NewScraper(*scraperType, scraper.FactoryDeps{
		BrowserOpts: browserOpts,
		Fingerprint: session.DefaultFingerprint(),
		APIClient:   apiClient,
		Logger:      logger,
	})

	events := make(chan scraper.Event, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			switch e := ev.(type) {
			case scraper.ProgressEvent:
				fmt.Fprintf(os.Stderr, "\rprogress: %d/%d (%.0f%%)", e.Current, e.Total, e.Percent)
			case scraper.ErrorEvent:
				fmt.Fprintf(os.Stderr, "\nerror [%s]: %s\n", e.Type, e.Message)
			case scraper.CompleteEvent:
				fmt.Fprintf(os.Stderr, "\ndone: %d products\n", e.Total)
			case scraper.LogEvent:
				if *verbose {
					fmt.Fprintf(os.Stderr, "%s: %s\n", e.Level, e.Message)
				}
			}
		}
	}()

	products, scrapeErr := scr.Scrape(ctx, scraper.Config{
		URL:         *url,
		Platform:    *platform,
		MaxProducts: *maxProducts,
	}, events)
	close(events)
	wg.Wait()

	if scrapeErr != nil && len(products) == 0 {
		fmt.Fprintf(os.Stderr, "scrape failed: %v\n", scrapeErr)
		os.Exit(1)
	}
	if scrapeErr != nil {
		fmt.Fprintf(os.Stderr, "scrape ended early, keeping %d products: %v\n", len(products), scrapeErr)
	}

	var judge scoring.Judge
	if *useAI && cfg.AIEnabled() {
		judge = scoring.NewOpenAIJudge(cfg.Scoring.AIAPIBaseURL, cfg.Scoring.AIAPIKey, cfg.Scoring.AIModel, cfg.Scoring.AITimeout)
	} else if *useAI {
		fmt.Fprintln(os.Stderr, "AI_API_KEY not set, falling back to deterministic scoring")
	}
	engine := scoring.NewEngine(judge, logger)

	scored := engine.BatchScore(ctx, products, scoring.BatchOptions{
		UseAI:    *useAI,
		Parallel: !*useAI,
	})

	if *topN > 0 {
		scored = scoring.TopN(scored, *topN)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scored); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}
