package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/offerscout/offerscout/internal/session"
)

func TestNewScraperSelectsStrategy(t *testing.T) {
	deps := FactoryDeps{
		Fingerprint: session.DefaultFingerprint(),
		APIClient:   NewScrapeAPIClient("https://scrape.example.com", "key", time.Second),
		Logger:      testLogger(),
	}

	tests := []struct {
		name        string
		scraperType string
		wantBrowser bool
	}{
		{"browser", TypeBrowser, true},
		{"playwright alias", "playwright", true},
		{"empty defaults to browser", "", true},
		{"fetch", TypeFetch, false},
		{"api alias", "api", false},
		{"unknown substitutes browser", "selenium", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScraper(tt.scraperType, deps)
			if tt.wantBrowser {
				assert.IsType(t, &BrowserScraper{}, s)
			} else {
				assert.IsType(t, &FetchScraper{}, s)
			}
		})
	}
}

func TestNewScraperFetchWithoutClientFallsBack(t *testing.T) {
	s := NewScraper(TypeFetch, FactoryDeps{Logger: testLogger()})
	assert.IsType(t, &BrowserScraper{}, s)
}
