package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/offerscout/offerscout/internal/models"
)

// productAnchorRe is the last-resort pass: any anchor whose href looks like a
// product page, with the anchor text as the name.
var productAnchorRe = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']*(?:/product/|/produto/|/item/|/offer/|/afiliado|/dp/)[^"']*)["'][^>]*>(.*?)</a>`)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// ScrapeAPIClient calls a third-party scraping API that fetches and renders
// a page server-side, returning its HTML.
type ScrapeAPIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewScrapeAPIClient(baseURL, apiKey string, timeout time.Duration) *ScrapeAPIClient {
	return &ScrapeAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type scrapeAPIRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		HTML     string `json:"html"`
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// FetchHTML requests the rendered HTML for a target URL.
func (c *ScrapeAPIClient) FetchHTML(ctx context.Context, targetURL string) (string, error) {
	body, err := json.Marshal(scrapeAPIRequest{URL: targetURL, Formats: []string{"html", "markdown"}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("scraping API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("scraping API returned %s: %s", resp.Status, string(data))
	}

	var parsed scrapeAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode scraping API response: %w", err)
	}

	if !parsed.Success {
		return "", fmt.Errorf("scraping API reported failure: %s", parsed.Error)
	}

	return parsed.Data.HTML, nil
}

// FetchScraper is the best-effort fallback strategy: no live browser, just
// the remote API's HTML and layered heuristic extraction. It never falls
// back to a browser itself; strategy selection is the factory's job.
type FetchScraper struct {
	client *ScrapeAPIClient
	logger *slog.Logger
}

func NewFetchScraper(client *ScrapeAPIClient, logger *slog.Logger) *FetchScraper {
	return &FetchScraper{
		client: client,
		logger: logger.With("component", "fetch_scraper"),
	}
}

func (s *FetchScraper) Scrape(ctx context.Context, cfg Config, events chan<- Event) ([]models.NormalizedProduct, error) {
	cfg = cfg.withDefaults()
	em := emitter{ch: events}

	em.log(ctx, "info", "fetching page via scraping API", map[string]any{"url": cfg.URL})

	html, err := s.client.FetchHTML(ctx, cfg.URL)
	if err != nil {
		em.errorf(ctx, "fetch", "scraping API call failed: %v", err)
		return nil, err
	}
	if strings.TrimSpace(html) == "" {
		em.errorf(ctx, "fetch", "scraping API returned no HTML for %s", cfg.URL)
		return nil, ErrNoHTML
	}

	products := s.extractFromHTML(html, cfg)
	for i, p := range products {
		em.product(ctx, p)
		em.progress(ctx, i+1, len(products), "extracting products")
	}

	em.complete(ctx, len(products), nil)
	s.logger.Info("fetch scrape complete", "platform", cfg.Platform, "products", len(products))

	return products, nil
}

// extractFromHTML runs the layered extraction: a structural pass over
// card-like elements first, then the anchor regex pass when the structural
// one finds nothing. Precision is traded for not needing a live browser.
func (s *FetchScraper) extractFromHTML(html string, cfg Config) []models.NormalizedProduct {
	session := newExtractSession(cfg)

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		session.absorb(structuralRecords(doc))
	} else {
		s.logger.Warn("failed to parse HTML document", "error", err)
	}

	if len(session.products) == 0 {
		session.absorb(anchorRecords(html))
	}

	return session.products
}

// structuralRecords mines elements whose class or test id names them
// card/product/item/offer-like.
func structuralRecords(doc *goquery.Document) []models.RawProductRecord {
	var records []models.RawProductRecord

	doc.Find(`[class*="product"], [class*="card"], [class*="item"], [class*="offer"], article`).Each(func(_ int, card *goquery.Selection) {
		// Skip wrappers that contain other candidate cards.
		if card.Find(`[class*="card"], article`).Length() > 0 {
			return
		}

		name := strings.TrimSpace(card.Find(`h1, h2, h3, h4, [class*="title"], [class*="name"], [class*="nome"]`).First().Text())
		href, _ := card.Find("a[href]").First().Attr("href")
		if href == "" {
			if h, ok := card.Attr("href"); ok {
				href = h
			}
		}

		img, _ := card.Find("img[src]").First().Attr("src")

		records = append(records, models.RawProductRecord{
			Name:            name,
			PriceText:       strings.TrimSpace(card.Find(`[class*="price"], [class*="preco"], [class*="valor"]`).First().Text()),
			CommissionText:  strings.TrimSpace(card.Find(`[class*="commission"], [class*="comissao"]`).First().Text()),
			TemperatureText: strings.TrimSpace(card.Find(`[class*="temperature"], [class*="gravity"], [class*="heat"]`).First().Text()),
			Category:        strings.TrimSpace(card.Find(`[class*="category"], [class*="categoria"]`).First().Text()),
			ProductURL:      href,
			ImageURL:        img,
		})
	})

	return records
}

// anchorRecords is the last-resort pass over product-looking links.
func anchorRecords(html string) []models.RawProductRecord {
	var records []models.RawProductRecord

	for _, match := range productAnchorRe.FindAllStringSubmatch(html, -1) {
		name := strings.TrimSpace(tagRe.ReplaceAllString(match[2], " "))
		name = strings.Join(strings.Fields(name), " ")

		records = append(records, models.RawProductRecord{
			Name:       name,
			ProductURL: match[1],
		})
	}

	return records
}
