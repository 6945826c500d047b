package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketplaceHTML = `<html><body>
	<div class="search-results">
		<div class="product-card">
			<h3 class="product-title">Curso de Violão</h3>
			<span class="price">R$ 197,00</span>
			<span class="commission">40%</span>
			<a href="https://pay.example.com/product/violao">comprar</a>
		</div>
		<div class="product-card">
			<h3 class="product-title">Ebook de Receitas</h3>
			<span class="price">R$ 29,90</span>
			<a href="https://pay.example.com/product/receitas">comprar</a>
		</div>
	</div>
</body></html>`

const anchorOnlyHTML = `<html><body>
	<table>
		<tr><td><a href="/produto/curso-ingles"><b>Curso de Inglês</b></a></td></tr>
		<tr><td><a href="/produto/curso-excel">Curso de Excel</a></td></tr>
		<tr><td><a href="/sobre">Sobre nós</a></td></tr>
	</table>
</body></html>`

func scrapeAPIStub(t *testing.T, html string, succeed bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req scrapeAPIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.URL)

		resp := scrapeAPIResponse{Success: succeed}
		resp.Data.HTML = html
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestFetchScraper(t *testing.T, server *httptest.Server) *FetchScraper {
	t.Helper()
	client := NewScrapeAPIClient(server.URL, "test-key", 5*time.Second)
	return NewFetchScraper(client, testLogger())
}

func TestFetchScraperStructuralExtraction(t *testing.T) {
	server := scrapeAPIStub(t, marketplaceHTML, true)
	defer server.Close()

	events := make(chan Event, 64)
	products, err := newTestFetchScraper(t, server).Scrape(context.Background(), Config{
		URL:      "https://marketplace.example.com/search",
		Platform: "hotmart",
	}, events)
	close(events)

	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Curso de Violão", products[0].Name)
	assert.Equal(t, 197.00, products[0].Price)
	assert.Equal(t, 78.80, products[0].Commission)
	assert.Equal(t, "https://pay.example.com/product/violao", products[0].ProductURL)

	emitted, errEvents, completes := collectEvents(events)
	assert.Empty(t, errEvents)
	assert.Len(t, emitted, 2)

	require.Len(t, completes, 1)
	assert.Equal(t, 2, completes[0].Total)
}

func TestFetchScraperCompleteEventReportsCap(t *testing.T) {
	server := scrapeAPIStub(t, pageWithCards(25), true)
	defer server.Close()

	events := make(chan Event, 256)
	products, err := newTestFetchScraper(t, server).Scrape(context.Background(), Config{
		URL:         "https://marketplace.example.com/search",
		Platform:    "hotmart",
		MaxProducts: 10,
	}, events)
	close(events)

	require.NoError(t, err)
	require.Len(t, products, 10)

	_, _, completes := collectEvents(events)
	require.Len(t, completes, 1)
	assert.Equal(t, 10, completes[0].Total)
}

func TestFetchScraperAnchorFallback(t *testing.T) {
	server := scrapeAPIStub(t, anchorOnlyHTML, true)
	defer server.Close()

	products, err := newTestFetchScraper(t, server).Scrape(context.Background(), Config{
		URL:      "https://marketplace.example.com/loja",
		Platform: "monetizze",
	}, nil)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Curso de Inglês", products[0].Name)
	assert.Equal(t, "https://marketplace.example.com/produto/curso-ingles", products[0].ProductURL)
	assert.Equal(t, "Curso de Excel", products[1].Name)
}

func TestFetchScraperNoHTMLIsFatal(t *testing.T) {
	server := scrapeAPIStub(t, "", true)
	defer server.Close()

	events := make(chan Event, 16)
	_, err := newTestFetchScraper(t, server).Scrape(context.Background(), Config{
		URL:      "https://marketplace.example.com",
		Platform: "hotmart",
	}, events)
	close(events)

	assert.ErrorIs(t, err, ErrNoHTML)

	_, errEvents, completes := collectEvents(events)
	require.Len(t, errEvents, 1)
	assert.Equal(t, "fetch", errEvents[0].Type)
	assert.Empty(t, completes, "a failed fetch must not signal completion")
}

func TestFetchScraperAPIFailureIsFatal(t *testing.T) {
	server := scrapeAPIStub(t, "", false)
	defer server.Close()

	_, err := newTestFetchScraper(t, server).Scrape(context.Background(), Config{
		URL:      "https://marketplace.example.com",
		Platform: "hotmart",
	}, nil)

	assert.Error(t, err)
}
