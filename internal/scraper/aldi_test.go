package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPageHTML = `<!DOCTYPE html>
<html>
<body>
	<div class="search-results">
		<div class="product-tile">
			<div class="product-name">Farmdale Milk 2L</div>
			<span class="price">$3.20</span>
		</div>
		<div class="product-tile">
			<div class="product-name">Brand X Milk 1L</div>
			<span class="price">$2.10</span>
		</div>
		<div class="product-tile">
			<div class="product-name">Out Of Stock Milk 3L</div>
			<span class="price">$0.00</span>
		</div>
		<div class="product-tile">
			<div class="product-name">No Price Milk 1L</div>
			<span class="price"></span>
		</div>
		<div class="product-tile">
			<span class="price">$9.99</span>
		</div>
		<div class="product-tile">
			<div class="product-name">Sixth Tile Milk 1L</div>
			<span class="price">$4.50</span>
		</div>
	</div>
</body>
</html>`

func TestParseSearchResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPageHTML))
	require.NoError(t, err)

	results := parseSearchResults(doc)

	// Zero-price, unpriced and untitled tiles are dropped, and the sixth
	// tile is never looked at.
	require.Len(t, results, 2)
	assert.Equal(t, "Farmdale Milk 2L", results[0].Title)
	assert.Equal(t, 3.20, results[0].Price)
	assert.Equal(t, "Brand X Milk 1L", results[1].Title)
	assert.Equal(t, 2.10, results[1].Price)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
		ok       bool
	}{
		{"plain dollar price", "$3.20", 3.20, true},
		{"whitespace around price", "  $12.00 \n", 12.00, true},
		{"thousands separator", "$1,234.50", 1234.50, true},
		{"no currency symbol", "2.10", 2.10, true},
		{"zero price rejected", "$0.00", 0, false},
		{"empty string rejected", "", 0, false},
		{"junk rejected", "per kg", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := parsePrice(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, price, 1e-9)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte(searchPageHTML))
	}))
	defer server.Close()

	searcher := NewAldiSearcher(&Options{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, slog.Default())

	results, err := searcher.Search(context.Background(), "full cream milk")

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "/en/search-results/?q=full+cream+milk", gotPath)
}

func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	searcher := NewAldiSearcher(&Options{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, slog.Default())

	_, err := searcher.Search(context.Background(), "milk")

	assert.ErrorContains(t, err, "status 503")
}
