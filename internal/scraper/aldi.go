package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/grocerytrack/grocery-price-tracker/internal/models"
	"github.com/grocerytrack/grocery-price-tracker/internal/ratelimit"
)

const (
	defaultBaseURL   = "https://www.aldi.com.au"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// Only the top search results are considered, matching the tiles a
	// shopper actually sees first.
	maxResults = 5
)

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

func DefaultOptions() *Options {
	return &Options{
		BaseURL:   defaultBaseURL,
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
		MinDelay:  2 * time.Second,
		MaxDelay:  5 * time.Second,
	}
}

// AldiSearcher fetches the Aldi search results page over plain HTTP and
// extracts product tiles with goquery.
type AldiSearcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   ratelimit.RateLimiter
	logger    *slog.Logger
}

func NewAldiSearcher(opts *Options, logger *slog.Logger) *AldiSearcher {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &AldiSearcher{
		client:    &http.Client{Timeout: opts.Timeout},
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		limiter:   ratelimit.NewSimpleRateLimiter(opts.MinDelay, opts.MaxDelay),
		logger:    logger.With("component", "aldi_searcher"),
	}
}

func (s *AldiSearcher) Search(ctx context.Context, keyword string) ([]models.SearchResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/en/search-results/?q=%s", s.baseURL, url.QueryEscape(keyword))
	s.logger.Debug("fetching search page", "url", searchURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search page for %q: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search page for %q returned status %d", keyword, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	results := parseSearchResults(doc)
	s.logger.Info("search completed", "keyword", keyword, "results", len(results))

	return results, nil
}

// parseSearchResults walks the top product tiles and keeps those with a
// title and a usable price. Tiles with a zero or unparsable price are
// dropped here so the matcher never sees degenerate candidates.
func parseSearchResults(doc *goquery.Document) []models.SearchResult {
	var results []models.SearchResult

	doc.Find(".product-tile").EachWithBreak(func(i int, tile *goquery.Selection) bool {
		if i >= maxResults {
			return false
		}

		title := strings.TrimSpace(tile.Find(".product-name").First().Text())
		if title == "" {
			return true
		}

		price, ok := parsePrice(tile.Find(".price").First().Text())
		if !ok {
			return true
		}

		results = append(results, models.SearchResult{Title: title, Price: price})
		return true
	})

	return results
}

// parsePrice cleans a displayed price like "$3.20" or "1,234.50" and rejects
// zero or unparsable values.
func parsePrice(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || price <= 0 {
		return 0, false
	}

	return price, true
}
