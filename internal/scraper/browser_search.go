package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/grocerytrack/grocery-price-tracker/internal/browser"
	"github.com/grocerytrack/grocery-price-tracker/internal/models"
	"github.com/grocerytrack/grocery-price-tracker/internal/ratelimit"
)

// BrowserSearcher drives a real browser against the retailer search page.
// It extracts the same tiles as AldiSearcher but survives JS-rendered
// markup.
type BrowserSearcher struct {
	browser *browser.Browser
	baseURL string
	limiter ratelimit.RateLimiter
	logger  *slog.Logger
}

func NewBrowserSearcher(b *browser.Browser, opts *Options, logger *slog.Logger) *BrowserSearcher {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &BrowserSearcher{
		browser: b,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		limiter: ratelimit.NewSimpleRateLimiter(opts.MinDelay, opts.MaxDelay),
		logger:  logger.With("component", "browser_searcher"),
	}
}

func (s *BrowserSearcher) Search(ctx context.Context, keyword string) ([]models.SearchResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/en/search-results/?q=%s", s.baseURL, url.QueryEscape(keyword))
	s.logger.Debug("opening search page", "url", searchURL)

	page, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := s.browser.NavigateWithRetry(page, searchURL, 3); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if _, err := page.WaitForSelector(".product-tile", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		return nil, fmt.Errorf("search results did not load for %q: %w", keyword, err)
	}

	tiles, err := page.Locator(".product-tile").All()
	if err != nil {
		return nil, fmt.Errorf("failed to find product tiles: %w", err)
	}

	var results []models.SearchResult
	for i, tile := range tiles {
		if i >= maxResults {
			break
		}

		title, _ := tile.Locator(".product-name").First().TextContent()
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}

		priceText, _ := tile.Locator(".price").First().TextContent()
		price, ok := parsePrice(priceText)
		if !ok {
			continue
		}

		results = append(results, models.SearchResult{Title: title, Price: price})
	}

	s.logger.Info("search completed", "keyword", keyword, "results", len(results))

	return results, nil
}
