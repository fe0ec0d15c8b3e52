package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/grocerytrack/grocery-price-tracker/internal/matcher"
	"github.com/grocerytrack/grocery-price-tracker/internal/models"
)

// Searcher obtains scraped candidates for a search keyword. Implementations
// may hit the retailer site, a cache, or a test double.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]models.SearchResult, error)
}

// PriceWriter applies a matched price to the underlying store. The store is
// expected to stamp a last-updated timestamp alongside the price.
type PriceWriter interface {
	UpdatePrice(ctx context.Context, productName string, price float64) error
}

type OutcomeStatus string

const (
	StatusUpdated OutcomeStatus = "updated"
	StatusSkipped OutcomeStatus = "skipped"
	StatusFailed  OutcomeStatus = "failed"
)

type SkipReason string

const (
	SkipEmptyKeyword    SkipReason = "empty_keyword"
	SkipNoSearchResults SkipReason = "no_search_results"
	SkipNoMatch         SkipReason = "no_match"
)

// Outcome is the per-entry result of one pass.
type Outcome struct {
	ProductName string        `json:"product_name"`
	Status      OutcomeStatus `json:"status"`
	Reason      SkipReason    `json:"reason,omitempty"`
	Price       float64       `json:"price,omitempty"`
	Err         error         `json:"-"`
}

// RunReport aggregates the outcomes of one full pass over the catalog.
// It holds exactly one outcome per catalog entry, in catalog order.
type RunReport struct {
	Outcomes  []Outcome `json:"outcomes"`
	Processed int       `json:"processed"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
}

func (r *RunReport) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Processed++

	switch o.Status {
	case StatusUpdated:
		r.Updated++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Coordinator iterates the product catalog and applies at most one price
// write per entry. One instance must not run concurrent passes against the
// same store; counters are owned by the running pass and are not locked.
type Coordinator struct {
	matcher *matcher.Matcher
	search  Searcher
	writer  PriceWriter
	logger  *slog.Logger
}

func NewCoordinator(m *matcher.Matcher, search Searcher, writer PriceWriter, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		matcher: m,
		search:  search,
		writer:  writer,
		logger:  logger.With("component", "updater"),
	}
}

// Run processes every catalog entry in order and returns a report with one
// outcome per entry. Per-entry failures never abort the pass; cancellation
// is checked between entries and marks the remaining ones as failed without
// corrupting the report so far.
func (c *Coordinator) Run(ctx context.Context, entries []models.CatalogEntry) *RunReport {
	report := &RunReport{Outcomes: make([]Outcome, 0, len(entries))}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			report.record(Outcome{
				ProductName: entry.ProductName,
				Status:      StatusFailed,
				Err:         fmt.Errorf("pass cancelled: %w", ctx.Err()),
			})
			continue
		default:
		}

		report.record(c.processEntry(ctx, entry))
	}

	c.logger.Info("pass completed",
		"processed", report.Processed,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed)

	return report
}

func (c *Coordinator) processEntry(ctx context.Context, entry models.CatalogEntry) Outcome {
	outcome := Outcome{ProductName: entry.ProductName}

	if strings.TrimSpace(entry.SearchKeyword) == "" {
		outcome.Status = StatusSkipped
		outcome.Reason = SkipEmptyKeyword
		return outcome
	}

	results, err := c.search.Search(ctx, entry.SearchKeyword)
	if err != nil {
		c.logger.Error("search failed", "product", entry.ProductName, "keyword", entry.SearchKeyword, "error", err)
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("search %q: %w", entry.SearchKeyword, err)
		return outcome
	}

	if len(results) == 0 {
		c.logger.Debug("no search results", "product", entry.ProductName, "keyword", entry.SearchKeyword)
		outcome.Status = StatusSkipped
		outcome.Reason = SkipNoSearchResults
		return outcome
	}

	decision := c.matcher.Select(results, entry.TargetSize, entry.BrandType)
	if !decision.Matched {
		c.logger.Debug("no matching candidate", "product", entry.ProductName, "candidates", len(results))
		outcome.Status = StatusSkipped
		outcome.Reason = SkipNoMatch
		return outcome
	}

	if err := c.writer.UpdatePrice(ctx, entry.ProductName, decision.Result.Price); err != nil {
		c.logger.Error("price write failed", "product", entry.ProductName, "error", err)
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("update price for %q: %w", entry.ProductName, err)
		return outcome
	}

	c.logger.Info("price updated",
		"product", entry.ProductName,
		"price", decision.Result.Price,
		"matched_title", decision.Result.Title,
		"size_delta", decision.SizeDelta)

	outcome.Status = StatusUpdated
	outcome.Price = decision.Result.Price
	return outcome
}
