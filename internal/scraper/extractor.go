package scraper

import (
	"context"

	"kondate-shopper/internal/menu"

	"go.uber.org/zap"
)

// Extractor turns menu page URLs into ScrapedPage records.
type Extractor struct {
	fetcher *Fetcher
	baseURL string
	logger  *zap.Logger
}

// NewExtractor creates a new Extractor instance.
func NewExtractor(fetcher *Fetcher, baseURL string, logger *zap.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Scrape fetches and parses one page. It returns nil when no data could be
// obtained; the cause is logged and never returned.
func (e *Extractor) Scrape(ctx context.Context, pageURL string) (page *menu.ScrapedPage) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while scraping page", zap.String("url", pageURL), zap.Any("panic", r))
			page = nil
		}
	}()

	body, err := e.fetcher.Get(ctx, pageURL)
	if err != nil {
		e.logger.Warn("failed to fetch menu page", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	defer body.Close()

	page, err = Parse(pageURL, e.baseURL, body)
	if err != nil {
		e.logger.Warn("failed to parse menu page", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	e.logger.Debug("scraped menu page",
		zap.String("url", pageURL),
		zap.String("date", page.DateStr),
		zap.Int("dishes", len(page.Dishes)),
		zap.Bool("has_ingredients", page.RawIngredients != ""))
	return page
}
