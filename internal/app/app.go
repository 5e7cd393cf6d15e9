// Package app wires scraping, aggregation and storage into the operations
// exposed by the HTTP API, the CLI and the Telegram bot.
package app

import (
	"context"
	"errors"

	"kondate-shopper/internal/aggregator"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"

	"go.uber.org/zap"
)

var (
	// ErrNothingToAggregate means no ingredient text was left to send to
	// the model. Menus gathered so far are still returned.
	ErrNothingToAggregate = errors.New("no ingredients found to aggregate")
	// ErrNoURLs is returned when a batch names no page.
	ErrNoURLs = errors.New("URLs array is required")
	// ErrScrapeFailed is returned when a single page yields no data.
	ErrScrapeFailed = errors.New("failed to scrape data")
)

// Scraper turns a page URL into its menu data, or nil when there is none.
type Scraper interface {
	Scrape(ctx context.Context, url string) *menu.ScrapedPage
}

// IngredientAggregator merges ingredient blocks into one list. It never fails.
type IngredientAggregator interface {
	Aggregate(ctx context.Context, rawText string) aggregator.Result
}

// ListStore persists one shopping list per week.
type ListStore interface {
	Save(ctx context.Context, weekStartDate string, recipes []menu.DayMenu, activeDates []string, ingredients []menu.Ingredient) ([]shopping.Item, error)
	Get(ctx context.Context, weekStartDate string) (*shopping.SavedList, error)
	SetChecked(ctx context.Context, itemID string, checked bool) (*shopping.Item, error)
}

// App holds the application's dependencies.
type App struct {
	scraper     Scraper
	aggregator  IngredientAggregator
	store       ListStore
	concurrency int
	logger      *zap.Logger
}

// NewApp creates and initializes a new App instance.
func NewApp(
	scraper Scraper,
	agg IngredientAggregator,
	store ListStore,
	cfg *config.Config,
	logger *zap.Logger,
) *App {
	concurrency := cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &App{
		scraper:     scraper,
		aggregator:  agg,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ScrapeOne extracts a single page.
func (a *App) ScrapeOne(ctx context.Context, url string) (*menu.ScrapedPage, error) {
	page := a.scraper.Scrape(ctx, url)
	if page == nil {
		return nil, ErrScrapeFailed
	}
	return page, nil
}

// SaveList replaces the stored list of the week.
func (a *App) SaveList(ctx context.Context, req SaveRequest) ([]shopping.Item, error) {
	items, err := a.store.Save(ctx, req.WeekStartDate, req.Recipes, req.ActiveDates, req.Ingredients)
	if err != nil {
		return nil, err
	}
	a.logger.Info("saved shopping list",
		zap.String("week", req.WeekStartDate),
		zap.Int("items", len(items)),
		zap.Int("active_days", len(req.ActiveDates)))
	return items, nil
}

// GetList returns the stored list of the week, or shopping.ErrListNotFound.
func (a *App) GetList(ctx context.Context, weekStartDate string) (*shopping.SavedList, error) {
	return a.store.Get(ctx, weekStartDate)
}

// SetChecked flips the checked flag of one item.
func (a *App) SetChecked(ctx context.Context, itemID string, checked bool) (*shopping.Item, error) {
	return a.store.SetChecked(ctx, itemID, checked)
}

// SaveRequest is everything stored for one week.
type SaveRequest struct {
	WeekStartDate string
	Recipes       []menu.DayMenu
	ActiveDates   []string
	Ingredients   []menu.Ingredient
}
