package app

import (
	"context"
	"fmt"

	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of a batch. Menus is nil in recompute mode.
type Outcome struct {
	Menus             []menu.DayMenu
	Ingredients       []menu.Ingredient
	Model             string
	Fallback          bool
	FlaggedCategories []string
}

// AggregateURLs scrapes every page, keeping the input order in Menus, and
// aggregates the ingredient blocks of the pages that had any. A failed page
// only marks its own DayMenu as failed. When no block is left the menus are
// returned together with ErrNothingToAggregate.
func (a *App) AggregateURLs(ctx context.Context, urls []string) (Outcome, error) {
	if len(urls) == 0 {
		return Outcome{}, ErrNoURLs
	}

	menus := make([]menu.DayMenu, len(urls))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, url := range urls {
		g.Go(func() error {
			menus[i] = a.dayMenu(ctx, url)
			return nil
		})
	}
	_ = g.Wait()

	blocks := make([]string, 0, len(menus))
	failed := 0
	for _, m := range menus {
		if m.Status == menu.StatusFailed {
			failed++
			continue
		}
		blocks = append(blocks, m.RawIngredients)
	}
	a.logger.Info("scraped menu pages", zap.Int("pages", len(urls)), zap.Int("failed", failed))

	outcome := Outcome{Menus: menus}
	corpus := menu.JoinBlocks(blocks)
	if corpus == "" {
		outcome.Ingredients = []menu.Ingredient{}
		return outcome, ErrNothingToAggregate
	}

	a.aggregate(ctx, corpus, &outcome)
	return outcome, nil
}

// Recompute aggregates already formatted blocks without scraping.
func (a *App) Recompute(ctx context.Context, blocks []string) (Outcome, error) {
	corpus := menu.JoinBlocks(blocks)
	if corpus == "" {
		return Outcome{Ingredients: []menu.Ingredient{}}, ErrNothingToAggregate
	}

	var outcome Outcome
	a.aggregate(ctx, corpus, &outcome)
	return outcome, nil
}

// RecomputeSaved re-aggregates a stored week over the given days and saves
// the result, which resets every checked flag. A nil activeDates keeps the
// stored selection.
func (a *App) RecomputeSaved(ctx context.Context, weekStartDate string, activeDates []string) (Outcome, []shopping.Item, error) {
	list, err := a.store.Get(ctx, weekStartDate)
	if err != nil {
		return Outcome{}, nil, err
	}
	if activeDates == nil {
		activeDates = list.ActiveDates
	}

	outcome, err := a.Recompute(ctx, menu.ActiveBlocks(list.Recipes, activeDates))
	if err != nil {
		return outcome, nil, err
	}
	outcome.Menus = list.Recipes

	items, err := a.SaveList(ctx, SaveRequest{
		WeekStartDate: weekStartDate,
		Recipes:       list.Recipes,
		ActiveDates:   activeDates,
		Ingredients:   outcome.Ingredients,
	})
	if err != nil {
		return outcome, nil, fmt.Errorf("failed to save recomputed list: %w", err)
	}
	return outcome, items, nil
}

func (a *App) dayMenu(ctx context.Context, url string) menu.DayMenu {
	page := a.scraper.Scrape(ctx, url)
	if page == nil {
		return menu.DayMenu{
			URL:    url,
			Status: menu.StatusFailed,
			Dishes: []menu.Dish{},
		}
	}

	weekday := menu.Weekday(page.DateStr)
	dishes := page.Dishes
	if dishes == nil {
		dishes = []menu.Dish{}
	}
	return menu.DayMenu{
		Date:           page.DateStr,
		DayOfWeek:      weekday,
		URL:            page.URL,
		Status:         menu.StatusSuccess,
		Dishes:         dishes,
		RawIngredients: menu.FormatBlock(*page, weekday),
	}
}

func (a *App) aggregate(ctx context.Context, corpus string, outcome *Outcome) {
	res := a.aggregator.Aggregate(ctx, corpus)
	outcome.Ingredients = res.Ingredients
	if outcome.Ingredients == nil {
		outcome.Ingredients = []menu.Ingredient{}
	}
	outcome.Model = res.Model
	outcome.Fallback = res.Fallback
	outcome.FlaggedCategories = res.FlaggedCategories
}
