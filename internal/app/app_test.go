package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"kondate-shopper/internal/aggregator"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/database"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/scraper"
	"kondate-shopper/internal/shopping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockScraper struct {
	pages map[string]*menu.ScrapedPage
	// delays makes early URLs finish last.
	delays map[string]time.Duration
}

func (m *MockScraper) Scrape(ctx context.Context, url string) *menu.ScrapedPage {
	if d, ok := m.delays[url]; ok {
		time.Sleep(d)
	}
	return m.pages[url]
}

type MockAggregator struct {
	mu     sync.Mutex
	inputs []string
	result aggregator.Result
}

func (m *MockAggregator) Aggregate(ctx context.Context, rawText string) aggregator.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, rawText)
	return m.result
}

func page(date, title, raw string) *menu.ScrapedPage {
	return &menu.ScrapedPage{
		URL:            "https://www.lettuceclub.net/recipe/kondate/detail/k" + date + "/",
		DateStr:        date,
		Title:          title,
		RawIngredients: raw,
		Dishes:         []menu.Dish{{Type: menu.DishMain, Title: title}},
	}
}

func urlFor(date string) string {
	return "https://www.lettuceclub.net/recipe/kondate/detail/k" + date + "/"
}

func newTestApp(t *testing.T, s Scraper, agg IngredientAggregator) *App {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "kondate.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewApp(s, agg, shopping.NewRepository(db.SQL), &config.Config{FetchConcurrency: 3}, zap.NewNop())
}

// --- Tests ---

func TestAggregateURLs(t *testing.T) {
	ctx := context.Background()

	t.Run("MiddlePageFails", func(t *testing.T) {
		s := &MockScraper{pages: map[string]*menu.ScrapedPage{
			urlFor("20260216"): page("20260216", "鮭の塩焼き献立", "鮭 2切れ"),
			urlFor("20260218"): page("20260218", "カレー献立", "じゃがいも 2個"),
		}}
		agg := &MockAggregator{result: aggregator.Result{
			Ingredients: []menu.Ingredient{{Name: "鮭", Amount: "2切れ", Category: "魚・海鮮", UsedDays: []string{"月"}}},
			Model:       "flash",
		}}
		a := newTestApp(t, s, agg)

		out, err := a.AggregateURLs(ctx, []string{urlFor("20260216"), urlFor("20260217"), urlFor("20260218")})
		require.NoError(t, err)

		require.Len(t, out.Menus, 3)
		assert.Equal(t, menu.StatusSuccess, out.Menus[0].Status)
		assert.Equal(t, "月", out.Menus[0].DayOfWeek)
		assert.Equal(t, menu.StatusFailed, out.Menus[1].Status)
		assert.Equal(t, urlFor("20260217"), out.Menus[1].URL)
		assert.NotNil(t, out.Menus[1].Dishes)
		assert.Empty(t, out.Menus[1].Dishes)
		assert.Empty(t, out.Menus[1].RawIngredients)
		assert.Equal(t, "水", out.Menus[2].DayOfWeek)

		require.Len(t, agg.inputs, 1)
		assert.Equal(t, "【月 曜日: 鮭の塩焼き献立】\n鮭 2切れ\n\n【水 曜日: カレー献立】\nじゃがいも 2個", agg.inputs[0])
		assert.Equal(t, "flash", out.Model)
		assert.Len(t, out.Ingredients, 1)
	})

	t.Run("OrderSurvivesCompletionOrder", func(t *testing.T) {
		dates := []string{"20260216", "20260217", "20260218", "20260219", "20260220"}
		s := &MockScraper{pages: map[string]*menu.ScrapedPage{}, delays: map[string]time.Duration{}}
		var urls []string
		for i, d := range dates {
			s.pages[urlFor(d)] = page(d, "献立"+d, "材料"+d)
			s.delays[urlFor(d)] = time.Duration(len(dates)-i) * 10 * time.Millisecond
			urls = append(urls, urlFor(d))
		}
		a := newTestApp(t, s, &MockAggregator{})

		out, err := a.AggregateURLs(ctx, urls)
		require.NoError(t, err)
		for i, d := range dates {
			assert.Equal(t, d, out.Menus[i].Date)
		}
	})

	t.Run("NothingToAggregate", func(t *testing.T) {
		s := &MockScraper{pages: map[string]*menu.ScrapedPage{
			urlFor("20260216"): page("20260216", "献立", ""),
		}}
		agg := &MockAggregator{}
		a := newTestApp(t, s, agg)

		out, err := a.AggregateURLs(ctx, []string{urlFor("20260216"), urlFor("20260217")})
		assert.ErrorIs(t, err, ErrNothingToAggregate)
		require.Len(t, out.Menus, 2)
		assert.Equal(t, menu.StatusSuccess, out.Menus[0].Status)
		assert.Len(t, out.Menus[0].Dishes, 1)
		assert.Empty(t, agg.inputs)
	})

	t.Run("PageWithoutIngredientsIsStillSuccess", func(t *testing.T) {
		const html = `<html><body>
  <h1 class="main_tit">豚汁献立</h1>
  <div class="section-content">
    <h2>豚汁の作り方</h2>
    <div><h2>献立の材料（2人分）</h2></div>
  </div>
</body></html>`
		parsed, err := scraper.Parse(urlFor("20260218"), "https://www.lettuceclub.net", strings.NewReader(html))
		require.NoError(t, err)
		require.Empty(t, parsed.RawIngredients)

		s := &MockScraper{pages: map[string]*menu.ScrapedPage{
			urlFor("20260217"): page("20260217", "鮭献立", "鮭 2切れ"),
			urlFor("20260218"): parsed,
		}}
		agg := &MockAggregator{}
		a := newTestApp(t, s, agg)

		out, err := a.AggregateURLs(ctx, []string{urlFor("20260217"), urlFor("20260218")})
		require.NoError(t, err)
		require.Len(t, out.Menus, 2)
		assert.Equal(t, menu.StatusSuccess, out.Menus[1].Status)
		assert.Equal(t, "水", out.Menus[1].DayOfWeek)
		require.Len(t, out.Menus[1].Dishes, 1)
		assert.Empty(t, out.Menus[1].RawIngredients)

		require.Len(t, agg.inputs, 1)
		assert.NotContains(t, agg.inputs[0], "豚汁")
	})

	t.Run("NoURLs", func(t *testing.T) {
		a := newTestApp(t, &MockScraper{}, &MockAggregator{})
		_, err := a.AggregateURLs(ctx, nil)
		assert.ErrorIs(t, err, ErrNoURLs)
	})
}

func TestRecompute(t *testing.T) {
	ctx := context.Background()

	t.Run("SingleBlock", func(t *testing.T) {
		agg := &MockAggregator{result: aggregator.Result{
			Ingredients: []menu.Ingredient{
				{Name: "魚", Amount: "1切れ", Category: "魚・海鮮", UsedDays: []string{"月"}},
				{Name: "醤油", Amount: "少々", Category: "調味料・油", UsedDays: []string{"月"}},
			},
		}}
		a := newTestApp(t, &MockScraper{}, agg)

		out, err := a.Recompute(ctx, []string{"【月 曜日: 魚の煮付け】\n魚,醤油"})
		require.NoError(t, err)
		assert.Nil(t, out.Menus)
		require.Len(t, agg.inputs, 1)
		assert.Equal(t, "【月 曜日: 魚の煮付け】\n魚,醤油", agg.inputs[0])
		for _, ing := range out.Ingredients {
			assert.Contains(t, ing.UsedDays, "月")
		}
	})

	t.Run("Blank", func(t *testing.T) {
		agg := &MockAggregator{}
		a := newTestApp(t, &MockScraper{}, agg)

		out, err := a.Recompute(ctx, []string{"", "  "})
		assert.ErrorIs(t, err, ErrNothingToAggregate)
		assert.NotNil(t, out.Ingredients)
		assert.Empty(t, agg.inputs)
	})
}

func TestRecomputeSaved(t *testing.T) {
	ctx := context.Background()
	agg := &MockAggregator{result: aggregator.Result{
		Ingredients: []menu.Ingredient{{Name: "じゃがいも", Amount: "2個", Category: "野菜・きのこ", UsedDays: []string{"水"}}},
	}}
	a := newTestApp(t, &MockScraper{}, agg)

	menus := []menu.DayMenu{
		{Date: "20260216", DayOfWeek: "月", Status: menu.StatusSuccess, Dishes: []menu.Dish{}, RawIngredients: "【月 曜日: A】\n鮭"},
		{Date: "20260218", DayOfWeek: "水", Status: menu.StatusSuccess, Dishes: []menu.Dish{}, RawIngredients: "【水 曜日: B】\nじゃがいも"},
	}
	saved, err := a.SaveList(ctx, SaveRequest{WeekStartDate: "20260216", Recipes: menus, ActiveDates: []string{"20260216", "20260218"}})
	require.NoError(t, err)
	assert.Empty(t, saved)

	out, items, err := a.RecomputeSaved(ctx, "20260216", []string{"20260218"})
	require.NoError(t, err)
	assert.Equal(t, []string{"【水 曜日: B】\nじゃがいも"}, agg.inputs)
	assert.Len(t, out.Menus, 2)
	require.Len(t, items, 1)

	list, err := a.GetList(ctx, "20260216")
	require.NoError(t, err)
	assert.Equal(t, []string{"20260218"}, list.ActiveDates)
	assert.Equal(t, "じゃがいも", list.Ingredients[0].Name)

	_, _, err = a.RecomputeSaved(ctx, "20990105", nil)
	assert.ErrorIs(t, err, shopping.ErrListNotFound)
}

func TestScrapeOne(t *testing.T) {
	s := &MockScraper{pages: map[string]*menu.ScrapedPage{urlFor("20260216"): page("20260216", "献立", "")}}
	a := newTestApp(t, s, &MockAggregator{})

	p, err := a.ScrapeOne(context.Background(), urlFor("20260216"))
	require.NoError(t, err)
	assert.Equal(t, "20260216", p.DateStr)

	_, err = a.ScrapeOne(context.Background(), urlFor("20260217"))
	assert.ErrorIs(t, err, ErrScrapeFailed)
}
