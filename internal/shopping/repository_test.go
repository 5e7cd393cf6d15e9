package shopping

import (
	"context"
	"path/filepath"
	"testing"

	"kondate-shopper/internal/database"
	"kondate-shopper/internal/menu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "kondate.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL)
}

func TestRepository(t *testing.T) {
	ctx := context.Background()
	menus := []menu.DayMenu{{
		Date:      "20260216",
		DayOfWeek: "月",
		URL:       "https://www.lettuceclub.net/recipe/kondate/detail/k20260216/",
		Status:    menu.StatusSuccess,
		Dishes:    []menu.Dish{{Type: menu.DishMain, Title: "魚の煮付け"}},
	}}
	first := []menu.Ingredient{
		{Name: "魚", Amount: "2切れ", Category: "魚・海鮮", UsedDays: []string{"月"}},
		{Name: "醤油", Amount: "大さじ2", Category: "調味料・油"},
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		repo := newTestRepository(t)

		items, err := repo.Save(ctx, "20260216", menus, []string{"20260216"}, first)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.NotEmpty(t, items[0].ID)
		assert.NotEqual(t, items[0].ID, items[1].ID)

		list, err := repo.Get(ctx, "20260216")
		require.NoError(t, err)
		assert.Equal(t, menus, list.Recipes)
		assert.Equal(t, []string{"20260216"}, list.ActiveDates)
		require.Len(t, list.Ingredients, 2)
		assert.Equal(t, "魚", list.Ingredients[0].Name)
		assert.Equal(t, []string{}, list.Ingredients[1].UsedDays)
		assert.False(t, list.CreatedAt.IsZero())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := newTestRepository(t)
		_, err := repo.Get(ctx, "20260216")
		assert.ErrorIs(t, err, ErrListNotFound)
	})

	t.Run("SaveReplacesAndResetsChecked", func(t *testing.T) {
		repo := newTestRepository(t)

		items, err := repo.Save(ctx, "20260216", menus, nil, first)
		require.NoError(t, err)
		_, err = repo.SetChecked(ctx, items[0].ID, true)
		require.NoError(t, err)

		second := []menu.Ingredient{
			{Name: "魚", Amount: "3切れ", Category: "魚・海鮮", UsedDays: []string{"月", "水"}},
		}
		_, err = repo.Save(ctx, "20260216", menus, []string{"20260216", "20260218"}, second)
		require.NoError(t, err)

		list, err := repo.Get(ctx, "20260216")
		require.NoError(t, err)
		require.Len(t, list.Ingredients, 1)
		assert.Equal(t, "3切れ", list.Ingredients[0].Amount)
		assert.False(t, list.Ingredients[0].IsChecked)
		assert.Len(t, list.ActiveDates, 2)

		_, err = repo.SetChecked(ctx, items[0].ID, true)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("SetChecked", func(t *testing.T) {
		repo := newTestRepository(t)
		items, err := repo.Save(ctx, "20260216", menus, nil, first)
		require.NoError(t, err)

		item, err := repo.SetChecked(ctx, items[1].ID, true)
		require.NoError(t, err)
		assert.True(t, item.IsChecked)
		assert.Equal(t, "醤油", item.Name)

		item, err = repo.SetChecked(ctx, items[1].ID, false)
		require.NoError(t, err)
		assert.False(t, item.IsChecked)

		_, err = repo.SetChecked(ctx, "missing", true)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("WeekRequired", func(t *testing.T) {
		repo := newTestRepository(t)
		_, err := repo.Save(ctx, "", menus, nil, first)
		assert.ErrorIs(t, err, ErrWeekRequired)
	})
}

func TestGroupByCategory(t *testing.T) {
	items := []Item{
		{Name: "醤油", Category: "調味料・油"},
		{Name: "バジル", Category: "ハーブ"},
		{Name: "玉ねぎ", Category: "野菜・きのこ"},
		{Name: "塩", Category: "調味料・油"},
	}

	order, groups := GroupByCategory(items)
	assert.Equal(t, []string{"野菜・きのこ", "調味料・油", "ハーブ"}, order)
	assert.Len(t, groups["調味料・油"], 2)
}
