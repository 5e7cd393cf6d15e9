package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kondate-shopper/internal/menu"
	shoppingdb "kondate-shopper/internal/shopping/db"

	"github.com/google/uuid"
)

// Repository handles persistence of weekly shopping lists.
type Repository struct {
	queries *shoppingdb.Queries
	db      *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{
		queries: shoppingdb.New(d),
		db:      d,
	}
}

// Save replaces whatever is stored for the week with the given data. All
// items start unchecked, so saving again resets every checked flag.
func (r *Repository) Save(
	ctx context.Context,
	weekStartDate string,
	recipes []menu.DayMenu,
	activeDates []string,
	ingredients []menu.Ingredient,
) ([]Item, error) {
	if weekStartDate == "" {
		return nil, ErrWeekRequired
	}
	if recipes == nil {
		recipes = []menu.DayMenu{}
	}
	if activeDates == nil {
		activeDates = []string{}
	}

	recipesJSON, err := json.Marshal(recipes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipes: %w", err)
	}
	activeJSON, err := json.Marshal(activeDates)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal active dates: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteIngredientItems(ctx, weekStartDate); err != nil {
		return nil, fmt.Errorf("failed to delete shopping list items: %w", err)
	}
	if err := q.DeleteShoppingList(ctx, weekStartDate); err != nil {
		return nil, fmt.Errorf("failed to delete shopping list: %w", err)
	}

	if err := q.InsertShoppingList(ctx, shoppingdb.InsertShoppingListParams{
		WeekStartDate: weekStartDate,
		RecipesData:   string(recipesJSON),
		ActiveDates:   string(activeJSON),
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("failed to insert shopping list: %w", err)
	}

	items := make([]Item, 0, len(ingredients))
	for i, ing := range ingredients {
		usedDays := ing.UsedDays
		if usedDays == nil {
			usedDays = []string{}
		}
		daysJSON, err := json.Marshal(usedDays)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal used days: %w", err)
		}

		item := Item{
			ID:       uuid.NewString(),
			Name:     ing.Name,
			Amount:   ing.Amount,
			Category: ing.Category,
			UsedDays: usedDays,
		}
		if err := q.InsertIngredientItem(ctx, shoppingdb.InsertIngredientItemParams{
			ID:            item.ID,
			WeekStartDate: weekStartDate,
			Position:      int64(i),
			Name:          item.Name,
			Amount:        item.Amount,
			Category:      item.Category,
			UsedDays:      string(daysJSON),
		}); err != nil {
			return nil, fmt.Errorf("failed to insert shopping list item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit shopping list: %w", err)
	}
	return items, nil
}

// Get retrieves the list stored for a week.
func (r *Repository) Get(ctx context.Context, weekStartDate string) (*SavedList, error) {
	dbList, err := r.queries.GetShoppingList(ctx, weekStartDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}

	list := &SavedList{WeekStartDate: dbList.WeekStartDate}
	if err := json.Unmarshal([]byte(dbList.RecipesData), &list.Recipes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
	}
	if err := json.Unmarshal([]byte(dbList.ActiveDates), &list.ActiveDates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active dates: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, dbList.CreatedAt); err == nil {
		list.CreatedAt = ts
	}

	rows, err := r.queries.ListIngredientItems(ctx, weekStartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping list items: %w", err)
	}
	list.Ingredients = make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := toItem(row)
		if err != nil {
			return nil, err
		}
		list.Ingredients = append(list.Ingredients, item)
	}

	return list, nil
}

// SetChecked updates the checked flag of one item.
func (r *Repository) SetChecked(ctx context.Context, itemID string, checked bool) (*Item, error) {
	var flag int64
	if checked {
		flag = 1
	}

	n, err := r.queries.SetIngredientChecked(ctx, shoppingdb.SetIngredientCheckedParams{IsChecked: flag, ID: itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to update shopping list item: %w", err)
	}
	if n == 0 {
		return nil, ErrItemNotFound
	}

	row, err := r.queries.GetIngredientItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list item: %w", err)
	}
	item, err := toItem(row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func toItem(row shoppingdb.IngredientItem) (Item, error) {
	usedDays := []string{}
	if err := json.Unmarshal([]byte(row.UsedDays), &usedDays); err != nil {
		return Item{}, fmt.Errorf("failed to unmarshal used days: %w", err)
	}
	return Item{
		ID:        row.ID,
		Name:      row.Name,
		Amount:    row.Amount,
		Category:  row.Category,
		UsedDays:  usedDays,
		IsChecked: row.IsChecked != 0,
	}, nil
}
