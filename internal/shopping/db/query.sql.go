package shoppingdb

import (
	"context"
)

const deleteIngredientItems = `-- name: DeleteIngredientItems :exec
DELETE FROM ingredient_items WHERE week_start_date = ?
`

func (q *Queries) DeleteIngredientItems(ctx context.Context, weekStartDate string) error {
	_, err := q.db.ExecContext(ctx, deleteIngredientItems, weekStartDate)
	return err
}

const deleteShoppingList = `-- name: DeleteShoppingList :exec
DELETE FROM shopping_lists WHERE week_start_date = ?
`

func (q *Queries) DeleteShoppingList(ctx context.Context, weekStartDate string) error {
	_, err := q.db.ExecContext(ctx, deleteShoppingList, weekStartDate)
	return err
}

const getIngredientItem = `-- name: GetIngredientItem :one
SELECT id, week_start_date, position, name, amount, category, used_days, is_checked
FROM ingredient_items
WHERE id = ?
`

func (q *Queries) GetIngredientItem(ctx context.Context, id string) (IngredientItem, error) {
	row := q.db.QueryRowContext(ctx, getIngredientItem, id)
	var i IngredientItem
	err := row.Scan(
		&i.ID,
		&i.WeekStartDate,
		&i.Position,
		&i.Name,
		&i.Amount,
		&i.Category,
		&i.UsedDays,
		&i.IsChecked,
	)
	return i, err
}

const getShoppingList = `-- name: GetShoppingList :one
SELECT week_start_date, recipes_data, active_dates, created_at
FROM shopping_lists
WHERE week_start_date = ?
`

func (q *Queries) GetShoppingList(ctx context.Context, weekStartDate string) (ShoppingList, error) {
	row := q.db.QueryRowContext(ctx, getShoppingList, weekStartDate)
	var i ShoppingList
	err := row.Scan(
		&i.WeekStartDate,
		&i.RecipesData,
		&i.ActiveDates,
		&i.CreatedAt,
	)
	return i, err
}

const insertIngredientItem = `-- name: InsertIngredientItem :exec
INSERT INTO ingredient_items (id, week_start_date, position, name, amount, category, used_days, is_checked)
VALUES (?, ?, ?, ?, ?, ?, ?, 0)
`

type InsertIngredientItemParams struct {
	ID            string
	WeekStartDate string
	Position      int64
	Name          string
	Amount        string
	Category      string
	UsedDays      string
}

func (q *Queries) InsertIngredientItem(ctx context.Context, arg InsertIngredientItemParams) error {
	_, err := q.db.ExecContext(ctx, insertIngredientItem,
		arg.ID,
		arg.WeekStartDate,
		arg.Position,
		arg.Name,
		arg.Amount,
		arg.Category,
		arg.UsedDays,
	)
	return err
}

const insertShoppingList = `-- name: InsertShoppingList :exec
INSERT INTO shopping_lists (week_start_date, recipes_data, active_dates, created_at)
VALUES (?, ?, ?, ?)
`

type InsertShoppingListParams struct {
	WeekStartDate string
	RecipesData   string
	ActiveDates   string
	CreatedAt     string
}

func (q *Queries) InsertShoppingList(ctx context.Context, arg InsertShoppingListParams) error {
	_, err := q.db.ExecContext(ctx, insertShoppingList,
		arg.WeekStartDate,
		arg.RecipesData,
		arg.ActiveDates,
		arg.CreatedAt,
	)
	return err
}

const listIngredientItems = `-- name: ListIngredientItems :many
SELECT id, week_start_date, position, name, amount, category, used_days, is_checked
FROM ingredient_items
WHERE week_start_date = ?
ORDER BY position
`

func (q *Queries) ListIngredientItems(ctx context.Context, weekStartDate string) ([]IngredientItem, error) {
	rows, err := q.db.QueryContext(ctx, listIngredientItems, weekStartDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IngredientItem
	for rows.Next() {
		var i IngredientItem
		if err := rows.Scan(
			&i.ID,
			&i.WeekStartDate,
			&i.Position,
			&i.Name,
			&i.Amount,
			&i.Category,
			&i.UsedDays,
			&i.IsChecked,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setIngredientChecked = `-- name: SetIngredientChecked :execrows
UPDATE ingredient_items SET is_checked = ? WHERE id = ?
`

type SetIngredientCheckedParams struct {
	IsChecked int64
	ID        string
}

func (q *Queries) SetIngredientChecked(ctx context.Context, arg SetIngredientCheckedParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setIngredientChecked, arg.IsChecked, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
