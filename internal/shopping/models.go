package shopping

import (
	"errors"
	"time"

	"kondate-shopper/internal/menu"
)

var (
	// ErrListNotFound is returned when no list is stored for a week.
	ErrListNotFound = errors.New("shopping list not found")
	// ErrItemNotFound is returned when an item id is unknown.
	ErrItemNotFound = errors.New("shopping list item not found")
	// ErrWeekRequired is returned when a save names no week.
	ErrWeekRequired = errors.New("week start date is required")
)

// Item is a stored ingredient with its checked flag.
type Item struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Amount    string   `json:"amount"`
	Category  string   `json:"category"`
	UsedDays  []string `json:"usedDays"`
	IsChecked bool     `json:"isChecked"`
}

// SavedList is the stored record of one week.
type SavedList struct {
	WeekStartDate string         `json:"weekStartDate"`
	Recipes       []menu.DayMenu `json:"recipes"`
	ActiveDates   []string       `json:"activeDates"`
	Ingredients   []Item         `json:"ingredients"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// GroupByCategory buckets items in menu.Categories order. Unknown
// categories follow, in first-seen order.
func GroupByCategory(items []Item) ([]string, map[string][]Item) {
	groups := make(map[string][]Item)
	var extra []string
	for _, it := range items {
		if _, ok := groups[it.Category]; !ok && !menu.IsKnownCategory(it.Category) {
			extra = append(extra, it.Category)
		}
		groups[it.Category] = append(groups[it.Category], it)
	}

	var order []string
	for _, c := range menu.Categories {
		if len(groups[c]) > 0 {
			order = append(order, c)
		}
	}
	return append(order, extra...), groups
}
