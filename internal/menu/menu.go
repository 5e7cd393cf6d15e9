// Package menu holds the daily menu and shopping list types shared by the
// scraper, the aggregator and the persistence layer.
package menu

// DishType classifies a dish within one day's menu.
type DishType string

const (
	DishMain  DishType = "main"
	DishSide  DishType = "side"
	DishSoup  DishType = "soup"
	DishOther DishType = "other"
)

// Dish is one dish listed on a daily menu page.
type Dish struct {
	Type     DishType `json:"type"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// ScrapedPage is the structured result of parsing one menu page.
type ScrapedPage struct {
	URL            string `json:"url"`
	DateStr        string `json:"dateStr"`
	Title          string `json:"title"`
	RawIngredients string `json:"rawIngredients"`
	Dishes         []Dish `json:"dishes"`
}

// Status reports whether a day's page could be scraped.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// DayMenu is the per-day entry of a week view. RawIngredients carries the
// formatted block (header line included) used for aggregation.
type DayMenu struct {
	Date           string `json:"date"`
	DayOfWeek      string `json:"dayOfWeek"`
	URL            string `json:"url"`
	Status         Status `json:"status"`
	Dishes         []Dish `json:"dishes"`
	RawIngredients string `json:"rawIngredients,omitempty"`
}

// Ingredient is one consolidated line of the shopping list.
type Ingredient struct {
	Name     string   `json:"name"`
	Amount   string   `json:"amount"`
	Category string   `json:"category"`
	UsedDays []string `json:"usedDays"`
}

// ShoppingList is everything computed for one week.
type ShoppingList struct {
	WeekKey     string       `json:"weekKey"`
	Menus       []DayMenu    `json:"recipes"`
	Ingredients []Ingredient `json:"ingredients"`
}
