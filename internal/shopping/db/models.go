package shoppingdb

type IngredientItem struct {
	ID            string
	WeekStartDate string
	Position      int64
	Name          string
	Amount        string
	Category      string
	UsedDays      string
	IsChecked     int64
}

type ShoppingList struct {
	WeekStartDate string
	RecipesData   string
	ActiveDates   string
	CreatedAt     string
}
