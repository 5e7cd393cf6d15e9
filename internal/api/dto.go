package api

import (
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"
)

// aggregateRequest selects the mode: IngredientsData present means recompute.
type aggregateRequest struct {
	URLs            []string `json:"urls"`
	IngredientsData []string `json:"ingredientsData"`
}

type aggregateResponse struct {
	Ingredients       []menu.Ingredient `json:"ingredients"`
	Recipes           []menu.DayMenu    `json:"recipes,omitempty"`
	Model             string            `json:"model,omitempty"`
	Fallback          bool              `json:"fallback,omitempty"`
	FlaggedCategories []string          `json:"flaggedCategories,omitempty"`
}

type saveListRequest struct {
	WeekStartDate string            `json:"weekStartDate"`
	RecipesData   []menu.DayMenu    `json:"recipesData"`
	ActiveDates   []string          `json:"activeDates"`
	Ingredients   []menu.Ingredient `json:"ingredients"`
}

type listData struct {
	Recipes     []menu.DayMenu  `json:"recipes"`
	ActiveDates []string        `json:"activeDates"`
	Ingredients []shopping.Item `json:"ingredients"`
}

type getListResponse struct {
	Found bool      `json:"found"`
	Data  *listData `json:"data,omitempty"`
}

type checkRequest struct {
	ItemID    string `json:"itemId"`
	IsChecked *bool  `json:"isChecked"`
}
