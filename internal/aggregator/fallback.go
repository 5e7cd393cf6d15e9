package aggregator

import (
	"strings"

	"kondate-shopper/internal/menu"
)

const maxFallbackNameRunes = 20

// Fallback turns the raw block text into one uncategorized ingredient per
// line. Block header lines and blank lines are skipped.
func Fallback(rawText string) []menu.Ingredient {
	ingredients := []menu.Ingredient{}
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, menu.BlockHeaderMarker) {
			continue
		}
		ingredients = append(ingredients, menu.Ingredient{
			Name:     truncate(line, maxFallbackNameRunes),
			Amount:   "",
			Category: menu.FallbackCategory,
			UsedDays: []string{},
		})
	}
	return ingredients
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
