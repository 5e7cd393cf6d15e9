package aggregator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"kondate-shopper/internal/menu"
)

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFence  = regexp.MustCompile("(?s)```[A-Za-z]*\\s*(.*?)```")
)

// ErrNoJSON is returned when a response carries nothing that decodes as an
// ingredient array.
var ErrNoJSON = errors.New("no JSON ingredient array in response")

type rawIngredient struct {
	Name     string   `json:"name"`
	Amount   string   `json:"amount"`
	Category string   `json:"category"`
	UsedDays []string `json:"usedDays"`
}

// ParseResponse extracts the ingredient array from a model response. A
// ```json fenced block wins, then any fenced block, then the whole trimmed
// text. Reasoning text around the block is ignored. An empty array is a
// valid empty list; null, or an array where no element has a name, is not.
func ParseResponse(text string) ([]menu.Ingredient, error) {
	payload := strings.TrimSpace(text)
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		payload = strings.TrimSpace(m[1])
	} else if m := anyFence.FindStringSubmatch(text); m != nil {
		payload = strings.TrimSpace(m[1])
	}

	if payload == "" {
		return nil, ErrNoJSON
	}

	var raw []rawIngredient
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		// A bare array preceded by stray prose.
		start, end := strings.Index(payload, "["), strings.LastIndex(payload, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
		}
		if err := json.Unmarshal([]byte(payload[start:end+1]), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
		}
	}

	// "null" decodes without error but is not an array.
	if raw == nil {
		return nil, fmt.Errorf("%w: payload is not an array", ErrNoJSON)
	}

	ingredients := make([]menu.Ingredient, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		ingredients = append(ingredients, menu.Ingredient{
			Name:     name,
			Amount:   strings.TrimSpace(r.Amount),
			Category: strings.TrimSpace(r.Category),
			UsedDays: uniqueDays(r.UsedDays),
		})
	}
	if len(raw) > 0 && len(ingredients) == 0 {
		return nil, fmt.Errorf("%w: no element has a name", ErrNoJSON)
	}
	return ingredients, nil
}

// FlagUnknownCategories lists, once each, the categories outside
// menu.Categories. Such ingredients are kept as they are.
func FlagUnknownCategories(ingredients []menu.Ingredient) []string {
	var flagged []string
	seen := make(map[string]struct{})
	for _, ing := range ingredients {
		if menu.IsKnownCategory(ing.Category) {
			continue
		}
		if _, ok := seen[ing.Category]; ok {
			continue
		}
		seen[ing.Category] = struct{}{}
		flagged = append(flagged, ing.Category)
	}
	return flagged
}

func uniqueDays(days []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
