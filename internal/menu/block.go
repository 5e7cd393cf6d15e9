package menu

import (
	"fmt"
	"strings"
)

// BlockHeaderMarker opens the header line of every formatted block.
const BlockHeaderMarker = "【"

// FormatBlock renders the aggregation input for one page: a header line
// naming the weekday and the menu title, followed by the raw ingredient
// text. A page without ingredients contributes an empty block.
func FormatBlock(page ScrapedPage, weekday string) string {
	raw := strings.TrimSpace(page.RawIngredients)
	if raw == "" {
		return ""
	}
	return fmt.Sprintf("%s%s 曜日: %s】\n%s", BlockHeaderMarker, weekday, page.Title, raw)
}

// JoinBlocks concatenates the non-empty blocks with a blank line between them.
func JoinBlocks(blocks []string) string {
	kept := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}

// ActiveBlocks returns, in menu order, the blocks of the successful menus
// whose date is listed in activeDates.
func ActiveBlocks(menus []DayMenu, activeDates []string) []string {
	active := make(map[string]struct{}, len(activeDates))
	for _, d := range activeDates {
		active[d] = struct{}{}
	}

	var blocks []string
	for _, m := range menus {
		if m.Status != StatusSuccess || m.RawIngredients == "" {
			continue
		}
		if _, ok := active[m.Date]; !ok {
			continue
		}
		blocks = append(blocks, m.RawIngredients)
	}
	return blocks
}

// SuccessDates lists the dates of the menus that were scraped successfully.
func SuccessDates(menus []DayMenu) []string {
	var dates []string
	for _, m := range menus {
		if m.Status == StatusSuccess && m.Date != "" {
			dates = append(dates, m.Date)
		}
	}
	return dates
}
