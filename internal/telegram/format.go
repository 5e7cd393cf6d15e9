package telegram

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/metrics"
	"kondate-shopper/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const checkPrefix = "chk"

func formatMenusMarkdown(week string, menus []menu.DayMenu, activeDates []string) string {
	active := make(map[string]bool, len(activeDates))
	for _, d := range activeDates {
		active[d] = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Week of %s*\n\n", week))
	for _, m := range menus {
		if m.Status == menu.StatusFailed {
			sb.WriteString(fmt.Sprintf("❌ _failed_: %s\n", esc(m.URL)))
			continue
		}

		mark := "▫️"
		if active[m.Date] {
			mark = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s *%s (%s)*\n", mark, m.Date, m.DayOfWeek))
		for _, d := range m.Dishes {
			label := "副菜"
			if d.Type == menu.DishMain {
				label = "主菜"
			}
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", label, esc(d.Title)))
		}
	}
	return sb.String()
}

// Telegram rejects messages over 4096 characters and very tall inline
// keyboards, so a long list is sent as several pages.
const (
	maxItemsPerPage = 30
	maxPageRunes    = 3500
)

// listPage is one message of a shopping list and the items its keyboard toggles.
type listPage struct {
	text  string
	items []shopping.Item
}

// paginateShoppingList splits the list in category order. The split only
// depends on the items, so a reloaded list pages the same way.
func paginateShoppingList(week string, items []shopping.Item) []listPage {
	if len(items) == 0 {
		return []listPage{{text: renderShoppingList(week, nil, 0, 0)}}
	}

	order, groups := shopping.GroupByCategory(items)
	flat := make([]shopping.Item, 0, len(items))
	for _, category := range order {
		flat = append(flat, groups[category]...)
	}

	var chunks [][]shopping.Item
	var current []shopping.Item
	for _, it := range flat {
		candidate := append(current[:len(current):len(current)], it)
		tooLong := utf8.RuneCountInString(renderShoppingList(week, candidate, 0, 0)) > maxPageRunes
		if len(current) > 0 && (len(current) >= maxItemsPerPage || tooLong) {
			chunks = append(chunks, current)
			candidate = []shopping.Item{it}
		}
		current = candidate
	}
	chunks = append(chunks, current)

	pages := make([]listPage, 0, len(chunks))
	for i, chunk := range chunks {
		page, total := 0, 0
		if len(chunks) > 1 {
			page, total = i+1, len(chunks)
		}
		pages = append(pages, listPage{text: renderShoppingList(week, chunk, page, total), items: chunk})
	}
	return pages
}

// renderShoppingList writes one message; page and total are 0 for an
// unsplit list.
func renderShoppingList(week string, items []shopping.Item, page, total int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *Shopping List* (%s)", week))
	if total > 1 {
		sb.WriteString(fmt.Sprintf(" %d/%d", page, total))
	}
	sb.WriteString("\n")
	if len(items) == 0 {
		sb.WriteString("\n_Nothing to buy_\n")
		return sb.String()
	}

	order, groups := shopping.GroupByCategory(items)
	for _, category := range order {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", esc(category)))
		for _, it := range groups[category] {
			box := "⬜"
			if it.IsChecked {
				box = "✅"
			}
			line := fmt.Sprintf("%s %s", box, esc(it.Name))
			if it.Amount != "" {
				line += " " + esc(it.Amount)
			}
			if len(it.UsedDays) > 0 {
				line += fmt.Sprintf(" (%s)", strings.Join(it.UsedDays, "・"))
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

// pageOf returns the page holding itemID.
func pageOf(pages []listPage, itemID string) (listPage, bool) {
	for _, p := range pages {
		for _, it := range p.items {
			if it.ID == itemID {
				return p, true
			}
		}
	}
	return listPage{}, false
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Model Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d calls, %d fallbacks)\n",
			d.Date, d.Tokens(), d.TotalExecution, d.Fallbacks))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s in %d files\n", health.DataDiskSize, health.DataFiles))
	return sb.String()
}

// checklistKeyboard has one toggle button per item. Callback data is
// "chk|<1 or 0>|<week>|<item id>", well under Telegram's 64 byte limit.
func checklistKeyboard(week string, items []shopping.Item) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items))
	for _, it := range items {
		label, next := "⬜ "+it.Name, "1"
		if it.IsChecked {
			label, next = "✅ "+it.Name, "0"
		}
		data := strings.Join([]string{checkPrefix, next, week, it.ID}, "|")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseCheckData(data string) (checked bool, week, itemID string, ok bool) {
	parts := strings.Split(data, "|")
	if len(parts) != 4 || parts[0] != checkPrefix || parts[2] == "" || parts[3] == "" {
		return false, "", "", false
	}
	switch parts[1] {
	case "1":
		checked = true
	case "0":
	default:
		return false, "", "", false
	}
	return checked, parts[2], parts[3], true
}

func extractURLs(text string) []string {
	var urls []string
	for _, f := range strings.Fields(text) {
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			urls = append(urls, f)
		}
	}
	return urls
}

// weekKeyOf maps any date to the key of its week; unparsable input is
// used as given.
func weekKeyOf(date string) string {
	d, err := menu.ParseDate(date)
	if err != nil {
		return date
	}
	return menu.WeekKey(d)
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func dataDir(databasePath string) string {
	if databasePath == "" {
		return "data"
	}
	return filepath.Dir(databasePath)
}
