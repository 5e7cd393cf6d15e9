package scraper

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"kondate-shopper/internal/menu"

	"github.com/PuerkitoBio/goquery"
)

const (
	howToSuffix        = "の作り方"
	ingredientsHeading = "献立の材料"
	dishLinkSelector   = `a[href*="/recipe/dish/"]`
	containerSelector  = ".js-tab-content, .section-content"
	legacyItemSelector = ".item_main, .item_sub"
)

var dateToken = regexp.MustCompile(`k(\d{8})`)

// Parse extracts a menu page from an HTML document. Missing structure never
// fails the parse: absent pieces are left empty. Relative dish links are
// resolved against baseURL.
func Parse(pageURL, baseURL string, r io.Reader) (*menu.ScrapedPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	dishes := extractDishes(doc, base)
	if len(dishes) == 0 {
		dishes = extractLegacyDishes(doc, base)
	}

	return &menu.ScrapedPage{
		URL:            pageURL,
		DateStr:        extractDate(pageURL),
		Title:          strings.TrimSpace(doc.Find("h1.main_tit").First().Text()),
		RawIngredients: extractIngredients(doc),
		Dishes:         dishes,
	}, nil
}

// extractDishes reads the current page layout, where every dish has an h2
// "<title>の作り方" inside its tab or section container. The first dish is
// taken as the main dish and every later one as a side. This is positional
// only; the page does not label dishes.
func extractDishes(doc *goquery.Document, base *url.URL) []menu.Dish {
	dishes := []menu.Dish{}
	seen := make(map[string]struct{})

	doc.Find("h2").Each(func(_ int, h *goquery.Selection) {
		text := strings.TrimSpace(h.Text())
		if !strings.HasSuffix(text, howToSuffix) {
			return
		}
		title := strings.TrimSpace(strings.TrimSuffix(text, howToSuffix))
		if title == "" {
			return
		}
		if _, dup := seen[title]; dup {
			return
		}
		seen[title] = struct{}{}

		container := h.Closest(containerSelector)
		href, _ := container.Find(dishLinkSelector).First().Attr("href")

		dishType := menu.DishSide
		if len(dishes) == 0 {
			dishType = menu.DishMain
		}
		dishes = append(dishes, menu.Dish{
			Type:     dishType,
			Title:    title,
			URL:      resolve(base, href),
			ImageURL: pickImage(container),
		})
	})

	return dishes
}

// extractLegacyDishes reads the older layout with .item_main/.item_sub cards.
func extractLegacyDishes(doc *goquery.Document, base *url.URL) []menu.Dish {
	dishes := []menu.Dish{}
	seen := make(map[string]struct{})

	doc.Find(legacyItemSelector).Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(".w_tit").First().Text())
		if title == "" {
			return
		}
		if _, dup := seen[title]; dup {
			return
		}
		seen[title] = struct{}{}

		dishType := menu.DishSide
		if item.HasClass("item_main") {
			dishType = menu.DishMain
		}
		href, _ := item.Find("a").First().Attr("href")
		img, _ := item.Find("img").First().Attr("src")

		dishes = append(dishes, menu.Dish{
			Type:     dishType,
			Title:    title,
			URL:      resolve(base, href),
			ImageURL: img,
		})
	})

	return dishes
}

// pickImage returns the first non-decorative image of the container,
// preferring a lazy-load data-src over an eager src.
func pickImage(container *goquery.Selection) string {
	var eager, lazy string
	container.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		dataSrc := strings.TrimSpace(img.AttrOr("data-src", ""))
		src := strings.TrimSpace(img.AttrOr("src", ""))

		if lazy == "" && dataSrc != "" && !isDecorative(dataSrc) {
			lazy = dataSrc
		}
		if eager == "" && src != "" && !isDecorative(src) {
			eager = src
		}
		return lazy == ""
	})

	if lazy != "" {
		return lazy
	}
	return eager
}

func isDecorative(src string) bool {
	return strings.Contains(src, "icon") || strings.Contains(src, "logo")
}

// extractIngredients takes the text of the element following the parent of
// the "献立の材料" heading.
func extractIngredients(doc *goquery.Document) string {
	heading := doc.Find("h2").FilterFunction(func(_ int, h *goquery.Selection) bool {
		return strings.Contains(h.Text(), ingredientsHeading)
	}).First()
	if heading.Length() == 0 {
		return ""
	}

	next := heading.Parent().Next()
	if next.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(next.Text())
}

func extractDate(pageURL string) string {
	target := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Path != "" {
		target = u.Path
	}
	m := dateToken.FindStringSubmatch(target)
	if m == nil {
		return ""
	}
	return m[1]
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
