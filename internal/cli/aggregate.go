package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"kondate-shopper/internal/app"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"

	"github.com/spf13/cobra"
)

// autoWeek derives the week key from the scraped dates.
const autoWeek = "auto"

type batchOutput struct {
	WeekStartDate     string            `json:"weekStartDate,omitempty"`
	Recipes           []menu.DayMenu    `json:"recipes,omitempty"`
	Ingredients       []menu.Ingredient `json:"ingredients"`
	Model             string            `json:"model,omitempty"`
	Fallback          bool              `json:"fallback,omitempty"`
	FlaggedCategories []string          `json:"flaggedCategories,omitempty"`
	Saved             []shopping.Item   `json:"saved,omitempty"`
}

func toBatchOutput(out app.Outcome) batchOutput {
	ingredients := out.Ingredients
	if ingredients == nil {
		ingredients = []menu.Ingredient{}
	}
	return batchOutput{
		Recipes:           out.Menus,
		Ingredients:       ingredients,
		Model:             out.Model,
		Fallback:          out.Fallback,
		FlaggedCategories: out.FlaggedCategories,
	}
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <url>...",
	Short: "Scrape menu pages and print the aggregated shopping list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		saveWeek, _ := cmd.Flags().GetString("save")
		return withSession(cmd, func(s *session) error {
			return runAggregate(cmd, s.runtime.App, args, saveWeek, time.Now)
		})
	},
}

var weekCmd = &cobra.Command{
	Use:   "week [YYYYMMDD]",
	Short: "Build the list for the week containing a date (default: this week)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		save, _ := cmd.Flags().GetBool("save")
		var date string
		if len(args) > 0 {
			date = args[0]
		}
		return withSession(cmd, func(s *session) error {
			return runWeek(cmd, s.runtime.App, s.cfg.SiteBaseURL, date, days, save, time.Now)
		})
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Re-aggregate formatted day blocks without scraping",
	Long: "Re-aggregate formatted day blocks without scraping.\n\n" +
		"--file reads a JSON array of blocks and only prints the result.\n" +
		"--week re-aggregates a saved week over --days (default: its stored days) and saves it again,\n" +
		"which clears every checked item.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		week, _ := cmd.Flags().GetString("week")
		days, _ := cmd.Flags().GetStringSlice("days")
		if (file == "") == (week == "") {
			return errors.New("exactly one of --file or --week is required")
		}
		return withSession(cmd, func(s *session) error {
			return runRecompute(cmd, s.runtime.App, file, week, days)
		})
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Print the structured data of one menu page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			return runScrape(cmd, s.runtime.App, args[0])
		})
	},
}

func init() {
	aggregateCmd.Flags().String("save", "", `save the list under this week key (YYYYMMDD, or "auto")`)

	weekCmd.Flags().Int("days", 5, "number of days starting on Monday")
	weekCmd.Flags().Bool("save", false, "save the list under the week key")

	recomputeCmd.Flags().String("file", "", "JSON file holding an array of formatted day blocks")
	recomputeCmd.Flags().String("week", "", "week key of a saved list")
	recomputeCmd.Flags().StringSlice("days", nil, "dates (YYYYMMDD) to keep when recomputing a saved week")
}

func runAggregate(cmd *cobra.Command, svc Service, urls []string, saveWeek string, nowFn func() time.Time) error {
	out, err := svc.AggregateURLs(cmd.Context(), urls)
	if err != nil && !errors.Is(err, app.ErrNothingToAggregate) {
		return err
	}
	result := toBatchOutput(out)

	if err == nil && saveWeek != "" {
		if saveWeek == autoWeek {
			saveWeek = menu.BatchWeekKey(out.Menus, nowFn())
		}
		if _, perr := menu.ParseDate(saveWeek); perr != nil {
			return perr
		}
		items, serr := svc.SaveList(cmd.Context(), app.SaveRequest{
			WeekStartDate: saveWeek,
			Recipes:       out.Menus,
			ActiveDates:   menu.SuccessDates(out.Menus),
			Ingredients:   out.Ingredients,
		})
		if serr != nil {
			return fmt.Errorf("failed to save list: %w", serr)
		}
		result.WeekStartDate = saveWeek
		result.Saved = items
	}

	if werr := writeJSON(cmd.OutOrStdout(), result); werr != nil {
		return werr
	}
	return err
}

func runWeek(cmd *cobra.Command, svc Service, baseURL, date string, days int, save bool, nowFn func() time.Time) error {
	if days < 1 || days > 7 {
		return fmt.Errorf("--days must be between 1 and 7, got %d", days)
	}

	week := menu.WeekStart(nowFn())
	if date != "" {
		d, err := menu.ParseDate(date)
		if err != nil {
			return err
		}
		week = menu.WeekStart(d)
	}

	saveWeek := ""
	if save {
		saveWeek = menu.WeekKey(week)
	}
	return runAggregate(cmd, svc, menu.WeekURLs(baseURL, week, days), saveWeek, nowFn)
}

func runRecompute(cmd *cobra.Command, svc Service, file, week string, days []string) error {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		var blocks []string
		if err := json.Unmarshal(data, &blocks); err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}

		out, err := svc.Recompute(cmd.Context(), blocks)
		if err != nil && !errors.Is(err, app.ErrNothingToAggregate) {
			return err
		}
		if werr := writeJSON(cmd.OutOrStdout(), toBatchOutput(out)); werr != nil {
			return werr
		}
		return err
	}

	for _, d := range days {
		if _, err := menu.ParseDate(d); err != nil {
			return err
		}
	}
	out, items, err := svc.RecomputeSaved(cmd.Context(), week, days)
	if err != nil {
		return err
	}
	result := toBatchOutput(out)
	result.WeekStartDate = week
	result.Saved = items
	return writeJSON(cmd.OutOrStdout(), result)
}

func runScrape(cmd *cobra.Command, svc Service, url string) error {
	page, err := svc.ScrapeOne(cmd.Context(), url)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), page)
}
