package cli

import (
	"fmt"
	"strings"

	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <YYYYMMDD>",
	Short: "Print the saved shopping list of a week",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withSession(cmd, func(s *session) error {
			return runList(cmd, s.runtime.App, args[0], asJSON)
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <item-id>",
	Short: "Mark a shopping list item as bought",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uncheck, _ := cmd.Flags().GetBool("uncheck")
		return withSession(cmd, func(s *session) error {
			return runCheck(cmd, s.runtime.App, args[0], !uncheck)
		})
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "print the stored record as JSON")
	checkCmd.Flags().Bool("uncheck", false, "clear the checked flag instead")
}

func runList(cmd *cobra.Command, svc Service, date string, asJSON bool) error {
	d, err := menu.ParseDate(date)
	if err != nil {
		return err
	}
	week := menu.WeekKey(d)

	list, err := svc.GetList(cmd.Context(), week)
	if err != nil {
		return fmt.Errorf("week %s: %w", week, err)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), list)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Week of %s (days: %s)\n", list.WeekStartDate, strings.Join(list.ActiveDates, ", "))
	order, groups := shopping.GroupByCategory(list.Ingredients)
	for _, category := range order {
		fmt.Fprintf(w, "\n%s\n", category)
		for _, it := range groups[category] {
			box := "[ ]"
			if it.IsChecked {
				box = "[x]"
			}
			fmt.Fprintf(w, "  %s %s %s  %s  %s\n", box, it.Name, it.Amount, strings.Join(it.UsedDays, ""), it.ID)
		}
	}
	return nil
}

func runCheck(cmd *cobra.Command, svc Service, itemID string, checked bool) error {
	item, err := svc.SetChecked(cmd.Context(), itemID, checked)
	if err != nil {
		return err
	}
	state := "unchecked"
	if item.IsChecked {
		state = "checked"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, item.Name)
	return nil
}
