package cli

import (
	"errors"
	"fmt"
	"time"

	"kondate-shopper/internal/auth"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/metrics"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		cfg, err := config.NewFromEnv()
		if err != nil {
			return err
		}
		return runToken(cmd, cfg.APIJWTSecret, subject, ttl)
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Print daily model usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return withSession(cmd, func(s *session) error {
			return runUsage(cmd, s.runtime.Metrics, days)
		})
	},
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Delete execution metrics older than --days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return withSession(cmd, func(s *session) error {
			return runMetricsCleanup(cmd, s.runtime.Metrics, days)
		})
	},
}

func init() {
	tokenCmd.Flags().String("subject", "", "who the token is issued to")
	tokenCmd.Flags().Duration("ttl", 30*24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")

	usageCmd.Flags().Int("days", 7, "number of days to report")
	metricsCleanupCmd.Flags().Int("days", 30, "keep metrics newer than this many days")
}

func runToken(cmd *cobra.Command, secret, subject string, ttl time.Duration) error {
	if secret == "" {
		return errors.New("API_JWT_SECRET environment variable not set")
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", ttl)
	}
	token, err := auth.IssueToken([]byte(secret), subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

type usageReporter interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

func runUsage(cmd *cobra.Command, store usageReporter, days int) error {
	usage, err := store.GetDailyUsage(days)
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}
	w := cmd.OutOrStdout()
	if len(usage) == 0 {
		fmt.Fprintln(w, "no model calls recorded")
		return nil
	}
	fmt.Fprintf(w, "%-10s  %6s  %9s  %9s  %9s\n", "DATE", "CALLS", "FALLBACKS", "PROMPT", "COMPLETION")
	for _, d := range usage {
		fmt.Fprintf(w, "%-10s  %6d  %9d  %9d  %9d\n", d.Date, d.TotalExecution, d.Fallbacks, d.TotalPrompt, d.TotalCompletion)
	}
	return nil
}

type metricsCleaner interface {
	Cleanup(olderThanDays int) (int64, error)
}

func runMetricsCleanup(cmd *cobra.Command, store metricsCleaner, days int) error {
	if days < 1 {
		return fmt.Errorf("--days must be at least 1, got %d", days)
	}
	n, err := store.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to clean up metrics: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d metrics older than %d days\n", n, days)
	return nil
}
