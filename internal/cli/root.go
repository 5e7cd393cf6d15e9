// Package cli implements the kondate-shopper command line.
package cli

import (
	"context"
	"encoding/json"
	"io"

	"kondate-shopper/internal/app"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/logger"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shopping"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "kondate-shopper",
	Short:        "Turn a week of lettuceclub menus into one shopping list",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(metricsCleanupCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// Service is the part of app.App the commands drive.
type Service interface {
	AggregateURLs(ctx context.Context, urls []string) (app.Outcome, error)
	Recompute(ctx context.Context, blocks []string) (app.Outcome, error)
	RecomputeSaved(ctx context.Context, weekStartDate string, activeDates []string) (app.Outcome, []shopping.Item, error)
	ScrapeOne(ctx context.Context, url string) (*menu.ScrapedPage, error)
	SaveList(ctx context.Context, req app.SaveRequest) ([]shopping.Item, error)
	GetList(ctx context.Context, weekStartDate string) (*shopping.SavedList, error)
	SetChecked(ctx context.Context, itemID string, checked bool) (*shopping.Item, error)
}

// session is one fully wired runtime for the duration of a command.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	runtime *app.Runtime
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	rt, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &session{cfg: cfg, logger: log, runtime: rt}, nil
}

func (s *session) Close() {
	if err := s.runtime.Close(); err != nil {
		s.logger.Warn("failed to release resources", zap.Error(err))
	}
	s.logger.Sync()
}

// withSession runs fn against a freshly bootstrapped runtime.
func withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
