package app

import (
	"context"
	"errors"
	"fmt"

	"kondate-shopper/internal/aggregator"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/database"
	"kondate-shopper/internal/llm"
	"kondate-shopper/internal/metrics"
	"kondate-shopper/internal/scraper"
	"kondate-shopper/internal/shopping"

	"go.uber.org/zap"
)

// Runtime is a fully wired App plus the resources it holds.
type Runtime struct {
	App     *App
	Metrics *metrics.Store
	DB      *database.Provider

	gemini *llm.GeminiClient
}

// Bootstrap opens the database, builds the model cascade and wires the App.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	provider := database.NewProvider(cfg.DatabasePath, logger.Named("database"))
	db, err := provider.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		provider.Close()
		return nil, err
	}

	models := gemini.Models(cfg.GeminiModels)
	if cfg.GroqAPIKey != "" {
		models = append(models, llm.Model{Name: cfg.GroqModel, Generator: llm.NewGroqClient(cfg)})
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	logger.Info("model cascade configured", zap.Strings("models", names))

	metricsStore := metrics.NewStore(db.SQL)

	policy := aggregator.DefaultPolicy()
	policy.MaxAttempts = cfg.AggregateMaxAttempts
	policy.BaseDelay = cfg.AggregateBaseDelay
	agg := aggregator.New(models, policy, logger.Named("aggregator"), aggregator.WithRecorder(metricsStore))

	extractor := scraper.NewExtractor(
		scraper.NewFetcher(cfg.FetchTimeout, cfg.FetchInterval),
		cfg.SiteBaseURL,
		logger.Named("scraper"),
	)

	return &Runtime{
		App:     NewApp(extractor, agg, shopping.NewRepository(db.SQL), cfg, logger.Named("app")),
		Metrics: metricsStore,
		DB:      provider,
		gemini:  gemini,
	}, nil
}

// Close releases the model client and the database.
func (r *Runtime) Close() error {
	return errors.Join(r.gemini.Close(), r.DB.Close())
}
