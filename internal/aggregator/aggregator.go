// Package aggregator merges day-labelled ingredient blocks into one
// categorized shopping list with a language model, cascading across models
// and falling back to a line splitter when none of them delivers.
package aggregator

import (
	"context"
	"time"

	"kondate-shopper/internal/llm"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shared"

	"go.uber.org/zap"
)

const agentName = "Aggregator"

// UsageRecorder receives the metadata of every model call.
type UsageRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Result is the outcome of one aggregation.
type Result struct {
	Ingredients []menu.Ingredient
	// Model is the name of the model that produced Ingredients; empty on fallback.
	Model    string
	Fallback bool
	// FlaggedCategories lists categories outside menu.Categories.
	FlaggedCategories []string
	Attempts          []shared.AgentMeta
}

// Aggregator runs the model cascade.
type Aggregator struct {
	models   []llm.Model
	policy   RetryPolicy
	logger   *zap.Logger
	recorder UsageRecorder
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRecorder reports every attempt to r.
func WithRecorder(r UsageRecorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

// WithSleeper replaces the backoff wait. Tests use it to skip real delays.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Aggregator) { a.sleep = sleep }
}

// New creates an Aggregator that tries models in order.
func New(models []llm.Model, policy RetryPolicy, logger *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		models: models,
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate never fails: when no model produces a valid list the result is
// the deterministic fallback.
func (a *Aggregator) Aggregate(ctx context.Context, rawText string) Result {
	var result Result

	prompt, err := BuildPrompt(rawText)
	if err != nil {
		a.logger.Error("failed to build prompt", zap.Error(err))
		return a.fallback(rawText, result)
	}
	if len(a.models) == 0 {
		a.logger.Warn("no models configured")
		return a.fallback(rawText, result)
	}

	cascade := NewCascade(a.policy, len(a.models))
	for {
		if err := ctx.Err(); err != nil {
			a.logger.Warn("aggregation cancelled", zap.Error(err))
			return a.fallback(rawText, result)
		}

		model := a.models[cascade.Model()]
		log := a.logger.With(zap.String("model", model.Name), zap.Int("attempt", cascade.Attempt()))

		ingredients, meta, outcome := a.attempt(ctx, model, prompt, log)
		result.Attempts = append(result.Attempts, meta)
		a.record(meta)

		step, delay := cascade.Next(outcome)
		switch step {
		case StepDone:
			result.Ingredients = ingredients
			result.Model = model.Name
			result.FlaggedCategories = FlagUnknownCategories(ingredients)
			if len(result.FlaggedCategories) > 0 {
				log.Warn("model returned unknown categories", zap.Strings("categories", result.FlaggedCategories))
			}
			log.Info("aggregated ingredients", zap.Int("count", len(ingredients)))
			return result

		case StepRetry:
			log.Info("transient model failure, backing off", zap.Duration("delay", delay))
			if err := a.sleep(ctx, delay); err != nil {
				log.Warn("backoff interrupted", zap.Error(err))
				return a.fallback(rawText, result)
			}

		case StepAdvance:
			log.Info("advancing to next model")

		case StepExhausted:
			log.Warn("all models exhausted")
			return a.fallback(rawText, result)
		}
	}
}

func (a *Aggregator) attempt(ctx context.Context, model llm.Model, prompt string, log *zap.Logger) ([]menu.Ingredient, shared.AgentMeta, Outcome) {
	start := time.Now()
	resp, err := model.Generator.GenerateContent(ctx, prompt)

	meta := shared.AgentMeta{
		AgentName: agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if meta.Usage.Model == "" {
		meta.Usage.Model = model.Name
	}

	var (
		ingredients []menu.Ingredient
		outcome     = OutcomeSuccess
	)
	if err != nil {
		outcome = OutcomePermanent
		if llm.IsTransient(err) {
			outcome = OutcomeTransient
		}
		log.Warn("model call failed", zap.Error(err), zap.Stringer("outcome", outcome))
	} else if ingredients, err = ParseResponse(resp.Content); err != nil {
		outcome = OutcomePermanent
		log.Warn("failed to parse model response", zap.Error(err), zap.Int("response_bytes", len(resp.Content)))
	}

	meta.Outcome = outcome.String()
	return ingredients, meta, outcome
}

func (a *Aggregator) fallback(rawText string, result Result) Result {
	result.Ingredients = Fallback(rawText)
	result.Model = ""
	result.Fallback = true
	result.FlaggedCategories = nil

	a.record(shared.AgentMeta{
		AgentName: agentName,
		Usage:     shared.TokenUsage{Model: "fallback"},
		Outcome:   "fallback",
	})
	a.logger.Warn("using fallback ingredient list", zap.Int("count", len(result.Ingredients)))
	return result
}

func (a *Aggregator) record(meta shared.AgentMeta) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.RecordMeta(meta); err != nil {
		a.logger.Warn("failed to record usage", zap.Error(err))
	}
}
