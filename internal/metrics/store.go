package metrics

import (
	"context"
	"database/sql"
	"time"

	metricsdb "kondate-shopper/internal/metrics/metrics_db"
	"kondate-shopper/internal/shared"
)

// SQLite's strftime only understands this layout, so every timestamp
// column is written with it, in UTC.
const timestampLayout = "2006-01-02 15:04:05"

// Attempt is one row of execution_metrics: a model call made while
// aggregating ingredients, or the fallback that replaced them.
type Attempt struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	Outcome          string
	At               time.Time
}

// Store keeps aggregation attempts in SQLite. It does not own the connection.
type Store struct {
	queries *metricsdb.Queries
	now     func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{queries: metricsdb.New(db), now: time.Now}
}

// Record inserts one attempt, stamped now when At is zero.
func (s *Store) Record(a Attempt) error {
	at := a.At
	if at.IsZero() {
		at = s.now()
	}

	return s.queries.InsertExecutionMetric(context.Background(), metricsdb.InsertExecutionMetricParams{
		AgentName:        a.AgentName,
		Model:            a.Model,
		PromptTokens:     int64(a.PromptTokens),
		CompletionTokens: int64(a.CompletionTokens),
		LatencyMs:        a.Latency.Milliseconds(),
		Outcome:          a.Outcome,
		Timestamp:        stamp(at),
	})
}

// RecordMeta satisfies aggregator.UsageRecorder. Calls that used no tokens
// are kept: a day of rate-limited attempts is what the report is for.
func (s *Store) RecordMeta(meta shared.AgentMeta) error {
	return s.Record(Attempt{
		AgentName:        meta.AgentName,
		Model:            meta.Usage.Model,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		Latency:          meta.Latency,
		Outcome:          meta.Outcome,
	})
}

// DailyUsage sums one UTC day of attempts.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Fallbacks       int
}

// Tokens is prompt plus completion tokens.
func (u DailyUsage) Tokens() int {
	return u.TotalPrompt + u.TotalCompletion
}

// GetDailyUsage returns the last days of usage, newest day first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	rows, err := s.queries.GetDailyUsage(context.Background(), s.cutoff(days))
	if err != nil {
		return nil, err
	}

	usage := make([]DailyUsage, 0, len(rows))
	for _, r := range rows {
		day, _ := r.Day.(string)
		usage = append(usage, DailyUsage{
			Date:            day,
			TotalExecution:  int(r.Count),
			TotalPrompt:     sum(r.Sum),
			TotalCompletion: sum(r.Sum_2),
			Fallbacks:       sum(r.Sum_3),
		})
	}
	return usage, nil
}

// Cleanup deletes attempts older than olderThanDays and reports how many.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	return s.queries.CleanupExecutionMetrics(context.Background(), s.cutoff(olderThanDays))
}

func (s *Store) cutoff(days int) string {
	return stamp(s.now().AddDate(0, 0, -days))
}

func stamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// SUM over no rows is NULL.
func sum(v sql.NullFloat64) int {
	if !v.Valid {
		return 0
	}
	return int(v.Float64)
}
