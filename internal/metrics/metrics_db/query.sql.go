package metricsdb

import (
	"context"
	"database/sql"
)

const cleanupExecutionMetrics = `-- name: CleanupExecutionMetrics :execrows
DELETE FROM execution_metrics WHERE timestamp < ?
`

func (q *Queries) CleanupExecutionMetrics(ctx context.Context, timestamp string) (int64, error) {
	result, err := q.db.ExecContext(ctx, cleanupExecutionMetrics, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getDailyUsage = `-- name: GetDailyUsage :many
SELECT strftime('%Y-%m-%d', timestamp) AS day,
       COUNT(*),
       SUM(prompt_tokens),
       SUM(completion_tokens),
       SUM(CASE WHEN outcome = 'fallback' THEN 1 ELSE 0 END)
FROM execution_metrics
WHERE timestamp >= ?
GROUP BY day
ORDER BY day DESC
`

type GetDailyUsageRow struct {
	Day   interface{}
	Count int64
	Sum   sql.NullFloat64
	Sum_2 sql.NullFloat64
	Sum_3 sql.NullFloat64
}

func (q *Queries) GetDailyUsage(ctx context.Context, timestamp string) ([]GetDailyUsageRow, error) {
	rows, err := q.db.QueryContext(ctx, getDailyUsage, timestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetDailyUsageRow
	for rows.Next() {
		var i GetDailyUsageRow
		if err := rows.Scan(
			&i.Day,
			&i.Count,
			&i.Sum,
			&i.Sum_2,
			&i.Sum_3,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertExecutionMetric = `-- name: InsertExecutionMetric :exec
INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, outcome, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type InsertExecutionMetricParams struct {
	AgentName        string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	LatencyMs        int64
	Outcome          string
	Timestamp        string
}

func (q *Queries) InsertExecutionMetric(ctx context.Context, arg InsertExecutionMetricParams) error {
	_, err := q.db.ExecContext(ctx, insertExecutionMetric,
		arg.AgentName,
		arg.Model,
		arg.PromptTokens,
		arg.CompletionTokens,
		arg.LatencyMs,
		arg.Outcome,
		arg.Timestamp,
	)
	return err
}
