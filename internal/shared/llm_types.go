package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for one model call.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
	// Outcome is "success", "transient", "permanent" or "fallback".
	Outcome string
}
