package aggregator

import (
	"context"
	"math"
	"time"
)

// Outcome classifies one generation attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Step is what the caller does after reporting an outcome to the Cascade.
type Step int

const (
	// StepDone means the last attempt succeeded.
	StepDone Step = iota
	// StepRetry means wait for the returned delay, then call the same model again.
	StepRetry
	// StepAdvance means move to the next model right away.
	StepAdvance
	// StepExhausted means no model is left.
	StepExhausted
)

// RetryPolicy bounds the attempts made against a single model and shapes the
// wait between them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

// DefaultPolicy waits 5s, 10s between three attempts per model.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		Multiplier:  2,
		MaxDelay:    time.Minute,
	}
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns the wait after the given failed attempt (1-based):
// BaseDelay * Multiplier^(attempt-1). A multiplier below 1 is treated as 1 so
// the schedule never shrinks.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Cascade is the two-level retry state: the outer index walks the model list,
// the inner counter tracks attempts on the current model.
type Cascade struct {
	policy  RetryPolicy
	models  int
	model   int
	attempt int
}

// NewCascade starts at the first attempt of the first model.
func NewCascade(policy RetryPolicy, models int) *Cascade {
	return &Cascade{policy: policy, models: models, attempt: 1}
}

// Model is the index of the model to call next.
func (c *Cascade) Model() int { return c.model }

// Attempt is the 1-based attempt number on the current model.
func (c *Cascade) Attempt() int { return c.attempt }

// Exhausted reports whether every model has been given up on.
func (c *Cascade) Exhausted() bool { return c.model >= c.models }

// Next records the outcome of the current attempt and moves the state.
func (c *Cascade) Next(o Outcome) (Step, time.Duration) {
	if c.Exhausted() {
		return StepExhausted, 0
	}

	switch o {
	case OutcomeSuccess:
		return StepDone, 0
	case OutcomeTransient:
		if c.attempt < c.policy.maxAttempts() {
			delay := c.policy.Delay(c.attempt)
			c.attempt++
			return StepRetry, delay
		}
	}

	c.model++
	c.attempt = 1
	if c.Exhausted() {
		return StepExhausted, 0
	}
	return StepAdvance, 0
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
