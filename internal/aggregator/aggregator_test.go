package aggregator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"kondate-shopper/internal/llm"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type scriptedReply struct {
	content string
	err     error
}

type MockTextGenerator struct {
	replies []scriptedReply
	calls   int
	prompts []string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompts = append(m.prompts, prompt)
	i := m.calls
	m.calls++
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	r := m.replies[i]
	if r.err != nil {
		return llm.ContentResponse{}, r.err
	}
	return llm.ContentResponse{Content: r.content, Usage: shared.TokenUsage{TotalTokens: 42}}, nil
}

type MockRecorder struct {
	mu    sync.Mutex
	metas []shared.AgentMeta
}

func (m *MockRecorder) RecordMeta(meta shared.AgentMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metas = append(m.metas, meta)
	return nil
}

type recordedSleeps struct {
	delays []time.Duration
}

func (s *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

const mondayBlock = "【月 曜日: 魚の煮付け】\n魚\n醤油"

const mondayReply = "思考プロセス:\n魚と醤油を集計します。\n\n```json\n" +
	`[{"name":"魚","amount":"2切れ","category":"魚・海鮮","usedDays":["月","月"]},` +
	`{"name":"醤油","amount":"大さじ2","category":"調味料・油","usedDays":["月"]}]` +
	"\n```\n"

var (
	errRateLimited = &llm.APIError{StatusCode: 429, Body: "rate limited"}
	errInvalidKey  = errors.New("invalid api key")
)

// --- Tests ---

func TestAggregate(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2}

	t.Run("FirstModelSucceeds", func(t *testing.T) {
		gen := &MockTextGenerator{replies: []scriptedReply{{content: mondayReply}}}
		rec := &MockRecorder{}
		a := New([]llm.Model{{Name: "flash", Generator: gen}}, policy, zap.NewNop(), WithRecorder(rec))

		res := a.Aggregate(context.Background(), mondayBlock)

		assert.False(t, res.Fallback)
		assert.Equal(t, "flash", res.Model)
		require.Len(t, res.Ingredients, 2)
		for _, ing := range res.Ingredients {
			assert.Equal(t, []string{"月"}, ing.UsedDays)
			assert.True(t, menu.IsKnownCategory(ing.Category))
		}
		assert.Empty(t, res.FlaggedCategories)

		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], mondayBlock)
		assert.Contains(t, gen.prompts[0], strings.Join(menu.Categories, "、"))

		require.Len(t, rec.metas, 1)
		assert.Equal(t, "success", rec.metas[0].Outcome)
		assert.Equal(t, "flash", rec.metas[0].Usage.Model)
	})

	t.Run("TransientRetriesWithGrowingDelay", func(t *testing.T) {
		gen := &MockTextGenerator{replies: []scriptedReply{
			{err: errRateLimited},
			{err: errRateLimited},
			{content: mondayReply},
		}}
		sleeps := &recordedSleeps{}
		a := New([]llm.Model{{Name: "flash", Generator: gen}}, policy, zap.NewNop(), WithSleeper(sleeps.sleep))

		res := a.Aggregate(context.Background(), mondayBlock)

		assert.False(t, res.Fallback)
		assert.Equal(t, 3, gen.calls)
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeps.delays)
		require.Len(t, res.Attempts, 3)
		assert.Equal(t, "transient", res.Attempts[0].Outcome)
	})

	t.Run("TransientExhaustsThenCascades", func(t *testing.T) {
		first := &MockTextGenerator{replies: []scriptedReply{{err: errRateLimited}}}
		second := &MockTextGenerator{replies: []scriptedReply{{content: mondayReply}}}
		sleeps := &recordedSleeps{}
		a := New([]llm.Model{{Name: "flash", Generator: first}, {Name: "lite", Generator: second}},
			policy, zap.NewNop(), WithSleeper(sleeps.sleep))

		res := a.Aggregate(context.Background(), mondayBlock)

		assert.Equal(t, 3, first.calls)
		assert.Equal(t, 1, second.calls)
		assert.Equal(t, "lite", res.Model)
		assert.Len(t, sleeps.delays, 2)
	})

	t.Run("PermanentAdvancesImmediately", func(t *testing.T) {
		first := &MockTextGenerator{replies: []scriptedReply{{err: errInvalidKey}}}
		second := &MockTextGenerator{replies: []scriptedReply{{content: mondayReply}}}
		sleeps := &recordedSleeps{}
		a := New([]llm.Model{{Name: "flash", Generator: first}, {Name: "lite", Generator: second}},
			policy, zap.NewNop(), WithSleeper(sleeps.sleep))

		res := a.Aggregate(context.Background(), mondayBlock)

		assert.Equal(t, 1, first.calls)
		assert.Equal(t, "lite", res.Model)
		assert.Empty(t, sleeps.delays)
	})

	t.Run("MalformedOutputAdvances", func(t *testing.T) {
		first := &MockTextGenerator{replies: []scriptedReply{{content: "```json\n[{broken\n```"}}}
		second := &MockTextGenerator{replies: []scriptedReply{{content: mondayReply}}}
		a := New([]llm.Model{{Name: "flash", Generator: first}, {Name: "lite", Generator: second}},
			policy, zap.NewNop(), WithSleeper((&recordedSleeps{}).sleep))

		res := a.Aggregate(context.Background(), mondayBlock)

		assert.Equal(t, 1, first.calls)
		assert.Equal(t, "lite", res.Model)
		assert.Equal(t, "permanent", res.Attempts[0].Outcome)
	})

	t.Run("NullReplyAdvances", func(t *testing.T) {
		for _, reply := range []string{"null", "```json\nnull\n```", `[{"nom":"x"}]`} {
			first := &MockTextGenerator{replies: []scriptedReply{{content: reply}}}
			second := &MockTextGenerator{replies: []scriptedReply{{content: mondayReply}}}
			a := New([]llm.Model{{Name: "flash", Generator: first}, {Name: "lite", Generator: second}},
				policy, zap.NewNop(), WithSleeper((&recordedSleeps{}).sleep))

			res := a.Aggregate(context.Background(), mondayBlock)

			assert.Equal(t, 1, first.calls, "reply %q", reply)
			assert.Equal(t, 1, second.calls, "reply %q", reply)
			assert.Equal(t, "lite", res.Model)
			assert.False(t, res.Fallback)
			assert.Len(t, res.Ingredients, 2)
			assert.Equal(t, "permanent", res.Attempts[0].Outcome)
		}
	})

	t.Run("AllModelsFailFallsBack", func(t *testing.T) {
		first := &MockTextGenerator{replies: []scriptedReply{{err: errInvalidKey}}}
		second := &MockTextGenerator{replies: []scriptedReply{{err: errInvalidKey}}}
		rec := &MockRecorder{}
		a := New([]llm.Model{{Name: "flash", Generator: first}, {Name: "lite", Generator: second}},
			policy, zap.NewNop(), WithRecorder(rec))

		raw := mondayBlock + "\n\n【火 曜日: カレー】\nじゃがいも 2個"
		res := a.Aggregate(context.Background(), raw)

		assert.True(t, res.Fallback)
		assert.Empty(t, res.Model)
		require.Len(t, res.Ingredients, 3)
		for _, ing := range res.Ingredients {
			assert.Equal(t, menu.FallbackCategory, ing.Category)
			assert.Empty(t, ing.Amount)
			assert.NotNil(t, ing.UsedDays)
		}
		require.Len(t, rec.metas, 3)
		assert.Equal(t, "fallback", rec.metas[2].Outcome)
	})

	t.Run("UnknownCategoryIsFlagged", func(t *testing.T) {
		reply := `[{"name":"バジル","amount":"1パック","category":"ハーブ","usedDays":["水"]}]`
		gen := &MockTextGenerator{replies: []scriptedReply{{content: reply}}}
		a := New([]llm.Model{{Name: "flash", Generator: gen}}, policy, zap.NewNop())

		res := a.Aggregate(context.Background(), "【水 曜日: パスタ】\nバジル")

		assert.False(t, res.Fallback)
		require.Len(t, res.Ingredients, 1)
		assert.Equal(t, "ハーブ", res.Ingredients[0].Category)
		assert.Equal(t, []string{"ハーブ"}, res.FlaggedCategories)
	})

	t.Run("CancelledDuringBackoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		gen := &MockTextGenerator{replies: []scriptedReply{{err: errRateLimited}}}
		a := New([]llm.Model{{Name: "flash", Generator: gen}}, policy, zap.NewNop(),
			WithSleeper(func(ctx context.Context, d time.Duration) error {
				cancel()
				return ctx.Err()
			}))

		res := a.Aggregate(ctx, mondayBlock)

		assert.True(t, res.Fallback)
		assert.Equal(t, 1, gen.calls)
		assert.Len(t, res.Ingredients, 2)
	})

	t.Run("NoModels", func(t *testing.T) {
		a := New(nil, policy, zap.NewNop())
		res := a.Aggregate(context.Background(), mondayBlock)
		assert.True(t, res.Fallback)
	})
}

func TestCascade(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, Multiplier: 3}
	c := NewCascade(policy, 2)

	step, delay := c.Next(OutcomeTransient)
	assert.Equal(t, StepRetry, step)
	assert.Equal(t, time.Second, delay)
	assert.Equal(t, 2, c.Attempt())

	step, _ = c.Next(OutcomeTransient)
	assert.Equal(t, StepAdvance, step)
	assert.Equal(t, 1, c.Model())
	assert.Equal(t, 1, c.Attempt())

	step, _ = c.Next(OutcomePermanent)
	assert.Equal(t, StepExhausted, step)
	assert.True(t, c.Exhausted())

	step, _ = c.Next(OutcomeSuccess)
	assert.Equal(t, StepExhausted, step)

	step, _ = NewCascade(policy, 1).Next(OutcomeSuccess)
	assert.Equal(t, StepDone, step)
}

func TestRetryPolicyDelay(t *testing.T) {
	t.Run("Exponential", func(t *testing.T) {
		p := DefaultPolicy()
		assert.Equal(t, 5*time.Second, p.Delay(1))
		assert.Equal(t, 10*time.Second, p.Delay(2))
		assert.Equal(t, 20*time.Second, p.Delay(3))
		assert.Equal(t, time.Minute, p.Delay(10))
	})

	t.Run("NeverShrinks", func(t *testing.T) {
		p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 0.5}
		prev := time.Duration(0)
		for k := 1; k <= 5; k++ {
			d := p.Delay(k)
			assert.GreaterOrEqual(t, d, prev)
			prev = d
		}
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("FencedWithPreamble", func(t *testing.T) {
		got, err := ParseResponse(mondayReply)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "魚", got[0].Name)
		assert.Equal(t, []string{"月"}, got[0].UsedDays)
	})

	t.Run("BareArray", func(t *testing.T) {
		got, err := ParseResponse(`  [{"name":"卵","amount":"4個","category":"卵・豆腐・納豆"}]  `)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.NotNil(t, got[0].UsedDays)
		assert.Empty(t, got[0].UsedDays)
	})

	t.Run("UnlabelledFence", func(t *testing.T) {
		got, err := ParseResponse("結果:\n```\n[{\"name\":\"牛乳\",\"amount\":\"1本\",\"category\":\"乳製品（牛乳・ヨーグルト・チーズ）\",\"usedDays\":[\"金\"]}]\n```")
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("PreambleWithoutFence", func(t *testing.T) {
		got, err := ParseResponse("はい、こちらです。\n[{\"name\":\"塩\",\"amount\":\"少々\",\"category\":\"調味料・油\",\"usedDays\":[]}]")
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := ParseResponse("申し訳ありませんが、処理できませんでした。")
		assert.ErrorIs(t, err, ErrNoJSON)

		_, err = ParseResponse("")
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("StructurallyEmpty", func(t *testing.T) {
		for _, reply := range []string{"null", "```json\nnull\n```", `[{"nom":"x"}]`, `[{"name":"  "}]`} {
			_, err := ParseResponse(reply)
			assert.ErrorIs(t, err, ErrNoJSON, "reply %q", reply)
		}
	})

	t.Run("EmptyArrayIsAnEmptyList", func(t *testing.T) {
		got, err := ParseResponse("```json\n[]\n```")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestFallback(t *testing.T) {
	raw := "【月 曜日: 献立】\n\n  たまねぎ 1個  \nとても長い材料名がここに入りますがこれは二十文字を超えています\n"
	got := Fallback(raw)

	require.Len(t, got, 2)
	assert.Equal(t, "たまねぎ 1個", got[0].Name)
	assert.Equal(t, "とても長い材料名がここに入りますがこれは"+"...", got[1].Name)
	assert.Equal(t, 23, len([]rune(got[1].Name)))
	assert.Equal(t, menu.FallbackCategory, got[1].Category)

	assert.Empty(t, Fallback(""))
	assert.NotNil(t, Fallback(""))
}
