package llm

import (
	"context"
	"fmt"
	"strings"

	"kondate-shopper/internal/config"
	"kondate-shopper/internal/shared"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient is a client for the Google Gemini API. One client serves any
// number of models.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Model returns a generator bound to the named model.
func (c *GeminiClient) Model(name string) TextGenerator {
	model := c.client.GenerativeModel(name)
	model.SetTemperature(0.1)
	return &geminiModel{name: name, model: model}
}

// Models returns one cascade entry per model name, in order.
func (c *GeminiClient) Models(names []string) []Model {
	models := make([]Model, 0, len(names))
	for _, name := range names {
		models = append(models, Model{Name: name, Generator: c.Model(name)})
	}
	return models
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

type geminiModel struct {
	name  string
	model *genai.GenerativeModel
}

// GenerateContent sends a prompt to the Gemini model and returns the generated text.
func (m *geminiModel) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	resp, err := m.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, fmt.Errorf("generated content is not text")
	}

	usage := shared.TokenUsage{Model: m.name}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}
