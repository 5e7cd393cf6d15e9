package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"kondate-shopper/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"GoogleAPI429", &googleapi.Error{Code: 429}, true},
		{"GoogleAPI503Wrapped", fmt.Errorf("failed to generate content: %w", &googleapi.Error{Code: 503}), true},
		{"GoogleAPI400", &googleapi.Error{Code: 400, Message: "bad request"}, false},
		{"APIError429", &APIError{StatusCode: 429}, true},
		{"APIError500", &APIError{StatusCode: 500}, false},
		{"MessageResourceExhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"MessageOverloaded", errors.New("the model is overloaded"), true},
		{"Plain", errors.New("invalid api key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestGroqClient(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer groq_key", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"content":"[]"}}],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`))
		}))
		defer ts.Close()

		gen := NewGroqClient(&config.Config{GroqAPIKey: "groq_key", GroqAPIURL: ts.URL, GroqModel: "llama"})
		resp, err := gen.GenerateContent(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "[]", resp.Content)
		assert.Equal(t, 12, resp.Usage.TotalTokens)
		assert.Equal(t, "llama", resp.Usage.Model)
	})

	t.Run("RateLimited", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}))
		defer ts.Close()

		gen := NewGroqClient(&config.Config{GroqAPIKey: "groq_key", GroqAPIURL: ts.URL, GroqModel: "llama"})
		_, err := gen.GenerateContent(context.Background(), "prompt")
		require.Error(t, err)
		assert.True(t, IsTransient(err))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	})

	t.Run("EmptyChoices", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer ts.Close()

		gen := NewGroqClient(&config.Config{GroqAPIURL: ts.URL})
		_, err := gen.GenerateContent(context.Background(), "prompt")
		require.Error(t, err)
		assert.False(t, IsTransient(err))
	})
}
