package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averill/parlor/store"
)

func newFakeProvider(t *testing.T, content string, capture *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		response := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
}

func newTestConfig(baseURL string) *Config {
	return &Config{
		Model:       "test-model",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		MaxTokens:   2000,
		Temperature: 0.7,
		Timeout:     5,
	}
}

func TestCompleteReturnsAssistantContent(t *testing.T) {
	var captured openai.ChatCompletionRequest
	provider := newFakeProvider(t, "a fine reply", &captured)
	defer provider.Close()

	service := NewCompletionService(newTestConfig(provider.URL))
	reply, err := service.Complete(context.Background(), []Message{
		{Role: "user", Content: "a question"},
	}, store.UseCaseBanking)
	require.NoError(t, err)
	assert.Equal(t, "a fine reply", reply)

	assert.Equal(t, "test-model", captured.Model)
	assert.Equal(t, 2000, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 0.001)

	// System prompt first, then the conversation context.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "banking assistant")
	assert.Equal(t, "a question", captured.Messages[1].Content)
}

func TestCompleteWithoutAPIKey(t *testing.T) {
	cfg := newTestConfig("")
	cfg.APIKey = ""
	service := NewCompletionService(cfg)

	_, err := service.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, store.UseCaseDefault)
	require.ErrorIs(t, err, ErrService)
}

func TestCompleteEmptyContent(t *testing.T) {
	provider := newFakeProvider(t, "   ", nil)
	defer provider.Close()

	service := NewCompletionService(newTestConfig(provider.URL))
	_, err := service.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, store.UseCaseDefault)
	require.ErrorIs(t, err, ErrService)
}

func TestCompleteTransportFailure(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	service := NewCompletionService(newTestConfig(provider.URL))
	_, err := service.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, store.UseCaseDefault)
	require.ErrorIs(t, err, ErrService)
}
