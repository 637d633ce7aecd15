// Package ai provides the text-completion service boundary. Any
// OpenAI-compatible provider works; the request carries a system prompt
// chosen by the conversation's use case and a fixed sampling configuration.
package ai

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/store"
)

// ErrService marks any completion failure: transport error, timeout,
// malformed body, missing content, or missing credential.
var ErrService = errors.New("completion service failure")

// Message is a chat message in completion-request form.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CompletionService turns an ordered message context into one assistant reply.
type CompletionService interface {
	Complete(ctx context.Context, messages []Message, useCase store.UseCase) (string, error)
}

// Config represents completion service configuration.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     int // Request timeout in seconds
}

// NewConfigFromProfile builds the completion config with the fixed sampling
// parameters used for every request.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		MaxTokens:   2000,
		Temperature: 0.7,
		Timeout:     p.LLMTimeout,
	}
}

type service struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     int
	configured  bool
}

// NewCompletionService creates a CompletionService. A missing API key does
// not fail construction; every Complete call will return ErrService until a
// credential is configured, so the rest of the server keeps working.
func NewCompletionService(cfg *Config) CompletionService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	if cfg.APIKey == "" {
		slog.Warn("completion service has no API key configured; chat turns will fail")
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		configured:  cfg.APIKey != "",
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func (s *service) Complete(ctx context.Context, messages []Message, useCase store.UseCase) (string, error) {
	if !s.configured {
		return "", errors.Wrap(ErrService, "API key is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	request := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    buildRequestMessages(messages, useCase),
	}

	slog.Debug("completion request",
		"model", s.model,
		"use_case", string(useCase),
		"messages_count", len(request.Messages),
	)

	start := time.Now()
	response, err := s.client.CreateChatCompletion(ctx, request)
	if err != nil {
		slog.Error("completion request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", errors.Wrapf(ErrService, "chat completion: %v", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.Wrap(ErrService, "response carries no choices")
	}
	content := response.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.Wrap(ErrService, "response content is empty")
	}

	slog.Debug("completion response received",
		"content_length", len(content),
		"total_tokens", response.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return content, nil
}

func buildRequestMessages(messages []Message, useCase store.UseCase) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	result = append(result, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(useCase),
	})
	for _, m := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return result
}
