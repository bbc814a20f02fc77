package service

import (
	"context"
	"fmt"

	"github.com/atwlabs/semantic-job-matcher/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type ChatServiceInterface interface {
	ChatJSON(ctx context.Context, prompt string) (string, error)
}

// OpenRouterService issues chat-completion calls used for skill-overlap
// judgment. Responses are expected to be a single JSON object, possibly
// wrapped in a fenced code block.
type OpenRouterService struct {
	client *resty.Client
	logger *zap.Logger
	model  string
}

func NewOpenRouterService(logger *zap.Logger) *OpenRouterService {
	cfg := config.LoadOpenRouterConfig()
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &OpenRouterService{
		client: client,
		logger: logger,
		model:  config.LoadMatchingConfig().ChatModel,
	}
}

func (s *OpenRouterService) ChatJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":       s.model,
			"messages":    []map[string]string{{"role": "user", "content": prompt}},
			"temperature": 0.3,
			"max_tokens":  300,
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("chat completion failed with status %d", resp.StatusCode())
	}

	content := gjson.Get(resp.String(), "choices.0.message.content").String()
	if content == "" {
		return "", fmt.Errorf("no content in chat completion response")
	}

	s.logger.Debug("chat completion response", zap.Int("length", len(content)))
	return content, nil
}
