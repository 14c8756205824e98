package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// OpenAITransport talks to an OpenAI-compatible chat completions endpoint.
type OpenAITransport struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAITransport builds a transport from config, reading the key from env.
func NewOpenAITransport(cfg OpenAIConfig) (*OpenAITransport, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai transport: model is required")
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("openai transport: environment variable %s is not set", cfg.APIKeyEnv)
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAITransport{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// Model returns the configured model id.
func (t *OpenAITransport) Model() string { return t.model }

// Send performs one chat completion with a single retry.
func (t *OpenAITransport) Send(ctx context.Context, system, user string) (string, error) {
	return sendWithRetry(ctx, t.model, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       t.model,
			Temperature: requestTemperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion: empty choices")
		}
		return resp.Choices[0].Message.Content, nil
	})
}
