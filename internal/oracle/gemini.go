package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures a Gemini backend.
type GeminiConfig struct {
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// GeminiTransport talks to the Gemini API.
type GeminiTransport struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiTransport builds a transport from config, reading the key from env.
func NewGeminiTransport(ctx context.Context, cfg GeminiConfig) (*GeminiTransport, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini transport: model is required")
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini transport: environment variable %s is not set", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini transport: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeminiTransport{client: client, model: cfg.Model, timeout: timeout}, nil
}

// Model returns the configured model id.
func (t *GeminiTransport) Model() string { return t.model }

// Send performs one generation with a single retry.
func (t *GeminiTransport) Send(ctx context.Context, system, user string) (string, error) {
	return sendWithRetry(ctx, t.model, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		resp, err := t.client.Models.GenerateContent(ctx, t.model,
			genai.Text(user),
			&genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
				Temperature:       genai.Ptr[float32](requestTemperature),
			})
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("generate content: empty response")
		}
		return text, nil
	})
}
