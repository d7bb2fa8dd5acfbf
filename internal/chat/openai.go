package chat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/xyenon/company-lens/internal/config"
	"github.com/xyenon/company-lens/internal/debug"
)

// Client is a Completer backed by the OpenAI SDK. Any OpenAI-compatible
// endpoint works; OpenRouter is the default.
type Client struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	Client      *openai.Client
}

func NewClient(cfg config.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable is not set", config.EnvAPIKey)
	}

	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		options = append(options, option.WithRequestTimeout(cfg.Timeout))
	}
	if baseURL := normalizeBaseURL(cfg.BaseURL); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	if cfg.SiteURL != "" {
		options = append(options, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		options = append(options, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openai.NewClient(options...)

	return &Client{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Client:      &client,
	}, nil
}

func (c *Client) Complete(ctx context.Context, messages []Message) (Reply, error) {
	if len(messages) == 0 {
		return Reply{}, fmt.Errorf("no messages to send")
	}
	logRequest(c.Model, messages)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.Model),
		Messages:    buildOpenAIChatMessages(messages),
		Temperature: openai.Float(c.Temperature),
	}
	if c.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.MaxTokens)
	}

	resp, err := c.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		debug.Log("Chat completion failed", map[string]any{
			"model": c.Model,
			"error": err,
		})
		return Reply{}, fmt.Errorf("failed to create chat completion: %w", err)
	}

	raw := resp.RawJSON()
	debug.Log("Received chat completion", map[string]any{
		"model":    resp.Model,
		"response": raw,
	})

	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("no choices returned from chat completion API")
	}

	return Reply{
		Content: resp.Choices[0].Message.Content,
		Raw:     raw,
		Model:   resp.Model,
	}, nil
}
