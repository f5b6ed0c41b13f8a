package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/resilience"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
	providerName     = "anthropic"
)

type messages interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client answers oracle requests with the Anthropic Messages API.
type Client struct {
	messages messages
	model    string
	retry    resilience.RetryConfig
	logger   *zap.Logger
}

// NewClient creates a Client for the given API key and model.
func NewClient(apiKey, model string, maxRetries int, log *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	// Retries are handled by resilience.Do.
	client := sdk.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return newClient(&client.Messages, model, maxRetries, log), nil
}

func newClient(m messages, model string, maxRetries int, log *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	log = logger.WithCommonFields(log, providerName, model)

	retry := resilience.DefaultRetryConfig()
	if maxRetries > 0 {
		retry.MaxAttempts = maxRetries
	}
	retry.Logger = log

	return &Client{messages: m, model: model, retry: retry, logger: log}
}

// Complete sends a single-turn message and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	prompt := strings.TrimSpace(req.User)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
		Temperature: sdk.Float(float64(req.Temperature)),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		if req.JSON {
			system += "\n\nRespond with a single JSON object and nothing else."
		}
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	return resilience.Do(ctx, c.retry, "anthropic.messages.new", func(ctx context.Context) (string, error) {
		msg, err := c.messages.New(ctx, params)
		if err != nil {
			var apiErr *sdk.Error
			if errors.As(err, &apiErr) {
				return "", resilience.FromStatus(fmt.Errorf("create message: %w", err), apiErr.StatusCode)
			}
			return "", fmt.Errorf("create message: %w", err)
		}
		return joinText(msg)
	})
}

func joinText(msg *sdk.Message) (string, error) {
	if msg == nil {
		return "", ai.ErrEmptyResponse
	}

	parts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", ai.ErrEmptyResponse
	}
	return strings.Join(parts, "\n"), nil
}

func (c *Client) Provider() string {
	return providerName
}

func (c *Client) Model() string {
	return c.model
}
