package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/resilience"
)

const (
	defaultModel    = "gemini-1.5-flash"
	defaultLocation = "us-central1"
	providerName    = "vertex"
)

type generateFunc func(ctx context.Context, model *genai.GenerativeModel, prompt string) (*genai.GenerateContentResponse, error)

// Client answers oracle requests through Vertex AI.
type Client struct {
	client   *genai.Client
	model    string
	generate generateFunc
	retry    resilience.RetryConfig
	logger   *zap.Logger
}

// NewClient connects to Vertex AI using application default credentials.
func NewClient(ctx context.Context, projectID, location, model string, maxRetries int, log *zap.Logger) (*Client, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("vertex project id is required")
	}
	if location = strings.TrimSpace(location); location == "" {
		location = defaultLocation
	}

	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}

	c := newClient(model, maxRetries, log)
	c.client = client
	return c, nil
}

func newClient(model string, maxRetries int, log *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	log = logger.WithCommonFields(log, providerName, model)

	retry := resilience.DefaultRetryConfig()
	if maxRetries > 0 {
		retry.MaxAttempts = maxRetries
	}
	retry.Logger = log

	return &Client{
		model:    model,
		generate: sendPrompt,
		retry:    retry,
		logger:   log,
	}
}

func sendPrompt(ctx context.Context, model *genai.GenerativeModel, prompt string) (*genai.GenerateContentResponse, error) {
	return model.GenerateContent(ctx, genai.Text(prompt))
}

// Complete configures a model for this request and returns the text parts of the first candidate.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	prompt := strings.TrimSpace(req.User)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	model := c.configure(req)

	return resilience.Do(ctx, c.retry, "vertex.generate_content", func(ctx context.Context) (string, error) {
		resp, err := c.generate(ctx, model, prompt)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		return firstText(resp)
	})
}

func (c *Client) configure(req ai.Request) *genai.GenerativeModel {
	var model *genai.GenerativeModel
	if c.client != nil {
		model = c.client.GenerativeModel(c.model)
	} else {
		model = &genai.GenerativeModel{}
	}

	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if system := strings.TrimSpace(req.System); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	return model
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ai.ErrEmptyResponse
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ai.ErrEmptyResponse
	}
	return output, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Provider() string {
	return providerName
}

func (c *Client) Model() string {
	return c.model
}
