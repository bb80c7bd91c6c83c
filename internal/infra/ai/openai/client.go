package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/authentiq/internal/domain/ai"
	"github.com/bryanwahyu/authentiq/internal/infra/ai/prompt"
)

const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	DefaultModel   = "google/gemini-2.5-pro"
)

// Config is everything the gateway client needs; it is resolved once at startup.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	// RedactSecrets masks credentials in submitted text before it leaves the process.
	RedactSecrets bool
	HTTPClient    *http.Client
}

type Client struct {
	api  *openai.Client
	http *http.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HTTPClient == nil {
		// no client timeout: callers bound each call with a context deadline
		cfg.HTTPClient = &http.Client{}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = cfg.HTTPClient

	return &Client{api: openai.NewClientWithConfig(oc), http: cfg.HTTPClient, cfg: cfg}
}

// Model is the gateway model identifier requests are sent with.
func (c *Client) Model() string { return c.cfg.Model }

// Complete sends one chat completion for req and returns the model's message content.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if req.Media == ai.MediaText && c.cfg.RedactSecrets {
		req.Text, _ = prompt.Redact(req.Text)
	}

	instruction, err := prompt.For(req)
	if err != nil {
		return "", err
	}

	if req.Media == ai.MediaAudio {
		return c.completeAudio(ctx, instruction, req)
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	switch req.Media {
	case ai.MediaImage:
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: instruction},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.ImageURL}},
		}
	default:
		msg.Content = instruction
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{msg},
	}
	c.setTokenLimit(&chatReq.MaxTokens, &chatReq.MaxCompletionTokens)

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classify(err)
	}
	return contentOf(resp), nil
}

// setTokenLimit applies MaxTokens; reasoning models (o1/o3/o4/gpt-5*) take
// max_completion_tokens instead of max_tokens.
func (c *Client) setTokenLimit(maxTokens, maxCompletionTokens *int) {
	if c.cfg.MaxTokens <= 0 {
		return
	}
	m := strings.TrimPrefix(c.cfg.Model, "openai/")
	if strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "gpt-5") {
		*maxCompletionTokens = c.cfg.MaxTokens
		return
	}
	*maxTokens = c.cfg.MaxTokens
}

func contentOf(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// classify maps go-openai errors onto the gateway error set.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return ai.FromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return ai.FromStatus(reqErr.HTTPStatusCode, string(reqErr.Body))
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
