package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/authentiq/internal/domain/ai"
)

// go-openai has no input_audio content part, so audio requests are encoded
// here and decoded with the library's response and error types.

type audioRequest struct {
	Model               string         `json:"model"`
	Messages            []audioMessage `json:"messages"`
	MaxTokens           int            `json:"max_tokens,omitempty"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
}

type audioMessage struct {
	Role    string      `json:"role"`
	Content []audioPart `json:"content"`
}

type audioPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

const maxErrorBody = 4 << 10

func (c *Client) completeAudio(ctx context.Context, instruction string, req ai.Request) (string, error) {
	body := audioRequest{
		Model: c.cfg.Model,
		Messages: []audioMessage{{
			Role: openai.ChatMessageRoleUser,
			Content: []audioPart{
				{Type: "text", Text: instruction},
				{Type: "input_audio", InputAudio: &inputAudio{Data: req.AudioData, Format: req.AudioFormat}},
			},
		}},
	}
	c.setTokenLimit(&body.MaxTokens, &body.MaxCompletionTokens)

	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode audio request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := string(raw)
		var errRes openai.ErrorResponse
		if json.Unmarshal(raw, &errRes) == nil && errRes.Error != nil {
			msg = errRes.Error.Message
		}
		return "", ai.FromStatus(resp.StatusCode, msg)
	}

	var out openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	return contentOf(out), nil
}
