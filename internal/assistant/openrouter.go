package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel   = "meta-llama/llama-3.2-3b-instruct:free"
	maxTokens      = 500
	temperature    = 0.7
)

// Completer turns a system prompt and a user message into a model reply.
type Completer interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

type OpenRouterClient struct {
	httpClient *resty.Client
	baseURL    string
	model      string
}

func NewOpenRouterClient(apiKey string, model string, baseURL string) *OpenRouterClient {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New().
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "http://localhost:8080").
		SetHeader("X-Title", "Venom Shop Assistant").
		SetTimeout(30 * time.Second)

	return &OpenRouterClient{httpClient: client, baseURL: baseURL, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenRouterClient) Complete(ctx context.Context, system string, user string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var respBody chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("openrouter api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openrouter api error %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(respBody.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	content := strings.TrimSpace(respBody.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
