// Package openai is the client for the completion and embedding APIs,
// fronted by the agency's API gateway.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/qgovau/qchat/internal/domain/models"
)

// ErrEmptyCompletion is returned when the API answers without choices.
var ErrEmptyCompletion = errors.New("completion response had no choices")

type Config struct {
	BaseURL        string
	APIKey         string
	Deployment     string
	EmbedDeploy    string
	Timeout        time.Duration
	MaxTokens      int
	EmbedBatchSize int
}

type Client struct {
	client      *resty.Client
	deployment  string
	embedDeploy string
	maxTokens   int
	batchSize   int
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 16
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:      cli,
		deployment:  cfg.Deployment,
		embedDeploy: cfg.EmbedDeploy,
		maxTokens:   cfg.MaxTokens,
		batchSize:   cfg.EmbedBatchSize,
	}
}

// Message is one entry of the conversation window sent for completion.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// temperatureForStyle maps the thread's conversation style to sampling
// temperature: creative wanders, precise sticks to the prompt.
func temperatureForStyle(style string) float64 {
	switch style {
	case models.StyleCreative:
		return 1.0
	case models.StyleBalanced:
		return 0.5
	default:
		return 0.1
	}
}

// ChatCompletion sends the conversation window and returns the
// assistant's reply.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, style string) (string, error) {
	var out completionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Messages:    messages,
			Temperature: temperatureForStyle(style),
			MaxTokens:   c.maxTokens,
		}).
		SetResult(&out).
		Post("/openai/deployments/" + c.deployment + "/chat/completions?api-version=2024-02-01")
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil {
			return "", fmt.Errorf("completion api: %s (%s)", out.Error.Message, out.Error.Code)
		}
		return "", fmt.Errorf("completion api: status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// Embed returns one vector per input text, batching large inputs.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		var out embeddingResponse
		resp, err := c.client.R().
			SetContext(ctx).
			SetBody(embeddingRequest{Input: texts[start:end]}).
			SetResult(&out).
			Post("/openai/deployments/" + c.embedDeploy + "/embeddings?api-version=2024-02-01")
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		if resp.IsError() {
			if out.Error != nil {
				return nil, fmt.Errorf("embedding api: %s (%s)", out.Error.Message, out.Error.Code)
			}
			return nil, fmt.Errorf("embedding api: status %d", resp.StatusCode())
		}
		if len(out.Data) != end-start {
			return nil, fmt.Errorf("embedding api: got %d vectors for %d inputs", len(out.Data), end-start)
		}
		for _, d := range out.Data {
			vectors = append(vectors, d.Embedding)
		}
	}
	return vectors, nil
}
