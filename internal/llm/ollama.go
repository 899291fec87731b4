package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const requestTimeout = 30 * time.Second

// OllamaClient calls an Ollama-compatible /api/generate endpoint. Requests
// are synchronous, bounded by the client timeout, and never retried.
type OllamaClient struct {
	client *resty.Client
	model  string
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	return &OllamaClient{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		model:  model,
	}
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	fullPrompt := strings.TrimSpace(prompt)
	if opts.WrapPrompt {
		fullPrompt = wrapPrompt(prompt)
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(generateRequest{
			Model:       c.model,
			Prompt:      fullPrompt,
			Stream:      false,
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
		}).
		Post("/api/generate")
	if err != nil {
		return "", &GenerationError{Detail: "generation backend unreachable", Err: err}
	}
	if !res.IsSuccess() {
		return "", &GenerationError{Detail: strings.TrimSpace(res.String())}
	}

	var result generateResponse
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		return "", &GenerationError{Detail: "error parsing generation response", Err: err}
	}

	return cleanReply(result.Response, opts), nil
}
