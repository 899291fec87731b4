package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAIClient is the alternate Generator for OpenAI-compatible backends,
// selected with LLM_PROVIDER=openai.
type OpenAIClient struct {
	llm *openai.LLM
}

func NewOpenAIClient(model, apiKey string) (*OpenAIClient, error) {
	client, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create OpenAI client: %w", err)
	}
	return &OpenAIClient{llm: client}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	fullPrompt := strings.TrimSpace(prompt)
	if opts.WrapPrompt {
		fullPrompt = wrapPrompt(prompt)
	}

	callOptions := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
		llms.WithTopP(opts.TopP),
	}
	if opts.MaxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, fullPrompt)},
		callOptions...,
	)
	if err != nil {
		return "", &GenerationError{Detail: "openai backend error", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Detail: "openai backend returned no choices"}
	}

	return cleanReply(resp.Choices[0].Content, opts), nil
}
