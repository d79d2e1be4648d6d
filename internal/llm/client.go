// Package llm provides a synchronous text generation client backed by the
// OpenAI API. It serves the "idea" job kind, which completes in a single
// call with no remote polling phase.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Static errors for LLM client operations.
var (
	// ErrAPIKeyRequired is returned when the API key is not provided.
	ErrAPIKeyRequired = errors.New("llm: API key is required")
	// ErrEmptyCompletion is returned when the API responds without content.
	ErrEmptyCompletion = errors.New("llm: empty completion returned")
)

// Generator defines the narrow port the idea adapter depends on.
type Generator interface {
	// Complete generates a completion for the given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client is the OpenAI implementation of Generator.
type Client struct {
	client openai.Client
	model  string
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithModel overrides the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a new OpenAI-backed text generation client.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	c := &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete generates a completion for the given prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// Compile-time check that Client implements Generator.
var _ Generator = (*Client)(nil)
