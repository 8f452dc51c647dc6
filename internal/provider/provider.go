// Package provider wraps the optional OpenAI-compatible completion endpoint
// used to refine keyword extraction.
package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"subagents/internal/config"
	"subagents/internal/errors"
)

// Message roles.
const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Completer returns the text of a single chat completion.
// Callers treat it as unreliable.
type Completer interface {
	Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error)
}

// LMStudio talks to an OpenAI-compatible /chat/completions endpoint.
type LMStudio struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// Option configures an LMStudio client.
type Option func(*openai.ClientConfig)

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *openai.ClientConfig) { cfg.HTTPClient = c }
}

// NewLMStudio builds a client from provider configuration.
func NewLMStudio(pc config.ProviderConfig, opts ...Option) (*LMStudio, error) {
	if pc.BaseURL == "" {
		return nil, errors.NewInvalidArgument("provider requires baseUrl")
	}
	if pc.Model == "" {
		return nil, errors.NewInvalidArgument("provider requires model")
	}

	cfg := openai.DefaultConfig(pc.APIKey)
	cfg.BaseURL = pc.BaseURL
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &LMStudio{
		client: openai.NewClientWithConfig(cfg),
		model:  pc.Model,
	}
	if pc.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(pc.RequestsPerSecond), 1)
	}
	return c, nil
}

// FromConfig returns nil when no provider is configured.
func FromConfig(pc config.ProviderConfig) (Completer, error) {
	if !pc.Enabled() {
		return nil, nil
	}
	switch pc.Kind {
	case config.ProviderLMStudio:
		c, err := NewLMStudio(pc)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.NewInvalidArgument(fmt.Sprintf("unsupported provider kind %q", pc.Kind))
	}
}

// Complete sends messages and returns the first choice's content.
func (c *LMStudio) Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.New(errors.ProviderUnavailable, "rate limiter", err)
		}
	}

	// A zero temperature is dropped by omitempty, so send the smallest positive value.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.New(errors.ProviderUnavailable, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.ProviderUnavailable, "response missing message content", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
