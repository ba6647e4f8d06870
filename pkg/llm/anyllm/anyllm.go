// Package anyllm implements the TelaMentis llm.Connector on top of
// github.com/mozilla-ai/any-llm-go, a unified multi-provider client covering
// OpenAI, Anthropic, Gemini, Ollama and others.
//
// One connector type serves every provider: the provider name in the config
// selects the backend, and API keys fall back to the provider's conventional
// environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY)
// when not configured explicitly.
//
// Usage:
//
//	conn, err := anyllm.New(anyllm.Config{
//		Provider: "anthropic",
//		Model:    "claude-3-5-sonnet-latest",
//	})
//	envelope, err := conn.Extract(ctx, tenant, extractionContext)
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/ProdFact/telamentis/pkg/graph"
	"github.com/ProdFact/telamentis/pkg/llm"
)

// Config selects and tunes the backing provider.
type Config struct {
	// Provider is one of "openai", "anthropic", "gemini", "ollama".
	Provider string
	// Model is the provider-specific model name.
	Model string
	// APIKey overrides the provider's environment-variable fallback.
	APIKey string
	// BaseURL overrides the provider endpoint (proxies, self-hosted).
	BaseURL string
	// MaxTokens caps generation when the extraction context sets no bound.
	MaxTokens int
	// Temperature applies when the extraction context sets none.
	Temperature float64
	// Timeout bounds each provider call. 0 = 30s.
	Timeout time.Duration
	// MaxRetries bounds retry attempts after a failed provider call. 0 = 3.
	MaxRetries uint64
	// Rates prices token usage for cost estimates. Optional.
	Rates *llm.RateTable
}

// Connector implements llm.Connector by wrapping any-llm-go.
type Connector struct {
	backend anyllmlib.Provider
	config  Config
}

// New creates a connector for the configured provider.
func New(config Config) (*Connector, error) {
	if config.Provider == "" {
		return nil, fmt.Errorf("%w: provider must not be empty", llm.ErrConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: model must not be empty", llm.ErrConfig)
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}

	var opts []anyllmlib.Option
	if config.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(config.BaseURL))
	}

	backend, err := createBackend(config.Provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %q backend: %v", llm.ErrConfig, config.Provider, err)
	}
	return &Connector{backend: backend, config: config}, nil
}

func createBackend(provider string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", provider)
	}
}

// Extract implements llm.Connector.
//
// The call is retried with exponential backoff on any provider error except
// context cancellation (failures are not sorted into retryable and
// non-retryable categories), the
// response is decoded through llm.ParseEnvelope (fence stripping plus
// structural validation), and metadata — provider, model, latency, token
// counts, cost estimate — is attached before returning.
func (c *Connector) Extract(ctx context.Context, tenant graph.TenantID, ec llm.ExtractionContext) (*llm.ExtractionEnvelope, error) {
	start := time.Now()

	params := c.buildParams(llm.BuildExtractionPrompt(ec), ec.Messages, ec.MaxTokens, ec.Temperature)

	resp, err := c.complete(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices in response", llm.ErrResponseParse)
	}
	content := resp.Choices[0].Message.ContentString()
	if content == "" {
		return nil, fmt.Errorf("%w: no content in response", llm.ErrResponseParse)
	}

	envelope, err := llm.ParseEnvelope(content)
	if err != nil {
		return nil, err
	}

	md := &llm.ExtractionMetadata{
		Provider:  c.config.Provider,
		ModelName: c.config.Model,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if resp.Usage != nil {
		md.InputTokens = resp.Usage.PromptTokens
		md.OutputTokens = resp.Usage.CompletionTokens
	}
	c.config.Rates.Annotate(md)
	envelope.Metadata = md

	return envelope, nil
}

// Complete implements llm.Connector.
func (c *Connector) Complete(ctx context.Context, tenant graph.TenantID, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()

	messages := []llm.Message{{Role: "user", Content: req.Prompt}}
	params := c.buildParams("", messages, req.MaxTokens, req.Temperature)

	resp, err := c.complete(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices in response", llm.ErrResponseParse)
	}

	md := &llm.ExtractionMetadata{
		Provider:  c.config.Provider,
		ModelName: c.config.Model,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if resp.Usage != nil {
		md.InputTokens = resp.Usage.PromptTokens
		md.OutputTokens = resp.Usage.CompletionTokens
	}
	c.config.Rates.Annotate(md)

	return &llm.CompletionResponse{
		Text:     resp.Choices[0].Message.ContentString(),
		Metadata: md,
	}, nil
}

// complete runs one provider call with timeout and retry policy applied.
func (c *Connector) complete(ctx context.Context, params anyllmlib.CompletionParams) (*anyllmlib.CompletionResponse, error) {
	var resp *anyllmlib.CompletionResponse

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		r, err := c.backend.Completion(callCtx, params)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.config.MaxRetries), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", llm.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", llm.ErrAPI, err)
	}
}

func (c *Connector) buildParams(systemPrompt string, history []llm.Message, maxTokens int, temperature *float64) anyllmlib.CompletionParams {
	var messages []anyllmlib.Message
	if systemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range history {
		messages = append(messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	params := anyllmlib.CompletionParams{
		Model:    c.config.Model,
		Messages: messages,
	}

	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxTokens = &maxTokens
	}

	if temperature != nil {
		params.Temperature = temperature
	} else if c.config.Temperature != 0 {
		t := c.config.Temperature
		params.Temperature = &t
	}

	return params
}
