// Package grok adapts the xAI Grok vision API, which speaks the OpenAI chat
// completion protocol, to domain.Provider.
package grok

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	openaiapi "github.com/tjfontaine/ux-auditor/internal/api/openai"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

const (
	DefaultBaseURL = "https://api.x.ai/v1"
	DefaultModel   = "grok-2-vision-1212"
	DefaultTimeout = 25 * time.Second
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithModel overrides the vision model.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTimeout bounds a single critique call.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Provider implements domain.Provider over the OpenAI-compatible client.
type Provider struct {
	client     *openaiapi.Client
	baseURL    string
	httpClient *http.Client
	model      string
	timeout    time.Duration
	logger     *slog.Logger
}

// New creates a new Grok provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	clientOpts := []openaiapi.ClientOption{openaiapi.WithBaseURL(p.baseURL)}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(p.httpClient))
	}

	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

// Critique sends the screenshot as an inline image with the prompt and
// returns the assistant message content.
func (p *Provider) Critique(ctx context.Context, screenshot []byte, prompt string) (*domain.RawCritique, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &openaiapi.ChatCompletionRequest{
		Model: p.model,
		Messages: []openaiapi.RequestMessage{{
			Role: openaiapi.RoleUser,
			Content: []openaiapi.ContentPart{
				openaiapi.ImagePart(provider.DataURL(screenshot), "high"),
				openaiapi.TextPart(prompt),
			},
		}},
		Temperature:    temperature(0.01),
		ResponseFormat: openaiapi.JSONObjectFormat,
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, toProviderError(err)
	}

	p.logger.DebugContext(ctx, "grok critique completed",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, &domain.ProviderError{Provider: ProviderType, Kind: domain.KindBadResponse, Message: "no choices in response"}
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		msg := "empty message content"
		if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
			msg = "model refused: " + refusal
		}
		return nil, &domain.ProviderError{Provider: ProviderType, Kind: domain.KindBadResponse, Message: msg}
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &domain.RawCritique{Provider: ProviderType, Model: model, Content: content}, nil
}

func toProviderError(err error) *domain.ProviderError {
	var se *openaiapi.StatusError
	if errors.As(err, &se) {
		pe := domain.NewProviderError(ProviderType, se.StatusCode, se.Message())
		pe.Err = err
		return pe
	}
	return domain.WrapProviderError(ProviderType, err)
}

func temperature(v float32) *float32 {
	return &v
}

var _ domain.Provider = (*Provider)(nil)
