// Package openai adapts the OpenAI vision models to domain.Provider using the
// official openai-go SDK with a strict JSON schema response format.
package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = config.ProviderOpenAI

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 25 * time.Second
	maxTokens      = 1500
)

// Config configures the provider.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider implements domain.Provider over openai-go.
type Provider struct {
	client  openai.Client
	model   string
	timeout time.Duration
	schema  any
	logger  *slog.Logger
}

// New creates an OpenAI provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Fallback to the next provider is the retry strategy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	p := &Provider{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		schema:  provider.Schema(),
		logger:  cfg.Logger,
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

func (p *Provider) Name() string { return ProviderType }

// Critique asks for a response matching the critique schema.
func (p *Provider) Critique(ctx context.Context, screenshot []byte, prompt string) (*domain.RawCritique, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: provider.DataURL(screenshot),
				}),
			}),
		},
		MaxTokens: openai.Int(maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        provider.SchemaName,
					Description: openai.String("UX audit of a website screenshot"),
					Schema:      p.schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, toProviderError(err)
	}

	p.logger.DebugContext(ctx, "openai critique completed",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, &domain.ProviderError{Provider: ProviderType, Kind: domain.KindBadResponse, Message: "no choices in response"}
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" {
		text := "empty message content"
		if msg.Refusal != "" {
			text = "model refused: " + msg.Refusal
		}
		return nil, &domain.ProviderError{Provider: ProviderType, Kind: domain.KindBadResponse, Message: text}
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &domain.RawCritique{Provider: ProviderType, Model: model, Content: msg.Content}, nil
}

func toProviderError(err error) *domain.ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		pe := domain.NewProviderError(ProviderType, apiErr.StatusCode, msg)
		if apiErr.Code == "insufficient_quota" || apiErr.Code == "rate_limit_exceeded" {
			pe.Kind = domain.KindRateLimit
		}
		pe.Err = err
		return pe
	}
	return domain.WrapProviderError(ProviderType, err)
}

var _ domain.Provider = (*Provider)(nil)
