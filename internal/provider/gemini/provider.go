// Package gemini adapts Google's Gemini API to domain.Provider using the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = config.ProviderGemini

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 25 * time.Second
)

// Option configures the provider.
type Option func(*settings)

type settings struct {
	baseURL    string
	httpClient *http.Client
	model      string
	timeout    time.Duration
	logger     *slog.Logger
}

// WithBaseURL points the SDK at a different endpoint.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client the SDK uses.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout bounds a single critique call.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// Provider implements domain.Provider over genai.
type Provider struct {
	cli     *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Gemini provider. The SDK client is built once and reused.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	s := settings{model: DefaultModel, timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}

	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Provider{cli: cli, model: s.model, timeout: s.timeout, logger: s.logger}, nil
}

func (p *Provider) Name() string { return ProviderType }

// Critique sends prompt and screenshot as one user turn and asks for application/json.
func (p *Provider) Critique(ctx context.Context, screenshot []byte, prompt string) (*domain.RawCritique, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: provider.ImageMIMEType, Data: screenshot}},
		},
	}}

	start := time.Now()
	resp, err := p.cli.Models.GenerateContent(ctx, p.model, contents,
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, toProviderError(err)
	}

	p.logger.DebugContext(ctx, "gemini critique completed",
		"model", p.model,
		"duration_ms", time.Since(start).Milliseconds())

	text := responseText(resp)
	if text == "" {
		return nil, &domain.ProviderError{Provider: ProviderType, Kind: domain.KindBadResponse, Message: "no text in response candidates"}
	}

	model := resp.ModelVersion
	if model == "" {
		model = p.model
	}
	return &domain.RawCritique{Provider: ProviderType, Model: model, Content: text}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func toProviderError(err error) *domain.ProviderError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusError(*apiErrPtr, err)
	}
	return domain.WrapProviderError(ProviderType, err)
}

func statusError(apiErr genai.APIError, err error) *domain.ProviderError {
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Status
	}
	pe := domain.NewProviderError(ProviderType, apiErr.Code, msg)
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		pe.Kind = domain.KindRateLimit
	}
	pe.Err = err
	return pe
}

var _ domain.Provider = (*Provider)(nil)
