package gemini

import (
	"context"
	"errors"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

// Factory returns the registry entry for Gemini.
func Factory() provider.Factory {
	return provider.Factory{
		Type:        ProviderType,
		Description: "Google Gemini API (genai SDK)",
		Create:      CreateFromConfig,
		Validate:    ValidateConfig,
	}
}

// CreateFromConfig creates a new Gemini provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig, opts provider.Options) (domain.Provider, error) {
	return New(context.Background(), cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
		WithTimeout(cfg.Timeout),
		WithHTTPClient(opts.HTTPClient),
		WithLogger(opts.Logger),
	)
}

// ValidateConfig validates the provider configuration.
func ValidateConfig(cfg config.ProviderConfig) error {
	if cfg.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}
