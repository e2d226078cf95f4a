package grok

import (
	"errors"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = config.ProviderGrok

// Factory returns the registry entry for Grok.
func Factory() provider.Factory {
	return provider.Factory{
		Type:        ProviderType,
		Description: "xAI Grok vision (OpenAI-compatible chat completions)",
		Create:      CreateFromConfig,
		Validate:    ValidateConfig,
	}
}

// CreateFromConfig creates a new Grok provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig, opts provider.Options) (domain.Provider, error) {
	return New(cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
		WithTimeout(cfg.Timeout),
		WithHTTPClient(opts.HTTPClient),
		WithLogger(opts.Logger),
	), nil
}

// ValidateConfig validates the provider configuration.
func ValidateConfig(cfg config.ProviderConfig) error {
	if cfg.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}
