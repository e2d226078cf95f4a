package openai

import (
	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/provider"
)

// Factory returns the registry entry for OpenAI.
func Factory() provider.Factory {
	return provider.Factory{
		Type:        ProviderType,
		Description: "OpenAI chat completions with strict JSON schema output",
		Create:      CreateFromConfig,
	}
}

// CreateFromConfig creates a new OpenAI provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig, opts provider.Options) (domain.Provider, error) {
	return New(Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Timeout:    cfg.Timeout,
		HTTPClient: opts.HTTPClient,
		Logger:     opts.Logger,
	})
}
