// Package provider holds the shared prompt and the factory registry that
// turns configuration into the ordered chain of AI vision backends.
//
// # Adding a New Provider
//
// Implement domain.Provider in its own package and expose a Factory:
//
//	func Factory() provider.Factory {
//	    return provider.Factory{
//	        Type:        ProviderType,
//	        Description: "Example vision API",
//	        Create:      CreateFromConfig,
//	        Validate:    ValidateConfig,
//	    }
//	}
//
// Register it from cmd/auditor with Registry.Register. There are no init()
// side effects.
package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/tjfontaine/ux-auditor/internal/config"
	"github.com/tjfontaine/ux-auditor/internal/domain"
)

// Options carries process-wide collaborators shared by every adapter.
type Options struct {
	// HTTPClient is used for outbound calls. Nil means the adapter's default.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory defines how to create a provider of a specific type.
type Factory struct {
	// Type is the provider name used in configuration (e.g., "grok", "gemini")
	Type string

	// Description provides a human-readable description of the provider
	Description string

	// Create instantiates a new provider from configuration.
	Create func(cfg config.ProviderConfig, opts Options) (domain.Provider, error)

	// Validate performs provider-specific configuration validation.
	// Optional: if nil, no additional validation is performed.
	Validate func(cfg config.ProviderConfig) error
}

// Registry maps provider types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry(factories ...Factory) (*Registry, error) {
	r := &Registry{factories: make(map[string]Factory)}
	for _, f := range factories {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a factory. Types must be unique.
func (r *Registry) Register(f Factory) error {
	if f.Type == "" {
		return fmt.Errorf("provider factory type cannot be empty")
	}
	if f.Create == nil {
		return fmt.Errorf("provider factory %q must have a Create function", f.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[f.Type]; exists {
		return fmt.Errorf("provider factory %q already registered", f.Type)
	}
	r.factories[f.Type] = f
	return nil
}

// Types returns all registered provider types sorted by name.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds one provider from its configuration.
func (r *Registry) Create(cfg config.ProviderConfig, opts Options) (domain.Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s (registered types: %v)", cfg.Name, r.Types())
	}

	if f.Validate != nil {
		if err := f.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration for provider %s: %w", cfg.Name, err)
		}
	}

	return f.Create(cfg, opts)
}

// BuildChain creates the enabled providers in fallback order. Providers
// without credentials are skipped; an empty chain is valid.
func (r *Registry) BuildChain(pc config.ProvidersConfig, opts Options) ([]domain.Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ordered, err := pc.Ordered()
	if err != nil {
		return nil, err
	}

	chain := make([]domain.Provider, 0, len(ordered))
	for _, cfg := range ordered {
		if !cfg.Enabled() {
			logger.Debug("provider skipped: no api key", "provider", cfg.Name)
			continue
		}
		p, err := r.Create(cfg, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", cfg.Name, err)
		}
		chain = append(chain, p)
		logger.Info("provider enabled", "provider", cfg.Name, "model", cfg.Model, "position", len(chain))
	}
	return chain, nil
}
