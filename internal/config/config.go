// Package config loads the auditor configuration once at process start.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. "__" separates levels.
const EnvPrefix = "UXA_"

// Provider names.
const (
	ProviderGrok   = "grok"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Render    RenderConfig    `koanf:"render"`
	Providers ProvidersConfig `koanf:"providers"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"` // 0 disables limiting
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

type PipelineConfig struct {
	Budget time.Duration `koanf:"budget"`
}

type FetchConfig struct {
	Timeout      time.Duration `koanf:"timeout"`
	UserAgent    string        `koanf:"user_agent"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	AllowPrivate bool          `koanf:"allow_private"`
}

type RenderConfig struct {
	Mode           string        `koanf:"mode"` // auto, local, remote
	RemoteURL      string        `koanf:"remote_url"`
	ExecPath       string        `koanf:"exec_path"`
	ViewportWidth  int           `koanf:"viewport_width"`
	ViewportHeight int           `koanf:"viewport_height"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxConcurrent  int64         `koanf:"max_concurrent"`
}

type TelemetryConfig struct {
	ServiceName string `koanf:"service_name"`
	Traces      string `koanf:"traces"` // none or stdout
}

type ProvidersConfig struct {
	// Order is the fallback priority. Providers without an API key are skipped.
	Order  []string       `koanf:"order"`
	Grok   ProviderConfig `koanf:"grok"`
	Gemini ProviderConfig `koanf:"gemini"`
	OpenAI ProviderConfig `koanf:"openai"`
}

type ProviderConfig struct {
	Name    string        `koanf:"-"`
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"` // Custom API endpoint
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// Enabled reports whether the provider has credentials.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

// Lookup returns the configuration of the named provider.
func (p ProvidersConfig) Lookup(name string) (ProviderConfig, bool) {
	var cfg ProviderConfig
	switch strings.ToLower(name) {
	case ProviderGrok:
		cfg = p.Grok
	case ProviderGemini:
		cfg = p.Gemini
	case ProviderOpenAI:
		cfg = p.OpenAI
	default:
		return ProviderConfig{}, false
	}
	cfg.Name = strings.ToLower(name)
	return cfg, true
}

// Ordered returns the provider configurations in fallback order.
func (p ProvidersConfig) Ordered() ([]ProviderConfig, error) {
	out := make([]ProviderConfig, 0, len(p.Order))
	seen := make(map[string]bool, len(p.Order))
	for _, name := range p.Order {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cfg, ok := p.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q in providers.order", name)
		}
		if seen[cfg.Name] {
			continue
		}
		seen[cfg.Name] = true
		out = append(out, cfg)
	}
	return out, nil
}

// legacyKeys maps single-variable credentials onto provider API keys.
// The first non-empty variable wins.
var legacyKeys = map[string][]string{
	ProviderGrok:   {"XAI_API_KEY", "GROK_API_KEY"},
	ProviderGemini: {"GEMINI_API_KEY"},
	ProviderOpenAI: {"OPENAI_API_KEY"},
}

var defaults = map[string]any{
	"server.port":             8080,
	"server.request_timeout":  "65s",
	"server.rate_limit_rps":   0,
	"server.rate_limit_burst": 5,

	"pipeline.budget": "60s",

	"fetch.timeout":        "10s",
	"fetch.user_agent":     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"fetch.max_body_bytes": 5 << 20,
	"fetch.allow_private":  false,

	"render.mode":            "auto",
	"render.viewport_width":  1280,
	"render.viewport_height": 800,
	"render.timeout":         "30s",
	"render.max_concurrent":  2,

	"providers.order":          []string{ProviderGrok, ProviderGemini, ProviderOpenAI},
	"providers.grok.base_url":  "https://api.x.ai/v1",
	"providers.grok.model":     "grok-2-vision-1212",
	"providers.grok.timeout":   "25s",
	"providers.gemini.model":   "gemini-2.0-flash",
	"providers.gemini.timeout": "25s",
	"providers.openai.model":   "gpt-4o-mini",
	"providers.openai.timeout": "25s",

	"telemetry.service_name": "ux-auditor",
	"telemetry.traces":       "none",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (missing is fine), then UXA_ environment overrides, then
// legacy credential variables, then defaults for anything still unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, err
	}

	for name, vars := range legacyKeys {
		key := "providers." + name + ".api_key"
		if k.String(key) != "" {
			continue
		}
		for _, v := range vars {
			if val := os.Getenv(v); val != "" {
				k.Set(key, val)
				break
			}
		}
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in provider API keys
	cfg.Providers.Grok.APIKey = substituteEnvVars(cfg.Providers.Grok.APIKey)
	cfg.Providers.Gemini.APIKey = substituteEnvVars(cfg.Providers.Gemini.APIKey)
	cfg.Providers.OpenAI.APIKey = substituteEnvVars(cfg.Providers.OpenAI.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys take comma separated values when set from the environment.
var listKeys = map[string]bool{"providers.order": true}

// envValue maps UXA_PROVIDERS__ORDER to providers.order and splits list values.
func envValue(name, value string) (string, interface{}) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Render.Mode {
	case "auto", "local":
	case "remote":
		if c.Render.RemoteURL == "" {
			return fmt.Errorf("render.mode remote requires render.remote_url")
		}
	default:
		return fmt.Errorf("render.mode must be auto, local or remote, got %q", c.Render.Mode)
	}
	if c.Pipeline.Budget <= 0 {
		return fmt.Errorf("pipeline.budget must be positive")
	}
	switch c.Telemetry.Traces {
	case "none", "stdout":
	default:
		return fmt.Errorf("telemetry.traces must be none or stdout, got %q", c.Telemetry.Traces)
	}
	if _, err := c.Providers.Ordered(); err != nil {
		return err
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
