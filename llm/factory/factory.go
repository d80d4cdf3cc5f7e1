package factory

import (
	"fmt"
	"time"

	"github.com/BaSui01/modelflow/llm"
	"github.com/BaSui01/modelflow/llm/providers"
	"github.com/BaSui01/modelflow/llm/providers/deepseek"
	"github.com/BaSui01/modelflow/llm/providers/goodfire"
	"github.com/BaSui01/modelflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// ProviderConfig is the generic configuration accepted by the factory function.
// It uses a flat structure with an Extra map for provider-specific fields.
// Empty APIKey/BaseURL are resolved by the named provider's own
// environment-variable chain.
type ProviderConfig struct {
	APIKey   string             `json:"api_key" yaml:"api_key"`
	BaseURL  string             `json:"base_url" yaml:"base_url"`
	Model    string             `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout  time.Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Generate llm.GenerateConfig `json:"generate,omitempty" yaml:"generate,omitempty"`
	Extra    map[string]any     `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig. It maps the name to the appropriate constructor.
//
// Supported names: deepseek, goodfire. Any other name is treated as a generic
// OpenAI-compatible endpoint and requires base_url.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		Model:            cfg.Model,
		Timeout:          cfg.Timeout,
		GenerateDefaults: cfg.Generate,
	}
	if v, ok := cfg.Extra["extra_body"].(map[string]any); ok {
		base.ExtraBody = v
	}

	switch name {
	case "deepseek":
		return deepseek.New(providers.DeepSeekConfig{BaseProviderConfig: base}, logger)

	case "goodfire":
		return goodfire.New(providers.GoodfireConfig{BaseProviderConfig: base}, logger)

	default:
		// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入
		// 支持 Groq、Fireworks、OpenRouter、Ollama、vLLM 等
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
		}
		oc := providers.OpenAICompatibleConfig{
			BaseProviderConfig: base,
			ProviderName:       name,
		}
		if v, ok := cfg.Extra["endpoint_path"].(string); ok {
			oc.EndpointPath = v
		}
		if v, ok := cfg.Extra["models_endpoint"].(string); ok {
			oc.ModelsEndpoint = v
		}
		if v, ok := cfg.Extra["supports_tools"].(bool); ok {
			oc.SupportsTools = &v
		}
		logger.Info("creating generic OpenAI-compatible provider",
			zap.String("provider", name),
			zap.String("base_url", cfg.BaseURL))
		return openaicompat.NewGeneric(oc, logger)
	}
}

// SupportedProviders returns the list of built-in provider names.
// Any name not in this list will be treated as a generic OpenAI-compatible
// provider, requiring base_url in the configuration.
func SupportedProviders() []string {
	return []string{"deepseek", "goodfire"}
}

// RegistryConfig describes multiple providers and which one is the default.
// Use this with NewRegistryFromConfig to build a ProviderRegistry in one call.
type RegistryConfig struct {
	// Default is the name of the default provider (must match a key in Providers).
	Default string `json:"default" yaml:"default"`
	// Providers maps provider names to their configurations.
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
}

// NewRegistryFromConfig creates a ProviderRegistry populated with all providers
// defined in the RegistryConfig. It sets the default provider if specified.
// Any provider that fails to initialize is logged as a warning and skipped.
func NewRegistryFromConfig(cfg RegistryConfig, logger *zap.Logger) (*llm.ProviderRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := llm.NewProviderRegistry()

	for name, pcfg := range cfg.Providers {
		p, err := NewProviderFromConfig(name, pcfg, logger)
		if err != nil {
			logger.Warn("skipping provider: initialization failed",
				zap.String("provider", name),
				zap.Error(err))
			continue
		}
		reg.Register(name, p)
		logger.Info("provider registered", zap.String("provider", name))
	}

	if cfg.Default != "" {
		if err := reg.SetDefault(cfg.Default); err != nil {
			return reg, fmt.Errorf("failed to set default provider %q: %w", cfg.Default, err)
		}
	}

	return reg, nil
}
