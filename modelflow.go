// =============================================================================
// Package modelflow — One-Line Model Construction
// =============================================================================
// Top-level convenience entry point: turns a provider choice plus a handful
// of options into a ready *llm.Model. Delegates to llm/factory internally.
//
// Usage:
//
//	import "github.com/BaSui01/modelflow"
//
//	m, err := modelflow.New(modelflow.WithDeepSeek("deepseek-chat"))
//	m, err := modelflow.New(modelflow.WithGoodfire("meta-llama/Meta-Llama-3.1-8B-Instruct"))
//	m, err := modelflow.New(modelflow.WithProvider(myProvider), modelflow.WithModel("custom"))
//
// 凭证解析完全交给各 provider 构造函数：这里不读环境变量，留空的
// API Key 由 provider 自己的环境变量链补全，缺失时返回
// llm.PrerequisiteError（可用 errors.As 匹配）。
// =============================================================================
package modelflow

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/modelflow/config"
	"github.com/BaSui01/modelflow/internal/metrics"
	"github.com/BaSui01/modelflow/internal/telemetry"
	"github.com/BaSui01/modelflow/llm"
	"github.com/BaSui01/modelflow/llm/factory"
	"github.com/BaSui01/modelflow/llm/observability"
	"github.com/BaSui01/modelflow/llm/providers"
	"github.com/BaSui01/modelflow/llm/tokenizer"
)

// Option configures the model created by [New].
type Option func(*options)

type options struct {
	provider llm.Provider
	logger   *zap.Logger

	model     string
	genConfig llm.GenerateConfig

	// Provider shortcut fields — used when provider is nil.
	providerName string
	apiKey       string
	baseURL      string
	timeout      time.Duration
	extra        map[string]any

	// Optional wrappers and model capabilities.
	retry     *providers.RetryConfig
	rateLimit *llm.RateLimitConfig
	cache     llm.ResponseCache
	collector llm.MetricsCollector
	otel      bool
	costCalc  bool
}

// WithProvider sets a pre-built LLM provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithDeepSeek selects the DeepSeek provider with the given default model.
// Credentials resolve inside the provider constructor: an explicit
// [WithAPIKey] wins, otherwise DEEPSEEK_API_KEY.
func WithDeepSeek(model string) Option {
	return func(o *options) {
		o.providerName = "deepseek"
		o.model = model
	}
}

// WithGoodfire selects the Goodfire provider with the given default model.
// Credentials resolve inside the provider constructor: an explicit
// [WithAPIKey] wins, otherwise GOODFIRE_API_KEY.
func WithGoodfire(model string) Option {
	return func(o *options) {
		o.providerName = "goodfire"
		o.model = model
	}
}

// WithOpenAICompatible selects a generic OpenAI-compatible endpoint
// (Groq, Fireworks, OpenRouter, Ollama, vLLM, ...). baseURL is required.
func WithOpenAICompatible(name, baseURL, model string) Option {
	return func(o *options) {
		o.providerName = name
		o.baseURL = baseURL
		o.model = model
	}
}

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithAPIKey sets an explicit API key for provider shortcuts. It takes
// precedence over the provider's environment variables.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL sets an explicit base URL for provider shortcuts. It takes
// precedence over the provider's environment variables and built-in default.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithTimeout sets the HTTP timeout for provider shortcuts.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithExtra passes provider-specific extension fields to the factory
// (endpoint_path, supports_tools, extra_body, ...).
func WithExtra(extra map[string]any) Option {
	return func(o *options) { o.extra = extra }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGenerateConfig sets the model's base generation config; per-call
// configs merge over it.
func WithGenerateConfig(cfg llm.GenerateConfig) Option {
	return func(o *options) { o.genConfig = cfg }
}

// WithRetry wraps the provider with exponential-backoff retries.
func WithRetry(cfg providers.RetryConfig) Option {
	return func(o *options) { o.retry = &cfg }
}

// WithRateLimit wraps the provider with a local token bucket.
func WithRateLimit(cfg llm.RateLimitConfig) Option {
	return func(o *options) { o.rateLimit = &cfg }
}

// WithResponseCache enables response caching on the model.
func WithResponseCache(cache llm.ResponseCache) Option {
	return func(o *options) { o.cache = cache }
}

// WithCollector attaches a metrics collector (e.g. the Prometheus one
// produced by [NewCollector]).
func WithCollector(c llm.MetricsCollector) Option {
	return func(o *options) { o.collector = c }
}

// WithObservability enables OpenTelemetry spans and instruments on the
// model. Providers installed via [SetupTelemetry] receive the data.
func WithObservability() Option {
	return func(o *options) { o.otel = true }
}

// WithCostTracking fills Usage.Cost on successful responses using the
// built-in price table.
func WithCostTracking() Option {
	return func(o *options) { o.costCalc = true }
}

// New creates a [llm.Model] with minimal configuration. At minimum a
// provider must be selected via [WithDeepSeek], [WithGoodfire],
// [WithOpenAICompatible], or [WithProvider].
//
// Missing credentials surface as [llm.PrerequisiteError] before any
// network client is constructed.
func New(opts ...Option) (*llm.Model, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	// Resolve provider.
	p := o.provider
	if p == nil {
		if o.providerName == "" {
			return nil, fmt.Errorf("provider is required: use WithProvider, WithDeepSeek, WithGoodfire, or WithOpenAICompatible")
		}
		var err error
		p, err = factory.NewProviderFromConfig(o.providerName, factory.ProviderConfig{
			APIKey:  o.apiKey,
			BaseURL: o.baseURL,
			Model:   o.model,
			Timeout: o.timeout,
			Extra:   o.extra,
		}, o.logger)
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", o.providerName, err)
		}
	}

	return buildModel(p, o)
}

// buildModel applies wrappers and model options in a fixed order:
// retry innermost, then rate limit, then the model handle.
func buildModel(p llm.Provider, o *options) (*llm.Model, error) {
	if o.retry != nil {
		p = providers.NewRetryableProvider(p, *o.retry, o.logger)
	}
	if o.rateLimit != nil {
		p = llm.NewRateLimitedProvider(p, *o.rateLimit, o.logger)
	}

	modelOpts := []llm.ModelOption{llm.WithLogger(o.logger)}
	if o.cache != nil {
		modelOpts = append(modelOpts, llm.WithCache(o.cache))
	}
	if o.collector != nil {
		modelOpts = append(modelOpts, llm.WithCollector(o.collector))
	}
	if o.otel {
		m, err := observability.NewMetrics()
		if err != nil {
			return nil, fmt.Errorf("init observability instruments: %w", err)
		}
		modelOpts = append(modelOpts, llm.WithMetrics(m))
	}
	if o.costCalc {
		modelOpts = append(modelOpts, llm.WithCostCalculator(observability.NewCostCalculator()))
	}

	return llm.NewModel(p, o.model, o.genConfig, modelOpts...), nil
}

// NewFromConfig builds a model from an SDK config: it registers every
// configured provider, picks the default model reference, and wires
// cache, rate limit, retry, and metrics according to the config.
//
// A nil logger is built from cfg.Log. Telemetry is NOT initialized here;
// call [SetupTelemetry] before this when cfg.Telemetry.Enabled.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*llm.Model, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		var err error
		logger, err = cfg.Log.Build()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	registry, err := factory.NewRegistryFromConfig(cfg.RegistryConfig(), logger)
	if err != nil {
		return nil, err
	}

	// Resolve the default model reference.
	providerName := cfg.LLM.DefaultProvider
	modelName := ""
	if cfg.LLM.DefaultModel != "" {
		providerName, modelName, err = factory.ParseModelRef(cfg.LLM.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("parse default_model: %w", err)
		}
	} else if providerName != "" {
		modelName = cfg.LLM.Providers[providerName].Model
	} else {
		return nil, fmt.Errorf("config names no default provider or model")
	}

	p, err := registry.GetOrDefault(providerName)
	if err != nil {
		return nil, err
	}

	o := &options{
		provider: p,
		logger:   logger,
		model:    modelName,
	}

	if cfg.LLM.Timeout > 0 {
		t := cfg.LLM.Timeout
		o.genConfig.Timeout = &t
	}

	if cfg.Retry.Enabled {
		o.retry = &providers.RetryConfig{
			MaxRetries:    cfg.Retry.MaxRetries,
			InitialDelay:  cfg.Retry.InitialDelay,
			MaxDelay:      cfg.Retry.MaxDelay,
			BackoffFactor: cfg.Retry.BackoffFactor,
			Jitter:        cfg.Retry.Jitter,
			RetryableOnly: true,
		}
	}

	if cfg.RateLimit.Enabled {
		o.rateLimit = &llm.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			Wait:              cfg.RateLimit.Wait,
		}
	}

	if cfg.Cache.Enabled {
		ccfg := &llm.CacheConfig{
			LocalMaxSize: cfg.Cache.LocalMaxSize,
			LocalTTL:     cfg.Cache.LocalTTL,
			RedisTTL:     cfg.Cache.RedisTTL,
			EnableLocal:  cfg.Cache.EnableLocal,
			EnableRedis:  cfg.Cache.EnableRedis,
		}
		var rdb *redis.Client
		if cfg.Cache.EnableRedis {
			rdb = redis.NewClient(cfg.Cache.Redis.Options())
		}
		o.cache = llm.NewMultiLevelCache(rdb, ccfg, logger)
	}

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(cfg.Metrics.Namespace, logger)
		o.collector = collector
		if o.cache != nil {
			o.cache = &instrumentedCache{ResponseCache: o.cache, collector: collector}
		}
	}

	o.otel = cfg.Telemetry.Enabled
	o.costCalc = true

	return buildModel(p, o)
}

// NewCollector returns a Prometheus-backed metrics collector for use with
// [WithCollector]. Namespaces must be unique per process.
func NewCollector(namespace string, logger *zap.Logger) llm.MetricsCollector {
	return metrics.NewCollector(namespace, logger)
}

// SetupTelemetry installs global OpenTelemetry providers per the config
// and returns a shutdown function that flushes exporters. With telemetry
// disabled the shutdown function is a cheap no-op.
func SetupTelemetry(cfg config.TelemetryConfig, logger *zap.Logger) (func(context.Context) error, error) {
	p, err := telemetry.Init(cfg, logger)
	if err != nil {
		return nil, err
	}
	return p.Shutdown, nil
}

// instrumentedCache 在响应缓存外记录 Prometheus 命中计数。
// NewFromConfig 在缓存与指标同时启用时套上这一层。
type instrumentedCache struct {
	llm.ResponseCache
	collector *metrics.Collector
}

func (c *instrumentedCache) Get(ctx context.Context, key string) (*llm.CacheEntry, error) {
	entry, err := c.ResponseCache.Get(ctx, key)
	if err != nil {
		c.collector.RecordCacheMiss("response")
		return nil, err
	}
	c.collector.RecordCacheHit("response")
	return entry, nil
}

// CountTokens counts the prompt tokens the given messages occupy for a
// model, including per-message role and separator overhead. DeepSeek
// models count through a tiktoken vocabulary; models without a local
// vocabulary fall back to a calibrated estimator, so the result is an
// upper-bound approximation rather than the provider's billed figure.
func CountTokens(model string, messages []llm.Message) (int, error) {
	tok := tokenizer.GetTokenizerOrEstimator(model)
	msgs := make([]tokenizer.Message, len(messages))
	for i, m := range messages {
		msgs[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
	}
	return tok.CountMessages(msgs)
}
