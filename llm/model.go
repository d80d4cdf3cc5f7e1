package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/modelflow/llm/observability"
)

// DefaultMaxConnections 是单个 Model 默认的并发连接上限。
const DefaultMaxConnections = 10

// EndpointReporter 由知道自身端点的 Provider 实现（openaicompat 及其
// 衍生适配器都实现）。Model 用它构造缓存键，使同一请求打到不同端点时
// 不会串缓存。
type EndpointReporter interface {
	BaseURL() string
}

// Model 将 Provider 与一套默认生成配置、运行期能力（并发上限、缓存、
// 指标）绑定成一个可直接调用的模型句柄。重试与限流通过包装后的
// Provider 注入（见 providers.RetryableProvider 与 RateLimitedProvider），
// Model 本身不重复实现。
type Model struct {
	provider Provider
	name     string
	config   GenerateConfig
	baseURL  string

	sem       *semaphore.Weighted
	cache     ResponseCache
	metrics   *observability.Metrics
	collector MetricsCollector
	costCalc  *observability.CostCalculator
	chain     *Chain
	logger    *zap.Logger
}

// ModelOption 配置 Model 的可选能力。
type ModelOption func(*Model)

// WithCache 启用响应缓存。
func WithCache(cache ResponseCache) ModelOption {
	return func(m *Model) { m.cache = cache }
}

// WithMetrics 启用 OpenTelemetry 指标与追踪。
func WithMetrics(metrics *observability.Metrics) ModelOption {
	return func(m *Model) { m.metrics = metrics }
}

// WithCollector 注入额外的指标收集器（如 Prometheus 实现）。
func WithCollector(c MetricsCollector) ModelOption {
	return func(m *Model) { m.collector = c }
}

// WithCostCalculator 启用成本核算：成功响应的 Usage.Cost 按价格表回填。
func WithCostCalculator(calc *observability.CostCalculator) ModelOption {
	return func(m *Model) { m.costCalc = calc }
}

// WithMiddleware 追加请求中间件。
func WithMiddleware(mws ...Middleware) ModelOption {
	return func(m *Model) {
		for _, mw := range mws {
			m.chain.Use(mw)
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel 创建模型句柄。name 是默认模型名（请求未指定 Model 时使用），
// config 是该句柄的基础生成配置，按 Merge 语义被调用方配置覆盖。
func NewModel(provider Provider, name string, config GenerateConfig, opts ...ModelOption) *Model {
	m := &Model{
		provider: provider,
		name:     name,
		config:   config,
		chain:    NewChain(),
		logger:   zap.NewNop(),
	}

	maxConns := DefaultMaxConnections
	if config.MaxConnections != nil && *config.MaxConnections > 0 {
		maxConns = *config.MaxConnections
	}
	m.sem = semaphore.NewWeighted(int64(maxConns))

	if ep, ok := provider.(EndpointReporter); ok {
		m.baseURL = ep.BaseURL()
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.collector != nil {
		m.chain.Use(MetricsMiddleware(m.collector))
	}

	return m
}

// Name 返回默认模型名。
func (m *Model) Name() string { return m.name }

// Provider 返回底层 Provider。
func (m *Model) Provider() Provider { return m.provider }

// Config 返回基础生成配置的副本。
func (m *Model) Config() GenerateConfig { return m.config }

// Generate 发起一次补全。请求中未设置的生成参数由句柄的基础配置补全，
// 并发受句柄的连接上限约束；启用缓存时相同请求直接返回缓存结果。
func (m *Model) Generate(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, &Error{Code: ErrInvalidRequest, Message: "nil request"}
	}
	if len(req.Messages) == 0 {
		return nil, &Error{Code: ErrInvalidRequest, Message: "request has no messages"}
	}

	r := *req
	m.prepare(&r)

	handler := m.chain.Then(m.complete)
	return handler(ctx, &r)
}

// GenerateWith 在本次调用上叠加一份生成配置后发起补全。
// 叠加遵循 Merge 语义：config 中已设置的字段覆盖句柄基础配置。
func (m *Model) GenerateWith(ctx context.Context, req *ChatRequest, config GenerateConfig) (*ChatResponse, error) {
	if req == nil {
		return nil, &Error{Code: ErrInvalidRequest, Message: "nil request"}
	}

	r := *req
	if r.Model == "" {
		r.Model = m.name
	}
	if r.TraceID == "" {
		r.TraceID = uuid.NewString()
	}
	m.config.Merge(config).ApplyTo(&r)

	handler := m.chain.Then(m.complete)
	return handler(ctx, &r)
}

// GenerateText 单轮文本补全便捷方法。
func (m *Model) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := m.Generate(ctx, &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return CompletionText(resp)
}

// prepare 填充默认模型名、TraceID 与基础生成配置。
func (m *Model) prepare(r *ChatRequest) {
	if r.Model == "" {
		r.Model = m.name
	}
	if r.TraceID == "" {
		r.TraceID = uuid.NewString()
	}
	m.config.ApplyTo(r)
}

// complete 是经过中间件链包装的核心处理器：缓存、并发闸、Provider 调用
// 与指标记录都发生在这里。
func (m *Model) complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var (
		span     observabilitySpan
		reqAttrs observability.RequestAttrs
	)
	start := time.Now()

	if m.metrics != nil {
		reqAttrs = observability.RequestAttrs{
			Provider: m.provider.Name(),
			Model:    req.Model,
			UserID:   req.UserID,
			TraceID:  req.TraceID,
		}
		ctx, span.span = m.metrics.StartRequest(ctx, reqAttrs)
		span.active = true
	}

	// 缓存命中直接短路，不占用并发闸
	var cacheKey string
	if m.cache != nil && m.cache.IsCacheable(req) {
		cacheKey = m.cache.GenerateKey(m.provider.Name(), m.baseURL, m.config, req)
		if entry, err := m.cache.Get(ctx, cacheKey); err == nil && entry.Response != nil {
			resp := *entry.Response
			if m.metrics != nil {
				m.metrics.EndRequest(ctx, span.span, reqAttrs, observability.ResponseAttrs{
					Status:           "ok",
					TokensPrompt:     resp.Usage.PromptTokens,
					TokensCompletion: resp.Usage.CompletionTokens,
					Duration:         time.Since(start),
					Cached:           true,
				})
				span.active = false
			}
			return &resp, nil
		}
		if m.metrics != nil {
			m.metrics.RecordCacheMiss(ctx, m.provider.Name(), req.Model)
		}
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finishSpan(ctx, &span, reqAttrs, nil, start, err)
		return nil, err
	}
	resp, err := m.provider.Completion(ctx, req)
	m.sem.Release(1)

	if err != nil {
		m.finishSpan(ctx, &span, reqAttrs, nil, start, err)
		return nil, err
	}

	if m.costCalc != nil && resp.Usage.Cost == 0 {
		resp.Usage.Cost = m.costCalc.Calculate(
			m.provider.Name(), req.Model,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	if cacheKey != "" {
		entry := &CacheEntry{
			Provider: m.provider.Name(),
			Model:    req.Model,
			Response: resp,
		}
		if cerr := m.cache.Set(ctx, cacheKey, entry); cerr != nil {
			m.logger.Warn("cache store failed", zap.Error(cerr))
		}
	}

	m.finishSpan(ctx, &span, reqAttrs, resp, start, nil)
	return resp, nil
}

// Stream 发起流式补全。分片通道被完整消费（或上游关闭）前持有并发闸。
func (m *Model) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if req == nil {
		return nil, &Error{Code: ErrInvalidRequest, Message: "nil request"}
	}
	if len(req.Messages) == 0 {
		return nil, &Error{Code: ErrInvalidRequest, Message: "request has no messages"}
	}

	r := *req
	m.prepare(&r)

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	upstream, err := m.provider.Stream(ctx, &r)
	if err != nil {
		m.sem.Release(1)
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer m.sem.Release(1)
		for chunk := range upstream {
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// HealthCheck 透传给底层 Provider。
func (m *Model) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return m.provider.HealthCheck(ctx)
}

// observabilitySpan 聚合 span 状态，避免重复结束。
type observabilitySpan struct {
	span   observability.Span
	active bool
}

func (m *Model) finishSpan(ctx context.Context, s *observabilitySpan, req observability.RequestAttrs, resp *ChatResponse, start time.Time, err error) {
	if m.metrics == nil || !s.active {
		return
	}
	s.active = false

	attrs := observability.ResponseAttrs{
		Status:   "ok",
		Duration: time.Since(start),
	}
	if err != nil {
		attrs.Status = "error"
		attrs.ErrorCode = errorCodeOf(err)
	}
	if resp != nil {
		attrs.TokensPrompt = resp.Usage.PromptTokens
		attrs.TokensCompletion = resp.Usage.CompletionTokens
		attrs.Cost = resp.Usage.Cost
	}
	m.metrics.EndRequest(ctx, s.span, req, attrs)
}

func errorCodeOf(err error) string {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return string(llmErr.Code)
	}
	return "unknown"
}

// String 便于日志输出。
func (m *Model) String() string {
	return fmt.Sprintf("Model{provider: %s, model: %s}", m.provider.Name(), m.name)
}
