package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig 配置本地令牌桶限流。
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
	// Wait 为 true 时等待令牌可用（受 ctx 取消约束）；
	// 为 false 时立即返回限流错误。
	Wait bool `json:"wait" yaml:"wait"`
}

// DefaultRateLimitConfig 返回默认限流配置。
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		Wait:              true,
	}
}

// RateLimitedProvider 在 Provider 外层套一个本地令牌桶，避免把上游
// 限流错误打满。上游返回的 429 仍由重试层处理，这里只约束发出速率。
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
	config  RateLimitConfig
	logger  *zap.Logger
}

// NewRateLimitedProvider 创建限流包装器。
func NewRateLimitedProvider(inner Provider, config RateLimitConfig, logger *zap.Logger) *RateLimitedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RequestsPerSecond <= 0 {
		config = DefaultRateLimitConfig()
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		config:  config,
		logger:  logger.With(zap.String("component", "ratelimit_provider"), zap.String("provider", inner.Name())),
	}
}

var _ Provider = (*RateLimitedProvider)(nil)

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

func (p *RateLimitedProvider) SupportsNativeFunctionCalling() bool {
	return p.inner.SupportsNativeFunctionCalling()
}

func (p *RateLimitedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion 在取得令牌后调用内层 Provider。
func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	return p.inner.Completion(ctx, req)
}

// Stream 在取得令牌后建立流式连接；流建立后的分片不再限流。
func (p *RateLimitedProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	return p.inner.Stream(ctx, req)
}

func (p *RateLimitedProvider) acquire(ctx context.Context) error {
	if p.config.Wait {
		start := time.Now()
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		if waited := time.Since(start); waited > 100*time.Millisecond {
			p.logger.Debug("rate limiter delayed request", zap.Duration("waited", waited))
		}
		return nil
	}

	if !p.limiter.Allow() {
		return &Error{
			Code:      ErrRateLimited,
			Message:   "local rate limit exceeded",
			Retryable: true,
			Provider:  p.inner.Name(),
		}
	}
	return nil
}
