package deepseek

import (
	"github.com/BaSui01/modelflow/llm"
	"github.com/BaSui01/modelflow/llm/providers"
	"github.com/BaSui01/modelflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	// DisplayName 用于面向用户的错误消息。
	DisplayName = "DeepSeek"

	// DefaultBaseURL 是未做任何配置时使用的服务端点。
	DefaultBaseURL = "https://api.deepseek.com/v1"

	// EnvBaseURL 是端点覆盖环境变量。
	EnvBaseURL = "DEEPSEEK_BASE_URL"

	// EnvAPIKey 是凭据环境变量。
	EnvAPIKey = "DEEPSEEK_API_KEY"

	// FallbackModel 在请求与配置均未指定模型时使用。
	FallbackModel = "deepseek-chat"
)

// Provider 实现 DeepSeek LLM 提供者.
// DeepSeek 使用 OpenAI 兼容的 API 格式.
type Provider struct {
	*openaicompat.Provider
}

// New 创建 DeepSeek 提供者实例。
//
// BaseURL 与 APIKey 按 显式配置 > 环境变量 > 默认值 的顺序解析；
// 凭据在两级都缺失时返回 llm.PrerequisiteError，不会构造任何
// 网络客户端。解析完成后底层 OpenAI 兼容客户端只构造一次。
func New(cfg providers.DeepSeekConfig, logger *zap.Logger) (*Provider, error) {
	baseURL := providers.ResolveBaseURL(cfg.BaseURL, EnvBaseURL, DefaultBaseURL)

	apiKey, ok := providers.ResolveAPIKey(cfg.APIKey, EnvAPIKey)
	if !ok {
		return nil, llm.NewEnvPrerequisiteError(DisplayName, EnvAPIKey)
	}

	return &Provider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:     "deepseek",
			APIKey:           apiKey,
			BaseURL:          baseURL,
			DefaultModel:     cfg.Model,
			FallbackModel:    FallbackModel,
			Timeout:          cfg.Timeout,
			RequestHook:      requestHook,
			GenerateDefaults: cfg.GenerateDefaults,
			ExtraBody:        cfg.ExtraBody,
		}, logger),
	}, nil
}

// requestHook handles DeepSeek-specific request modifications.
// Automatically selects deepseek-reasoner for thinking/extended reasoning modes.
func requestHook(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
	mode := req.Metadata["reasoning_mode"]
	if mode == "thinking" || mode == "extended" {
		if req.Model == "" {
			body.Model = "deepseek-reasoner"
		}
	}
}
