package goodfire

import (
	"fmt"
	"strings"

	"github.com/BaSui01/modelflow/llm"
	"github.com/BaSui01/modelflow/llm/providers"
	"github.com/BaSui01/modelflow/llm/providers/openaicompat"
	"go.uber.org/zap"
)

const (
	// DisplayName 用于面向用户的错误消息。
	DisplayName = "Goodfire"

	// DefaultBaseURL 是未做任何配置时使用的推理端点。
	DefaultBaseURL = "https://api.goodfire.ai/api/inference/v1"

	// EnvBaseURL 是端点覆盖环境变量。
	EnvBaseURL = "GOODFIRE_BASE_URL"

	// EnvAPIKey 是凭据环境变量。
	EnvAPIKey = "GOODFIRE_API_KEY"

	// DefaultModel 在未配置模型时使用。
	DefaultModel = "meta-llama/Meta-Llama-3.1-8B-Instruct"
)

// SupportedModels 是 Goodfire 托管的模型白名单。
var SupportedModels = []string{
	"meta-llama/Meta-Llama-3.1-8B-Instruct",
	"meta-llama/Llama-3.3-70B-Instruct",
}

// Provider 实现 Goodfire LLM 提供者.
type Provider struct {
	*openaicompat.Provider
}

// New 创建 Goodfire 提供者实例。
//
// 凭据按 显式配置 > GOODFIRE_API_KEY 解析，缺失时返回
// llm.PrerequisiteError；随后校验模型白名单，最后一次性构造底层
// OpenAI 兼容客户端。
func New(cfg providers.GoodfireConfig, logger *zap.Logger) (*Provider, error) {
	apiKey, ok := providers.ResolveAPIKey(cfg.APIKey, EnvAPIKey)
	if !ok {
		return nil, llm.NewEnvPrerequisiteError(DisplayName, EnvAPIKey)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if !isSupported(model) {
		return nil, fmt.Errorf("goodfire: model %q is not supported (supported models: %s)",
			model, strings.Join(SupportedModels, ", "))
	}

	baseURL := providers.ResolveBaseURL(cfg.BaseURL, EnvBaseURL, DefaultBaseURL)

	return &Provider{
		Provider: openaicompat.New(openaicompat.Config{
			ProviderName:     "goodfire",
			APIKey:           apiKey,
			BaseURL:          baseURL,
			DefaultModel:     model,
			FallbackModel:    DefaultModel,
			Timeout:          cfg.Timeout,
			GenerateDefaults: cfg.GenerateDefaults,
			ExtraBody:        cfg.ExtraBody,
		}, logger),
	}, nil
}

func isSupported(model string) bool {
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}
