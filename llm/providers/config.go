package providers

import (
	"time"

	"github.com/BaSui01/modelflow/llm"
)

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
// 通过嵌入此结构体，各 Provider 的 Config 自动获得 APIKey、BaseURL、Model 等字段，
// 避免重复定义。所有字段均可留空：留空的 APIKey 与 BaseURL 会在构造时
// 按 显式参数 > 环境变量 > 默认值 的顺序解析。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// GenerateDefaults 为每个请求填充未显式设置的生成参数。
	// 请求级参数始终优先。
	GenerateDefaults llm.GenerateConfig `json:"generate,omitempty" yaml:"generate,omitempty"`

	// ExtraBody 是透传给上游请求体的扩展字段。
	// 与声明字段或请求级 ExtraBody 冲突时以后者为准。
	ExtraBody map[string]any `json:"extra_body,omitempty" yaml:"extra_body,omitempty"`
}

// DeepSeekConfig DeepSeek Provider 配置
type DeepSeekConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// GoodfireConfig Goodfire Provider 配置
type GoodfireConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// OpenAICompatibleConfig 通用 OpenAI 兼容端点配置。
// 与具名服务商不同，BaseURL 必填且没有环境变量回退。
type OpenAICompatibleConfig struct {
	BaseProviderConfig `yaml:",inline"`
	ProviderName       string `json:"provider_name,omitempty" yaml:"provider_name,omitempty"`
	EndpointPath       string `json:"endpoint_path,omitempty" yaml:"endpoint_path,omitempty"`
	ModelsEndpoint     string `json:"models_endpoint,omitempty" yaml:"models_endpoint,omitempty"`
	SupportsTools      *bool  `json:"supports_tools,omitempty" yaml:"supports_tools,omitempty"`
}
