package llm

import "time"

// GenerateConfig 是一组可选的生成参数。所有字段都使用指针（或切片）
// 表达"未设置"状态，使多层配置可以无损合并：模型默认值、调用方配置、
// 单次请求参数依次覆盖。
type GenerateConfig struct {
	MaxTokens         *int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature       *float32       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP              *float32       `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	Stop              []string       `json:"stop,omitempty" yaml:"stop,omitempty"`
	FrequencyPenalty  *float32       `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	PresencePenalty   *float32       `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	Seed              *int           `json:"seed,omitempty" yaml:"seed,omitempty"`
	NumChoices        *int           `json:"num_choices,omitempty" yaml:"num_choices,omitempty"`
	ParallelToolCalls *bool          `json:"parallel_tool_calls,omitempty" yaml:"parallel_tool_calls,omitempty"`
	Timeout           *time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxRetries        *int           `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	MaxConnections    *int           `json:"max_connections,omitempty" yaml:"max_connections,omitempty"`
}

// Merge 返回 c 与 override 合并后的副本：override 中已设置的字段获胜，
// 未设置的字段保留 c 的值。两个输入都不会被修改。
func (c GenerateConfig) Merge(override GenerateConfig) GenerateConfig {
	out := c
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.Stop != nil {
		out.Stop = override.Stop
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.Seed != nil {
		out.Seed = override.Seed
	}
	if override.NumChoices != nil {
		out.NumChoices = override.NumChoices
	}
	if override.ParallelToolCalls != nil {
		out.ParallelToolCalls = override.ParallelToolCalls
	}
	if override.Timeout != nil {
		out.Timeout = override.Timeout
	}
	if override.MaxRetries != nil {
		out.MaxRetries = override.MaxRetries
	}
	if override.MaxConnections != nil {
		out.MaxConnections = override.MaxConnections
	}
	return out
}

// ApplyTo 将已设置的生成参数写入请求中对应的零值字段。
// 请求里已经显式给出的值不会被覆盖。
func (c GenerateConfig) ApplyTo(req *ChatRequest) {
	if req == nil {
		return
	}
	if req.MaxTokens == 0 && c.MaxTokens != nil {
		req.MaxTokens = *c.MaxTokens
	}
	if req.Temperature == 0 && c.Temperature != nil {
		req.Temperature = *c.Temperature
	}
	if req.TopP == 0 && c.TopP != nil {
		req.TopP = *c.TopP
	}
	if len(req.Stop) == 0 && len(c.Stop) > 0 {
		req.Stop = append([]string(nil), c.Stop...)
	}
	if req.FrequencyPenalty == 0 && c.FrequencyPenalty != nil {
		req.FrequencyPenalty = *c.FrequencyPenalty
	}
	if req.PresencePenalty == 0 && c.PresencePenalty != nil {
		req.PresencePenalty = *c.PresencePenalty
	}
	if req.Seed == nil && c.Seed != nil {
		seed := *c.Seed
		req.Seed = &seed
	}
	if req.N == 0 && c.NumChoices != nil {
		req.N = *c.NumChoices
	}
	if req.Timeout == 0 && c.Timeout != nil {
		req.Timeout = *c.Timeout
	}
}

// IsZero 报告配置是否完全未设置。
func (c GenerateConfig) IsZero() bool {
	return c.MaxTokens == nil && c.Temperature == nil && c.TopP == nil &&
		c.Stop == nil && c.FrequencyPenalty == nil && c.PresencePenalty == nil &&
		c.Seed == nil && c.NumChoices == nil && c.ParallelToolCalls == nil &&
		c.Timeout == nil && c.MaxRetries == nil && c.MaxConnections == nil
}
