package middleware

import (
	"context"

	llmpkg "github.com/BaSui01/modelflow/llm"
)

// GenerationDefaults 生成参数默认值填充器
// 将一份 llm.GenerateConfig 中已设置的参数填充到请求的零值字段上。
// 请求中显式给出的参数始终优先，不会被覆盖。
type GenerationDefaults struct {
	config llmpkg.GenerateConfig
}

// NewGenerationDefaults 创建生成参数填充器
func NewGenerationDefaults(config llmpkg.GenerateConfig) *GenerationDefaults {
	return &GenerationDefaults{config: config}
}

// Name 返回改写器名称
func (r *GenerationDefaults) Name() string {
	return "generation_defaults"
}

// Rewrite 执行改写
func (r *GenerationDefaults) Rewrite(ctx context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatRequest, error) {
	if req == nil || r.config.IsZero() {
		return req, nil
	}
	r.config.ApplyTo(req)
	return req, nil
}
