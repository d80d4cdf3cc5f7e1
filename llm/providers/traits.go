package providers

import "strings"

// ArchTraits 描述一个模型架构对 OpenAI 兼容请求整形的要求。
// o1 家族模型使用 max_completion_tokens 而非 max_tokens，
// 且不接受采样参数（temperature、top_p）。
type ArchTraits struct {
	// O1 表示 o1 家族的任意成员（完整版、mini、preview）。
	O1 bool
	// O1Full 表示完整版 o1（非 mini、非 preview）。
	O1Full bool
	// O1Mini 表示 o1-mini 变体。
	O1Mini bool
	// O1Preview 表示 o1-preview 变体。
	O1Preview bool
}

// fixedTraits 按服务商名称固定架构特征，优先于模型名前缀探测。
// DeepSeek 与 Goodfire 都不提供 o1 家族模型，即使用户选择了
// 形如 "o1-*" 命名的自定义模型也按通用整形处理。
var fixedTraits = map[string]ArchTraits{
	"deepseek": {},
	"goodfire": {},
}

// DetectArchTraits 根据模型名前缀探测架构特征。
func DetectArchTraits(model string) ArchTraits {
	if !strings.HasPrefix(model, "o1") {
		return ArchTraits{}
	}
	t := ArchTraits{O1: true}
	switch {
	case strings.HasPrefix(model, "o1-mini"):
		t.O1Mini = true
	case strings.HasPrefix(model, "o1-preview"):
		t.O1Preview = true
	default:
		t.O1Full = true
	}
	return t
}

// TraitsFor 返回给定服务商与模型组合的架构特征。
// 服务商固定表优先；无固定条目时回退到模型名探测。
func TraitsFor(provider, model string) ArchTraits {
	if t, ok := fixedTraits[provider]; ok {
		return t
	}
	return DetectArchTraits(model)
}
