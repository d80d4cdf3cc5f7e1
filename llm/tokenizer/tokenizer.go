package tokenizer

import (
	"fmt"
	"strings"
	"sync"
)

// Tokenizer 是统一的 Token 计数接口。
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数,
	// 包括每条消息的开销（角色标记、分隔符等）。
	CountMessages(messages []Message) (int, error)

	// Encode 将文本转换为 token ID 列表.
	Encode(text string) ([]int, error)

	// Decode 将 token ID 转换回文本.
	Decode(tokens []int) (string, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// Message 是一个轻量级消息结构, 由 tokenizer 包使用
// 以避免与 llm 包的循环依赖。
type Message struct {
	Role    string
	Content string
}

// 全局分词器注册表.
var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
	registerDefaults  sync.Once
)

// RegisterTokenizer 为给定的模型名称注册分词器.
// 名称既可以是完整模型名,也可以是前缀(如 "meta-llama/")。
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer 返回为给定模型注册的分词器,
// 精确匹配优先,其次是前缀匹配("deepseek-chat" 匹配 "deepseek-")。
func GetTokenizer(model string) (Tokenizer, error) {
	ensureDefaults()

	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, nil
	}

	// 尝试前缀匹配 。
	for prefix, t := range modelTokenizers {
		if strings.HasPrefix(model, prefix) {
			return t, nil
		}
	}

	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 返回该模型的注册分词器,
// 未登记时回退到通用估算器,调用方总能拿到可用实例。
func GetTokenizerOrEstimator(model string) Tokenizer {
	t, err := GetTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}

func ensureDefaults() {
	registerDefaults.Do(func() {
		// DeepSeek 词表与 cl100k 接近,tiktoken 近似误差在预算场景可接受
		for _, model := range []string{"deepseek-chat", "deepseek-reasoner"} {
			if t, err := NewTiktokenTokenizer(model); err == nil {
				RegisterTokenizer(model, t)
			}
		}
		// Goodfire 托管的 Llama 模型无本地词表,用调校过的估算器
		RegisterTokenizer("meta-llama/", NewLlamaEstimator())
	})
}
