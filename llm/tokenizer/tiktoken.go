package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer 基于 tiktoken BPE 词表做精确计数。
// DeepSeek 的词表未随 tiktoken 发布,用 cl100k_base 近似,
// 对中英混合文本误差在个位数百分比内,足够做预算控制。
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	tke       *tiktoken.Tiktoken
}

// modelEncodings 记录各模型的编码名与上下文窗口。
var modelEncodings = map[string]struct {
	encoding  string
	maxTokens int
}{
	"deepseek-chat":     {"cl100k_base", 65536},
	"deepseek-reasoner": {"cl100k_base", 65536},
	"gpt-4o":            {"o200k_base", 128000},
	"gpt-4":             {"cl100k_base", 8192},
	"gpt-3.5-turbo":     {"cl100k_base", 16385},
}

// resolveEncoding 返回模型对应的编码名与上下文窗口。
// 精确匹配优先,其次取最长前缀,仍无结果时回退 cl100k_base / 8192。
func resolveEncoding(model string) (string, int) {
	if cfg, ok := modelEncodings[model]; ok {
		return cfg.encoding, cfg.maxTokens
	}
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		cfg := modelEncodings[best]
		return cfg.encoding, cfg.maxTokens
	}
	return "cl100k_base", 8192
}

// NewTiktokenTokenizer 创建指定模型的 tokenizer 并立即加载词表。
// 词表加载失败时返回错误,调用方可降级到估算器。
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	encoding, maxTokens := resolveEncoding(model)

	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}

	return &TiktokenTokenizer{
		model:     model,
		encoding:  encoding,
		maxTokens: maxTokens,
		tke:       tke,
	}, nil
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.tke.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []Message) (int, error) {
	total := 0
	for _, msg := range messages {
		// 每条消息的固定开销: <|im_start|>role\n ... <|im_end|>\n
		total += 4
		total += len(t.tke.Encode(msg.Role, nil, nil))
		total += len(t.tke.Encode(msg.Content, nil, nil))
	}
	// 回复以 <|im_start|>assistant 开头
	total += 3
	return total, nil
}

func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	return t.tke.Encode(text, nil, nil), nil
}

func (t *TiktokenTokenizer) Decode(tokens []int) (string, error) {
	return t.tke.Decode(tokens), nil
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return "tiktoken/" + t.encoding
}
