package factory

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BaSui01/modelflow/llm"
	"go.uber.org/zap"
)

// EnvDefaultModel 指定缺省模型引用的环境变量。取值为逗号分隔的
// "provider/model" 列表，取第一个条目。
const EnvDefaultModel = "MODELFLOW_DEFAULT_MODEL"

// ParseModelRef 将 "provider/model" 形式的模型引用拆分为提供商名与
// 模型名。只在第一个斜杠处拆分，模型名自身可以再包含斜杠
// （如 "goodfire/meta-llama/Meta-Llama-3.1-8B-Instruct"）。
// ref 为空时回退到 MODELFLOW_DEFAULT_MODEL 的第一个条目。
func ParseModelRef(ref string) (provider, model string, err error) {
	if ref == "" {
		ref = defaultModelRef()
		if ref == "" {
			return "", "", fmt.Errorf("model ref is empty and %s is not set", EnvDefaultModel)
		}
	}

	idx := strings.Index(ref, "/")
	if idx <= 0 || idx == len(ref)-1 {
		return "", "", fmt.Errorf("invalid model ref %q: expected \"provider/model\"", ref)
	}
	return ref[:idx], ref[idx+1:], nil
}

// defaultModelRef 返回 MODELFLOW_DEFAULT_MODEL 逗号列表的第一个非空条目。
func defaultModelRef() string {
	for _, part := range strings.Split(os.Getenv(EnvDefaultModel), ",") {
		if ref := strings.TrimSpace(part); ref != "" {
			return ref
		}
	}
	return ""
}

var (
	modelCacheMu sync.Mutex
	modelCache   = map[string]llm.Provider{}
)

// GetModel 解析模型引用并构造对应的 Provider。
//
// 等价调用（相同提供商、模型、端点与密钥，且无 Extra、无生成默认值）
// 返回同一个 Provider 实例；带 Extra 或生成默认值的配置不可比较，
// 跳过记忆化。
func GetModel(ref string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	providerName, model, err := ParseModelRef(ref)
	if err != nil {
		return nil, err
	}
	cfg.Model = model

	memoize := len(cfg.Extra) == 0 && cfg.Generate.IsZero()
	key := fmt.Sprintf("%s|%s|%s|%s|%s", providerName, model, cfg.BaseURL, cfg.APIKey, cfg.Timeout)

	if memoize {
		modelCacheMu.Lock()
		if p, ok := modelCache[key]; ok {
			modelCacheMu.Unlock()
			return p, nil
		}
		modelCacheMu.Unlock()
	}

	p, err := NewProviderFromConfig(providerName, cfg, logger)
	if err != nil {
		return nil, err
	}

	if memoize {
		modelCacheMu.Lock()
		// 并发构造时保留先到者，保证同键始终返回同一实例
		if existing, ok := modelCache[key]; ok {
			p = existing
		} else {
			modelCache[key] = p
		}
		modelCacheMu.Unlock()
	}
	return p, nil
}

// ResetModelCache 清空 GetModel 的记忆化缓存。主要用于测试。
func ResetModelCache() {
	modelCacheMu.Lock()
	modelCache = map[string]llm.Provider{}
	modelCacheMu.Unlock()
}
