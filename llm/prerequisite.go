package llm

import (
	"fmt"
	"strings"
)

// PrerequisiteError 表示构造期前置条件缺失（典型情形：API 密钥既未显式
// 传入也不存在于环境变量中）。它发生在任何网络客户端被构造之前，属于
// 配置问题而非运行期故障，因此不可重试，也不会被包装成 *Error。
type PrerequisiteError struct {
	// Provider 是面向用户的服务商展示名（如 "DeepSeek"）。
	Provider string
	// EnvVars 是可以满足该前置条件的环境变量名列表。
	EnvVars []string
}

func (e *PrerequisiteError) Error() string {
	switch len(e.EnvVars) {
	case 0:
		return fmt.Sprintf("%s is missing a required prerequisite", e.Provider)
	case 1:
		return fmt.Sprintf("%s requires the %s environment variable (or an explicit api key)", e.Provider, e.EnvVars[0])
	default:
		return fmt.Sprintf("%s requires one of the %s environment variables (or an explicit api key)",
			e.Provider, strings.Join(e.EnvVars, ", "))
	}
}

// NewEnvPrerequisiteError 构造凭据缺失错误。provider 使用展示名，
// envVars 列出全部可用的环境变量名，便于调用方给出修复提示。
func NewEnvPrerequisiteError(provider string, envVars ...string) *PrerequisiteError {
	return &PrerequisiteError{Provider: provider, EnvVars: envVars}
}
