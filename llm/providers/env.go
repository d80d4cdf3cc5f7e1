package providers

import "os"

// ResolveBaseURL 按固定优先级解析服务端点：
// 显式参数 > 环境变量 > 内置默认值。
// 显式参数原样使用，不做任何规范化或尾斜杠处理。
func ResolveBaseURL(explicit, envVar, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return v
		}
	}
	return fallback
}

// ResolveAPIKey 按固定优先级解析凭据：
// 显式参数 > 环境变量（按给定顺序取第一个非空值）。
// 两者均缺失时返回 ("", false)，调用方应在构造任何网络客户端之前
// 返回 llm.PrerequisiteError。
func ResolveAPIKey(explicit string, envVars ...string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}
