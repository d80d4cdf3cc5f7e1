package llm

import (
	"context"
	"encoding/json"
)

type credentialOverrideKey struct{}

// CredentialOverride 用于在单次请求内覆盖 Provider 凭据。
// 注意：该结构仅通过 context 传递，不会从 API JSON 反序列化，
// 避免调用链外部直接注入敏感信息。
type CredentialOverride struct {
	APIKey string
}

func (c CredentialOverride) String() string {
	if c.APIKey == "" {
		return "CredentialOverride{}"
	}
	return "CredentialOverride{APIKey:***}"
}

func (c CredentialOverride) MarshalJSON() ([]byte, error) {
	type masked struct {
		APIKey string `json:"api_key,omitempty"`
	}
	out := masked{}
	if c.APIKey != "" {
		out.APIKey = "***"
	}
	return json.Marshal(out)
}

// WithCredentialOverride 在 ctx 中写入凭据覆盖信息。
// 传入空的 APIKey 不会改变 ctx。
func WithCredentialOverride(ctx context.Context, c CredentialOverride) context.Context {
	if c.APIKey == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialOverrideKey{}, c)
}

// CredentialOverrideFromContext 从 ctx 读取凭据覆盖信息。
func CredentialOverrideFromContext(ctx context.Context) (CredentialOverride, bool) {
	v := ctx.Value(credentialOverrideKey{})
	if v == nil {
		return CredentialOverride{}, false
	}
	c, ok := v.(CredentialOverride)
	return c, ok
}
