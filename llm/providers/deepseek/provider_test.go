package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/modelflow/llm"
	"github.com/BaSui01/modelflow/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// 配置解析
// ---------------------------------------------------------------------------

func TestNew_DefaultBaseURL(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvBaseURL, "")

	p, err := New(providers.DeepSeekConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com/v1", p.BaseURL())
	assert.Equal(t, "deepseek", p.Name())
}

func TestNew_BaseURLFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvBaseURL, "https://proxy.internal/v1")

	p, err := New(providers.DeepSeekConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.internal/v1", p.BaseURL())
}

func TestNew_ExplicitBaseURLWinsOverEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvBaseURL, "https://proxy.internal/v1")

	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = "https://explicit.example.com/v1"
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://explicit.example.com/v1", p.BaseURL())
}

func TestNew_ExplicitBaseURLUsedVerbatim(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	// 显式端点原样使用：不补斜杠、不追加版本段
	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = "http://localhost:8080/custom//"
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/custom//", p.BaseURL())
}

func TestNew_ExplicitAPIKeyWinsOverEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	var captured string
	server := newStubServer(t, func(r *http.Request) {
		captured = r.Header.Get("Authorization")
	})

	cfg := providers.DeepSeekConfig{}
	cfg.APIKey = "explicit-key"
	cfg.BaseURL = server.URL
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer explicit-key", captured)
}

func TestNew_APIKeyFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	var captured string
	server := newStubServer(t, func(r *http.Request) {
		captured = r.Header.Get("Authorization")
	})

	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = server.URL
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer env-key", captured)
}

func TestNew_MissingAPIKeyReturnsPrerequisiteError(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	p, err := New(providers.DeepSeekConfig{}, zap.NewNop())
	assert.Nil(t, p)
	require.Error(t, err)

	var prereq *llm.PrerequisiteError
	require.ErrorAs(t, err, &prereq)
	assert.Equal(t, "DeepSeek", prereq.Provider)
	assert.Equal(t, []string{EnvAPIKey}, prereq.EnvVars)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")

	// 前置条件错误不是运行期错误，不应能匹配为 *llm.Error
	var llmErr *llm.Error
	assert.False(t, errors.As(err, &llmErr))
}

func TestNew_MissingAPIKeyFailsBeforeAnyNetworkClient(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	// 即使端点可达，凭据缺失也必须在握手前失败
	dialed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed = true
	}))
	t.Cleanup(server.Close)

	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = server.URL
	_, err := New(cfg, zap.NewNop())
	require.Error(t, err)
	assert.False(t, dialed)
}

// ---------------------------------------------------------------------------
// 架构特征
// ---------------------------------------------------------------------------

func TestProvider_ArchTraitsAlwaysFalse(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	// 即便用户把模型命名成 o1-*，固定特征表仍然生效
	for _, model := range []string{"", "deepseek-chat", "deepseek-reasoner", "o1-lookalike"} {
		cfg := providers.DeepSeekConfig{}
		cfg.Model = model
		p, err := New(cfg, zap.NewNop())
		require.NoError(t, err)

		assert.False(t, p.IsO1(), "model=%q", model)
		assert.False(t, p.IsO1Full(), "model=%q", model)
		assert.False(t, p.IsO1Mini(), "model=%q", model)
		assert.False(t, p.IsO1Preview(), "model=%q", model)
	}
}

// ---------------------------------------------------------------------------
// 请求路径与推理模式路由
// ---------------------------------------------------------------------------

func TestProvider_Completion_EndpointPath(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	var path string
	server := newStubServer(t, func(r *http.Request) {
		path = r.URL.Path
	})

	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = server.URL + "/v1"
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", path)
}

func TestProvider_Completion_FallbackModel(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	var body providers.OpenAICompatRequest
	server := newStubServer(t, func(r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
	})

	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = server.URL
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", body.Model)
}

func TestProvider_Completion_ConstructionDefaultsReachWire(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	var raw map[string]any
	server := newStubServer(t, func(r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
	})

	maxTokens := 200
	cfg := providers.DeepSeekConfig{}
	cfg.BaseURL = server.URL
	cfg.GenerateDefaults = llm.GenerateConfig{MaxTokens: &maxTokens}
	cfg.ExtraBody = map[string]any{"logprobs": true}
	p, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)

	// 构造期生成默认值与透传字段都要抵达线上的请求体
	assert.Equal(t, float64(200), raw["max_tokens"])
	assert.Equal(t, true, raw["logprobs"])
}

func TestProvider_ReasoningModeSelectsReasoner(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	tests := []struct {
		name      string
		reqModel  string
		mode      string
		wantModel string
	}{
		{"thinking 切换 reasoner", "", "thinking", "deepseek-reasoner"},
		{"extended 切换 reasoner", "", "extended", "deepseek-reasoner"},
		{"显式模型优先于推理模式", "deepseek-chat", "thinking", "deepseek-chat"},
		{"无推理模式走兜底模型", "", "", "deepseek-chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body providers.OpenAICompatRequest
			server := newStubServer(t, func(r *http.Request) {
				json.NewDecoder(r.Body).Decode(&body)
			})

			cfg := providers.DeepSeekConfig{}
			cfg.BaseURL = server.URL
			p, err := New(cfg, zap.NewNop())
			require.NoError(t, err)

			req := &llm.ChatRequest{
				Model:    tt.reqModel,
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
			}
			if tt.mode != "" {
				req.Metadata = map[string]string{"reasoning_mode": tt.mode}
			}

			_, err = p.Completion(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, body.Model)
		})
	}
}

func TestProvider_SupportsNativeFunctionCalling(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	p, err := New(providers.DeepSeekConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, p.SupportsNativeFunctionCalling())
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// newStubServer 返回一个固定回复 "4" 的聊天端点，inspect 可检查进入的请求。
func newStubServer(t *testing.T, inspect func(*http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID:    "resp-1",
			Model: "deepseek-chat",
			Choices: []providers.OpenAICompatChoice{
				{Index: 0, FinishReason: "stop", Message: providers.OpenAICompatMessage{Role: "assistant", Content: "4"}},
			},
			Usage: &providers.OpenAICompatUsage{PromptTokens: 8, CompletionTokens: 1, TotalTokens: 9},
		})
	}))
	t.Cleanup(server.Close)
	return server
}
