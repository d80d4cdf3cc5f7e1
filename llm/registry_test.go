package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedProvider 是注册表测试用的最小 Provider 实现。
type namedProvider struct {
	name string
}

func (p *namedProvider) Name() string                        { return p.name }
func (p *namedProvider) SupportsNativeFunctionCalling() bool { return true }

func (p *namedProvider) Completion(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{
		ID:       "resp-" + p.name,
		Provider: p.name,
		Model:    req.Model,
		Choices: []ChatChoice{
			{Index: 0, FinishReason: "stop", Message: Message{Role: RoleAssistant, Content: "ok"}},
		},
	}, nil
}

func (p *namedProvider) Stream(_ context.Context, _ *ChatRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)
	close(ch)
	return ch, nil
}

func (p *namedProvider) HealthCheck(_ context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}

func TestProviderRegistry_RegisterAndGet(t *testing.T) {
	r := NewProviderRegistry()
	assert.Equal(t, 0, r.Len())

	ds := &namedProvider{name: "deepseek"}
	r.Register("deepseek", ds)

	got, ok := r.Get("deepseek")
	require.True(t, ok)
	assert.Same(t, ds, got.(*namedProvider))
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestProviderRegistry_RegisterReplaces(t *testing.T) {
	r := NewProviderRegistry()
	first := &namedProvider{name: "deepseek"}
	second := &namedProvider{name: "deepseek"}

	r.Register("deepseek", first)
	r.Register("deepseek", second)

	got, ok := r.Get("deepseek")
	require.True(t, ok)
	assert.Same(t, second, got.(*namedProvider))
	assert.Equal(t, 1, r.Len())
}

func TestProviderRegistry_Default(t *testing.T) {
	r := NewProviderRegistry()

	// 未设置默认时报错
	_, err := r.Default()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default provider")

	// 默认名必须已注册
	err = r.SetDefault("deepseek")
	require.Error(t, err)

	r.Register("deepseek", &namedProvider{name: "deepseek"})
	require.NoError(t, r.SetDefault("deepseek"))

	got, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "deepseek", got.Name())
}

func TestProviderRegistry_GetOrDefault(t *testing.T) {
	r := NewProviderRegistry()
	r.Register("deepseek", &namedProvider{name: "deepseek"})
	r.Register("goodfire", &namedProvider{name: "goodfire"})
	require.NoError(t, r.SetDefault("deepseek"))

	// 空名称回退到默认
	got, err := r.GetOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", got.Name())

	// 指定名称直接命中
	got, err = r.GetOrDefault("goodfire")
	require.NoError(t, err)
	assert.Equal(t, "goodfire", got.Name())

	// 未注册的名称报错
	_, err = r.GetOrDefault("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestProviderRegistry_List(t *testing.T) {
	r := NewProviderRegistry()
	assert.Empty(t, r.List())

	r.Register("goodfire", &namedProvider{name: "goodfire"})
	r.Register("deepseek", &namedProvider{name: "deepseek"})
	r.Register("local", &namedProvider{name: "local"})

	// List 返回按名称排序的结果
	assert.Equal(t, []string{"deepseek", "goodfire", "local"}, r.List())
}

func TestProviderRegistry_Unregister(t *testing.T) {
	r := NewProviderRegistry()
	r.Register("deepseek", &namedProvider{name: "deepseek"})
	require.NoError(t, r.SetDefault("deepseek"))

	r.Unregister("deepseek")
	assert.Equal(t, 0, r.Len())

	// 注销默认 Provider 同时清空默认指向
	_, err := r.Default()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default provider")

	// 注销不存在的名称是空操作
	r.Unregister("missing")
}

func TestProviderRegistry_ConcurrentAccess(t *testing.T) {
	r := NewProviderRegistry()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.Register("deepseek", &namedProvider{name: "deepseek"})
			r.Unregister("deepseek")
		}
	}()

	for i := 0; i < 100; i++ {
		r.Get("deepseek")
		r.List()
		r.Len()
	}
	<-done
}
