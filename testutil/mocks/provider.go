// Provider 的测试模拟实现。
//
// 支持固定响应、流式输出、延迟与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/modelflow/llm"
)

// Provider 是 llm.Provider 的模拟实现。
//
// 零值不可用，必须通过 NewProvider 创建；Builder 方法返回自身以便链式
// 配置。所有方法并发安全。
type Provider struct {
	mu sync.RWMutex

	// 响应配置
	name         string
	baseURL      string
	response     string
	streamChunks []string
	streamErr    *llm.Error
	toolCalls    []llm.ToolCall
	err          error
	nativeTools  bool
	healthy      bool

	promptTokens     int
	completionTokens int

	// 调用记录
	calls          []Call
	callCount      int
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
	streamFunc     func(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error)

	// 行为控制
	delay     time.Duration
	failAfter int // 第 N 次调用之后开始失败
}

// Call 记录单次调用。
type Call struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 创建默认配置的模拟提供商。
func NewProvider() *Provider {
	return &Provider{
		name:             "mock",
		baseURL:          "http://mock.local/v1",
		response:         "mock response",
		nativeTools:      true,
		healthy:          true,
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithName 设置提供商名称（注册表测试需要不同名称）。
func (m *Provider) WithName(name string) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithBaseURL 设置 BaseURL() 返回的端点（参与缓存 key）。
func (m *Provider) WithBaseURL(url string) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseURL = url
	return m
}

// WithResponse 设置固定响应内容。
func (m *Provider) WithResponse(response string) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置 Completion/Stream 返回的错误。
func (m *Provider) WithError(err error) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithStreamChunks 设置流式响应块。
func (m *Provider) WithStreamChunks(chunks ...string) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamChunks = chunks
	return m
}

// WithStreamError 在流末尾注入一个错误块。
func (m *Provider) WithStreamError(e *llm.Error) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErr = e
	return m
}

// WithToolCalls 设置响应中的工具调用。
func (m *Provider) WithToolCalls(toolCalls ...llm.ToolCall) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls = toolCalls
	return m
}

// WithTokenUsage 设置 Token 使用量。
func (m *Provider) WithTokenUsage(prompt, completion int) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应前的模拟延迟。
func (m *Provider) WithDelay(d time.Duration) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 n 次调用之后开始失败。
func (m *Provider) WithFailAfter(n int) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithUnhealthy 让 HealthCheck 报告不健康。
func (m *Provider) WithUnhealthy() *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = false
	return m
}

// WithCompletionFunc 设置自定义 Completion 实现。
func (m *Provider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// WithStreamFunc 设置自定义 Stream 实现。
func (m *Provider) WithStreamFunc(fn func(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error)) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFunc = fn
	return m
}

// --- llm.Provider 接口实现 ---

func (m *Provider) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

func (m *Provider) SupportsNativeFunctionCalling() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nativeTools
}

// BaseURL 实现端点上报，模型据此生成缓存 key。
func (m *Provider) BaseURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseURL
}

func (m *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.healthy {
		return &llm.HealthStatus{Healthy: false, ErrorRate: 1}, nil
	}
	return &llm.HealthStatus{Healthy: true, Latency: 10 * time.Millisecond}, nil
}

// Completion 返回配置好的响应。延迟在锁外模拟，支持 ctx 取消。
func (m *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	delay := m.delay
	failAfter := m.failAfter
	presetErr := m.err
	fn := m.completionFunc
	response := m.response
	toolCalls := m.toolCalls
	prompt, completion := m.promptTokens, m.completionTokens
	name := m.name
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			m.record(Call{Request: req, Error: ctx.Err()})
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if failAfter > 0 && count > failAfter {
		err := errors.New("mock provider: failing after configured call count")
		m.record(Call{Request: req, Error: err})
		return nil, err
	}

	if presetErr != nil {
		m.record(Call{Request: req, Error: presetErr})
		return nil, presetErr
	}

	if fn != nil {
		resp, err := fn(ctx, req)
		m.record(Call{Request: req, Response: resp, Error: err})
		return resp, err
	}

	resp := &llm.ChatResponse{
		ID:       "mock-response-id",
		Provider: name,
		Model:    req.Model,
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message: llm.Message{
					Role:      llm.RoleAssistant,
					Content:   response,
					ToolCalls: toolCalls,
				},
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		CreatedAt: time.Now(),
	}
	if len(toolCalls) > 0 {
		resp.Choices[0].FinishReason = "tool_calls"
	}

	m.record(Call{Request: req, Response: resp})
	return resp, nil
}

// Stream 把配置好的块依次写入通道；未配置块时退化为单块完整响应。
func (m *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	m.mu.Lock()
	m.callCount++
	presetErr := m.err
	fn := m.streamFunc
	chunks := m.streamChunks
	streamErr := m.streamErr
	response := m.response
	name := m.name
	m.mu.Unlock()

	if presetErr != nil {
		return nil, presetErr
	}
	if fn != nil {
		return fn(ctx, req)
	}

	if len(chunks) == 0 {
		chunks = []string{response}
	}

	ch := make(chan llm.StreamChunk, len(chunks)+1)
	go func() {
		defer close(ch)
		for i, chunk := range chunks {
			sc := llm.StreamChunk{
				ID:       "mock-chunk-id",
				Provider: name,
				Model:    req.Model,
				Index:    i,
				Delta:    llm.Message{Role: llm.RoleAssistant, Content: chunk},
			}
			if i == len(chunks)-1 && streamErr == nil {
				sc.FinishReason = "stop"
			}
			select {
			case <-ctx.Done():
				return
			case ch <- sc:
			}
		}
		if streamErr != nil {
			select {
			case <-ctx.Done():
			case ch <- llm.StreamChunk{Provider: name, Model: req.Model, Err: streamErr}:
			}
		}
	}()

	return ch, nil
}

// --- 查询方法 ---

func (m *Provider) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls 返回所有调用记录的副本。
func (m *Provider) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call{}, m.calls...)
}

// CallCount 返回 Completion 与 Stream 的累计调用次数。
func (m *Provider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// LastCall 返回最后一次调用记录，无调用时返回 nil。
func (m *Provider) LastCall() *Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// --- 预设工厂 ---

// NewSuccessProvider 创建总是返回 response 的提供商。
func NewSuccessProvider(response string) *Provider {
	return NewProvider().WithResponse(response)
}

// NewErrorProvider 创建总是失败的提供商。
func NewErrorProvider(err error) *Provider {
	return NewProvider().WithError(err)
}

// NewStreamProvider 创建按块流式输出的提供商。
func NewStreamProvider(chunks ...string) *Provider {
	return NewProvider().WithStreamChunks(chunks...)
}

// NewFlakeyProvider 创建前 failAfter 次成功、之后一直失败的提供商。
func NewFlakeyProvider(failAfter int, response string) *Provider {
	return NewProvider().WithResponse(response).WithFailAfter(failAfter)
}
