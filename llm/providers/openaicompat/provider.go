// =============================================================================
// ModelFlow OpenAI-Compatible Provider Base
// =============================================================================
// Shared implementation for all OpenAI-compatible LLM providers.
// Providers like DeepSeek and Goodfire embed this and only override what
// differs (Name, BaseURL, default model, headers, request hook).
// =============================================================================

package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/modelflow/internal/tlsutil"
	"github.com/BaSui01/modelflow/llm"
	"github.com/BaSui01/modelflow/llm/middleware"
	"github.com/BaSui01/modelflow/llm/providers"
	"go.uber.org/zap"
)

// Config holds the configuration for an OpenAI-compatible provider.
//
// APIKey and BaseURL are expected to be fully resolved by the caller
// (explicit argument > environment variable > built-in default); this
// package never reads the environment itself.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "deepseek").
	ProviderName string

	// APIKey is the authentication key for the provider's API.
	APIKey string

	// BaseURL is the base URL for the provider's API, typically including
	// the version segment (e.g., "https://api.deepseek.com/v1").
	BaseURL string

	// DefaultModel is the model to use when none is specified in the request.
	DefaultModel string

	// FallbackModel is used when both request and DefaultModel are empty.
	FallbackModel string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path, appended to
	// BaseURL. Defaults to "/chat/completions".
	EndpointPath string

	// ModelsEndpoint is the models list endpoint path. Defaults to "/models".
	ModelsEndpoint string

	// BuildHeaders is an optional function to set custom headers on each request.
	// If nil, the default "Authorization: Bearer <apiKey>" header is used.
	BuildHeaders func(req *http.Request, apiKey string)

	// RequestHook is an optional function to modify the request body before
	// sending. Use this for provider-specific fields (e.g., DeepSeek's
	// reasoning-mode model selection).
	RequestHook func(req *llm.ChatRequest, body *providers.OpenAICompatRequest)

	// SupportsTools indicates whether this provider supports native function calling.
	// Defaults to true if not set.
	SupportsTools *bool

	// ExtraBody holds provider-level pass-through fields merged into every
	// request body. Request-level ExtraBody and declared wire fields win on
	// key collision.
	ExtraBody map[string]any

	// GenerateDefaults fills unset generation parameters on every request
	// before shaping. Explicit request values always win.
	GenerateDefaults llm.GenerateConfig
}

// Provider is the base implementation for all OpenAI-compatible LLM providers.
// Embed this in your provider struct and override Name() if needed.
type Provider struct {
	Cfg           Config
	Client        *http.Client
	Logger        *zap.Logger
	RewriterChain *middleware.RewriterChain
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rewriters := []middleware.RequestRewriter{middleware.NewEmptyToolsCleaner()}
	if !cfg.GenerateDefaults.IsZero() {
		rewriters = append(rewriters, middleware.NewGenerationDefaults(cfg.GenerateDefaults))
	}
	return &Provider{
		Cfg:           cfg,
		Client:        tlsutil.SecureHTTPClient(timeout),
		Logger:        logger,
		RewriterChain: middleware.NewRewriterChain(rewriters...),
	}
}

// NewGeneric 从通用端点配置构造提供者。与具名服务商不同，
// BaseURL 必填且不经环境变量解析；ProviderName 缺省为 "openai-compatible"。
func NewGeneric(cfg providers.OpenAICompatibleConfig, logger *zap.Logger) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: base_url is required for generic provider %q", cfg.ProviderName)
	}
	name := cfg.ProviderName
	if name == "" {
		name = "openai-compatible"
	}
	return New(Config{
		ProviderName:     name,
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		DefaultModel:     cfg.Model,
		Timeout:          cfg.Timeout,
		EndpointPath:     cfg.EndpointPath,
		ModelsEndpoint:   cfg.ModelsEndpoint,
		SupportsTools:    cfg.SupportsTools,
		ExtraBody:        cfg.ExtraBody,
		GenerateDefaults: cfg.GenerateDefaults,
	}, logger), nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

// BaseURL returns the resolved endpoint base, used for cache keys and
// diagnostics.
func (p *Provider) BaseURL() string { return p.Cfg.BaseURL }

// SupportsNativeFunctionCalling returns whether this provider supports tool calling.
func (p *Provider) SupportsNativeFunctionCalling() bool {
	if p.Cfg.SupportsTools != nil {
		return *p.Cfg.SupportsTools
	}
	return true
}

// Traits returns the architecture traits for this provider's default model.
// Providers with a fixed traits table entry always get that entry.
func (p *Provider) Traits() providers.ArchTraits {
	return providers.TraitsFor(p.Cfg.ProviderName, p.Cfg.DefaultModel)
}

// IsO1 reports whether the default model belongs to the o1 family.
func (p *Provider) IsO1() bool { return p.Traits().O1 }

// IsO1Full reports whether the default model is a full o1 (non-mini, non-preview).
func (p *Provider) IsO1Full() bool { return p.Traits().O1Full }

// IsO1Mini reports whether the default model is an o1-mini variant.
func (p *Provider) IsO1Mini() bool { return p.Traits().O1Mini }

// IsO1Preview reports whether the default model is an o1-preview variant.
func (p *Provider) IsO1Preview() bool { return p.Traits().O1Preview }

// SetBuildHeaders sets custom header builder for the provider.
func (p *Provider) SetBuildHeaders(fn func(req *http.Request, apiKey string)) {
	p.Cfg.BuildHeaders = fn
}

// buildHeaders applies headers to the HTTP request.
func (p *Provider) buildHeaders(req *http.Request, apiKey string) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, apiKey)
		return
	}
	// Default: Bearer token auth
	providers.BearerTokenHeaders(req, apiKey)
}

// resolveAPIKey returns the API key, checking for context override first.
func (p *Provider) resolveAPIKey(ctx context.Context) string {
	if c, ok := llm.CredentialOverrideFromContext(ctx); ok {
		if strings.TrimSpace(c.APIKey) != "" {
			return strings.TrimSpace(c.APIKey)
		}
	}
	return p.Cfg.APIKey
}

// endpoint builds the full URL for a given path.
func (p *Provider) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.Cfg.BaseURL, "/"), path)
}

// buildBody assembles the wire request, shaping it per the model's
// architecture traits: o1-family models take max_completion_tokens and no
// sampling parameters.
func (p *Provider) buildBody(req *llm.ChatRequest, model string, stream bool) providers.OpenAICompatRequest {
	body := providers.OpenAICompatRequest{
		Model:            model,
		Messages:         providers.ConvertMessagesToOpenAI(req.Messages),
		Tools:            providers.ConvertToolsToOpenAI(req.Tools),
		Stop:             req.Stop,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Seed:             req.Seed,
		N:                req.N,
		Stream:           stream,
	}
	if req.ToolChoice != "" {
		body.ToolChoice = req.ToolChoice
	}

	traits := providers.TraitsFor(p.Cfg.ProviderName, model)
	if traits.O1 {
		body.MaxCompletionTokens = req.MaxTokens
	} else {
		body.MaxTokens = req.MaxTokens
		body.Temperature = req.Temperature
		body.TopP = req.TopP
	}
	return body
}

// marshalBody serializes the wire request and merges pass-through fields.
// Declared wire fields win over request-level extras, which win over
// provider-level extras.
func (p *Provider) marshalBody(body providers.OpenAICompatRequest, extra map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if payload, err = providers.MergeExtraBody(payload, extra); err != nil {
		return nil, err
	}
	return providers.MergeExtraBody(payload, p.Cfg.ExtraBody)
}

// postChat sends the serialized payload to the chat completions endpoint.
func (p *Provider) postChat(ctx context.Context, apiKey string, payload []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, apiKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	return resp, nil
}

// HealthCheck verifies the provider is reachable.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.Cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, p.Cfg.APIKey)

	resp, err := p.Client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("%s health check failed: status=%d msg=%s", p.Cfg.ProviderName, resp.StatusCode, msg)
	}

	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// ListModels returns the list of available models.
func (p *Provider) ListModels(ctx context.Context) ([]providers.ModelInfo, error) {
	return providers.ListModelsOpenAICompat(
		ctx, p.Client, p.Cfg.BaseURL, p.Cfg.APIKey, p.Cfg.ProviderName,
		p.Cfg.ModelsEndpoint, p.buildHeaders,
	)
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	rewrittenReq, err := p.RewriterChain.Execute(ctx, req)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("request rewrite failed: %v", err),
			HTTPStatus: http.StatusBadRequest,
			Provider:   p.Name(),
		}
	}
	req = rewrittenReq

	apiKey := p.resolveAPIKey(ctx)
	model := providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel)

	body := p.buildBody(req, model, false)
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, &body)
	}

	payload, err := p.marshalBody(body, req.ExtraBody)
	if err != nil {
		return nil, err
	}

	resp, err := p.postChat(ctx, apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var oaResp providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}

	result := providers.ToLLMChatResponse(oaResp, p.Name())
	if oaResp.Created != 0 {
		result.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	return result, nil
}

// Stream performs a streaming chat completion via SSE.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	rewrittenReq, err := p.RewriterChain.Execute(ctx, req)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrInvalidRequest,
			Message:    fmt.Sprintf("request rewrite failed: %v", err),
			HTTPStatus: http.StatusBadRequest,
			Provider:   p.Name(),
		}
	}
	req = rewrittenReq

	apiKey := p.resolveAPIKey(ctx)
	model := providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel)

	body := p.buildBody(req, model, true)
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, &body)
	}

	payload, err := p.marshalBody(body, req.ExtraBody)
	if err != nil {
		return nil, err
	}

	resp, err := p.postChat(ctx, apiKey, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	return StreamSSE(ctx, resp.Body, p.Name()), nil
}

// StreamSSE parses an SSE stream from an OpenAI-compatible API and returns a
// channel of StreamChunks. This is the shared SSE parsing logic used by all
// OpenAI-compatible providers. The caller is responsible for ensuring the
// response status is OK before calling this.
func StreamSSE(ctx context.Context, body io.ReadCloser, providerName string) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk)
	go func() {
		defer body.Close()
		defer close(ch)
		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					select {
					case <-ctx.Done():
						return
					case ch <- llm.StreamChunk{Err: &llm.Error{
						Code: llm.ErrUpstreamError, Message: err.Error(),
						HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: providerName,
					}}:
					}
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var oaResp providers.OpenAICompatResponse
			if err := json.Unmarshal([]byte(data), &oaResp); err != nil {
				select {
				case <-ctx.Done():
					return
				case ch <- llm.StreamChunk{Err: &llm.Error{
					Code: llm.ErrUpstreamError, Message: err.Error(),
					HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: providerName,
				}}:
				}
				return
			}

			for _, choice := range oaResp.Choices {
				chunk := llm.StreamChunk{
					ID:           oaResp.ID,
					Provider:     providerName,
					Model:        oaResp.Model,
					Index:        choice.Index,
					FinishReason: choice.FinishReason,
					Delta: llm.Message{
						Role: llm.RoleAssistant,
					},
				}
				if choice.Delta != nil {
					chunk.Delta.Content = choice.Delta.Content
					if len(choice.Delta.ToolCalls) > 0 {
						chunk.Delta.ToolCalls = make([]llm.ToolCall, 0, len(choice.Delta.ToolCalls))
						for _, tc := range choice.Delta.ToolCalls {
							chunk.Delta.ToolCalls = append(chunk.Delta.ToolCalls, llm.ToolCall{
								ID:        tc.ID,
								Name:      tc.Function.Name,
								Arguments: tc.Function.Arguments,
							})
						}
					}
				}
				if oaResp.Usage != nil {
					chunk.Usage = &llm.ChatUsage{
						PromptTokens:     oaResp.Usage.PromptTokens,
						CompletionTokens: oaResp.Usage.CompletionTokens,
						TotalTokens:      oaResp.Usage.TotalTokens,
					}
				}
				select {
				case <-ctx.Done():
					return
				case ch <- chunk:
				}
			}
		}
	}()
	return ch
}
