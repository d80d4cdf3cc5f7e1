// Copyright 2026 ModelFlow Authors. All rights reserved.

// Package openaicompat provides a shared base implementation for all
// OpenAI-compatible LLM providers.
//
// Providers like DeepSeek and Goodfire share the same API format (OpenAI
// Chat Completions). Instead of duplicating HTTP handling, SSE parsing,
// message conversion, and error mapping in each provider, they embed
// openaicompat.Provider and only override what differs:
//
//   - Provider name and default model
//   - Base URL (resolved before construction, used verbatim)
//   - Custom headers (if any)
//   - Request hooks for provider-specific fields
//
// Request shaping follows the provider's architecture traits: o1-family
// models get max_completion_tokens and no sampling parameters, everything
// else takes the standard max_tokens/temperature/top_p form. Providers with
// a fixed traits entry (DeepSeek, Goodfire) never trigger o1 shaping.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "deepseek",
//	    APIKey:        apiKey,
//	    BaseURL:       "https://api.deepseek.com/v1",
//	    DefaultModel:  "deepseek-chat",
//	    FallbackModel: "deepseek-chat",
//	    RequestHook: func(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
//	        if req.Metadata["reasoning_mode"] == "thinking" {
//	            body.Model = "deepseek-reasoner"
//	        }
//	    },
//	}, logger)
package openaicompat
