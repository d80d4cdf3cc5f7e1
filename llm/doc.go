// Copyright 2026 ModelFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license
// that can be found in the LICENSE file.

/*
包 llm 提供统一的大语言模型接入层，包括 Provider 抽象、配置解析、
缓存、重试、密钥池与可观测能力。

# 概述

本包的目标是屏蔽不同 OpenAI 兼容服务商在鉴权、端点、错误语义和
流式协议上的差异：调用方只面对一致的请求与响应模型，服务商侧的
差异（Base URL、凭据来源、模型架构特性）在构造期一次性解析完成。

典型场景：

  - 单一 Provider 的快速接入与调用。
  - 通过环境变量解析凭据与端点，缺失时在构造期立即失败。
  - 流式输出与函数调用。
  - 缓存、重试、限流与用量观测。

# Provider 抽象

核心接口是 [Provider]，包含补全、流式输出、健康检查与能力声明。
各服务商适配器（见 llm/providers 子包）在构造期解析自身配置后
委托给通用 OpenAI 兼容客户端，运行期行为完全一致。

# 配置解析

适配器构造遵循同一条解析链：显式参数优先，其次环境变量，最后内置
默认值。凭据缺失属于前置条件错误（[PrerequisiteError]），在任何
网络客户端被构造之前返回，不会产生半初始化的 Provider。

# 核心类型

  - [Provider]：LLM 提供者接口，提供 Completion / Stream / HealthCheck /
    Name / SupportsNativeFunctionCalling
  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [GenerateConfig]：生成参数集合，支持合并与应用到请求
  - [StreamChunk]：流式输出分片
  - [PrerequisiteError]：构造期前置条件错误（缺失凭据等）
  - [CredentialOverride]：单次请求凭据覆盖，通过 context 传递
  - [Model]：绑定默认生成配置与运行期能力（并发、重试、缓存）的模型句柄

# 运维能力

  - [APIKeyPool]：API 密钥池，支持轮询、加权、优先级与最少使用策略
  - [MultiLevelCache]：本地 LRU 与 Redis 协同的响应缓存
  - [RateLimitedProvider]：令牌桶限流包装器

# 相关子包

  - llm/providers：服务商适配实现与共享管线。
  - llm/providers/openaicompat：通用 OpenAI 兼容客户端。
  - llm/providers/deepseek：DeepSeek 适配器。
  - llm/providers/goodfire：Goodfire 适配器。
  - llm/factory：按名称构造 Provider 与模型引用解析。
  - llm/middleware：请求改写链。
  - llm/observability：指标与追踪。
  - llm/tokenizer：Token 计数与估算。
*/
package llm
