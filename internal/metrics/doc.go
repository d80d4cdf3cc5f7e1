// Copyright 2026 ModelFlow Authors. All rights reserved.

/*
包 metrics 提供基于 Prometheus 的模型调用指标采集能力。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
同一进程内 namespace 不可重复。

# 核心类型

  - Collector：实现 llm.MetricsCollector，经 Model 的指标中间件
    记录每次调用；另提供响应缓存命中计数接口。

# 主要指标

  - llm_requests_total：请求总数，按 model/status 分组。
  - llm_request_duration_seconds：请求耗时直方图，按 model 分组。
  - llm_tokens_used_total：Token 用量，按 model 与 prompt/completion 分组。
  - cache_hits_total / cache_misses_total：响应缓存命中与未命中，
    按 cache_type 分组。
*/
package metrics
