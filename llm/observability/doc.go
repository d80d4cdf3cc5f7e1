// Copyright 2026 ModelFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
包 observability 提供 LLM 调用的可观测性能力：OpenTelemetry 指标采集
与请求级追踪，以及按模型价格表的成本核算。

# 核心类型

  - Metrics：基于 OpenTelemetry Meter 的指标收集器，提供请求计数、
    Token 计数、错误计数、缓存命中/未命中、延迟直方图、成本直方图
    与活跃请求 Gauge。
  - CostCalculator：成本计算器，内置 DeepSeek 与 Goodfire 托管模型
    的价格表，支持运行期覆盖。
  - CostTracker：会话级成本追踪器，汇总多次请求的 Token 与费用。

# 使用

Metrics 由 llm.Model 通过 WithMetrics 注入，StartRequest/EndRequest
包裹每一次补全调用；未注入时 Model 不产生任何观测开销。指标经全局
MeterProvider 导出，由 internal/telemetry 负责接入 OTLP 后端。
*/
package observability
