// Copyright 2026 ModelFlow Authors. All rights reserved.

/*
包 middleware 提供请求改写器链，用于在请求发送到上游模型服务之前
进行参数清理与默认值填充。

# 核心接口

  - RequestRewriter：请求改写器接口，包含 Rewrite 与 Name 方法。
  - RewriterChain：改写器链，按顺序执行多个 RequestRewriter，
    任何一个失败则中断并返回错误。

# 内置改写器

  - EmptyToolsCleaner：当请求的 Tools 为空时清除 ToolChoice，
    避免上游 API 返回 400。
  - GenerationDefaults：将一份 llm.GenerateConfig 中的默认生成参数
    填充到请求的零值字段上，显式请求参数始终优先。

响应后处理（日志、超时、指标、panic 恢复）由 llm 包的 Handler
中间件链承担，本包只负责请求前的改写。
*/
package middleware
