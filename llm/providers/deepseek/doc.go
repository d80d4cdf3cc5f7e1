// Copyright 2026 ModelFlow Authors. All rights reserved.

/*
# 概述

包 deepseek 提供 DeepSeek 模型的 Provider 适配实现。DeepSeek 使用
OpenAI 兼容的 API 格式，因此本包通过嵌入 openaicompat.Provider 复用
HTTP 处理、SSE 解析、消息转换等通用逻辑，仅定制差异部分。

# 配置解析

构造时一次性完成解析，随后才构造唯一的底层客户端：

  - BaseURL：显式配置 > DEEPSEEK_BASE_URL 环境变量 >
    https://api.deepseek.com/v1（显式值原样使用，不做规范化）
  - APIKey：显式配置 > DEEPSEEK_API_KEY 环境变量；两者均缺失时
    New 返回 llm.PrerequisiteError，此时不会创建任何网络客户端

# 定制行为

  - 默认兜底模型: deepseek-chat
  - Endpoint: /chat/completions（相对 /v1 后缀的 BaseURL）
  - RequestHook: 当 Metadata["reasoning_mode"] 为 "thinking" 或
    "extended" 且请求未显式指定模型时，自动切换为 deepseek-reasoner
  - 架构特征: 固定为非 o1（IsO1 等四项查询恒为 false）

# 支持能力

  - Chat Completion（同步，委托 openaicompat）
  - 流式输出（SSE，委托 openaicompat）
  - 原生 Function Calling / Tool Use
  - 深度推理模式（deepseek-reasoner 自动路由）
  - 健康检查、模型列表（委托 openaicompat）
*/
package deepseek
