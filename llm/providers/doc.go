// Copyright 2026 ModelFlow Authors. All rights reserved.

// Package providers 提供各 LLM 服务商适配器的公共基础设施。
//
// 该包包含：
//   - OpenAI 兼容线格式类型与转换函数（OpenAICompatRequest 等）
//   - HTTP 错误到 llm.Error 的统一映射（MapHTTPError）
//   - 配置解析助手：显式参数 > 环境变量 > 内置默认值（ResolveBaseURL、ResolveAPIKey）
//   - 模型架构特征表（ArchTraits、TraitsFor），决定请求整形方式
//   - 重试包装器（RetryableProvider），对可重试错误做指数退避加抖动
//
// 各服务商适配器位于子包中（openaicompat、deepseek、goodfire），
// 均遵循同一解析流程：先解析配置，缺少凭据立即返回
// llm.PrerequisiteError，随后才构造一次底层客户端。
package providers
