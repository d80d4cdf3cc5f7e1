// Copyright 2026 ModelFlow Authors. All rights reserved.

// Package factory 提供 LLM Provider 的集中式工厂：
// 通过名称映射创建 Provider 实例，解析 "provider/model" 形式的模型引用，
// 并对等价配置的重复创建做记忆化。工厂导入各 provider 子包，
// 打破 llm 包与子包之间的循环依赖。
package factory
