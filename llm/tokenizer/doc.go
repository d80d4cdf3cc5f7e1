// Package tokenizer 提供统一的 Token 计数接口：tiktoken 近似计数用于
// DeepSeek 系列模型，字符估算器用于 Llama 等无本地词表的模型，
// 服务于请求的 Token 预算管理。
package tokenizer
