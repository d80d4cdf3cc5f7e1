// Copyright 2026 ModelFlow Authors. All rights reserved.

/*
# 概述

包 goodfire 提供 Goodfire 推理服务的 Provider 适配实现。Goodfire
暴露 OpenAI 兼容的推理端点，本包嵌入 openaicompat.Provider 复用通用
逻辑，仅定制端点、凭据解析与模型白名单校验。

# 配置解析

  - BaseURL：显式配置 > GOODFIRE_BASE_URL 环境变量 >
    https://api.goodfire.ai/api/inference/v1
  - APIKey：显式配置 > GOODFIRE_API_KEY 环境变量；两者均缺失时
    New 返回 llm.PrerequisiteError，不会构造任何网络客户端

# 模型白名单

Goodfire 仅托管少量开源权重模型，构造时校验配置模型必须位于
SupportedModels 中；未配置时使用 DefaultModel。

# 架构特征

固定为非 o1（IsO1 等四项查询恒为 false）。
*/
package goodfire
