// Copyright 2026 ModelFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license
// that can be found in the LICENSE file.

/*
Package testutil 提供 ModelFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，避免各包重复
实现相似的测试基础设施。断言一律使用 testify，此包只补充 testify
不覆盖的部分。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 等待工具: WaitForChannel，带超时的通道接收
  - 数据工具: MustParseJSON / CopyMessages，简化测试数据构造
  - 流式辅助: CollectStreamChunks / CollectStreamContent /
    SendChunksToChannel，用于 LLM 流式响应测试

# 子包

  - testutil/mocks: mocks.Provider（llm.Provider 的模拟实现），
    支持 Builder 模式、延迟与错误注入
  - testutil/fixtures: 测试数据工厂，提供预置 StreamChunk、
    ToolSchema、对话历史等样例

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewProvider().WithResponse("hello")
	resp, err := provider.Completion(ctx, req)
	require.NoError(t, err)
*/
package testutil
