package providers

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestResolveBaseURL(t *testing.T) {
	const envVar = "MODELFLOW_TEST_BASE_URL"

	tests := []struct {
		name     string
		explicit string
		envVal   string
		fallback string
		want     string
	}{
		{
			name:     "显式参数优先",
			explicit: "https://explicit.example.com/v1",
			envVal:   "https://env.example.com/v1",
			fallback: "https://default.example.com/v1",
			want:     "https://explicit.example.com/v1",
		},
		{
			name:     "环境变量次之",
			explicit: "",
			envVal:   "https://env.example.com/v1",
			fallback: "https://default.example.com/v1",
			want:     "https://env.example.com/v1",
		},
		{
			name:     "兜底默认值",
			explicit: "",
			envVal:   "",
			fallback: "https://default.example.com/v1",
			want:     "https://default.example.com/v1",
		},
		{
			name:     "显式值原样使用",
			explicit: "http://localhost:8080//v1/",
			envVal:   "https://env.example.com/v1",
			fallback: "https://default.example.com/v1",
			want:     "http://localhost:8080//v1/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envVar, tt.envVal)
			assert.Equal(t, tt.want, ResolveBaseURL(tt.explicit, envVar, tt.fallback))
		})
	}
}

func TestResolveBaseURL_EmptyEnvVarName(t *testing.T) {
	assert.Equal(t, "fallback", ResolveBaseURL("", "", "fallback"))
	assert.Equal(t, "explicit", ResolveBaseURL("explicit", "", "fallback"))
}

// 任意组合下优先级恒为 显式 > 环境变量 > 默认值，且取值原样返回。
func TestResolveBaseURL_PrecedenceProperty(t *testing.T) {
	const envVar = "MODELFLOW_TEST_BASE_URL_PROP"
	t.Setenv(envVar, "") // 注册测试结束后的恢复

	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.StringMatching(`[a-z0-9./:-]{1,24}`)
		maybe := rapid.OneOf(rapid.Just(""), value)

		explicit := maybe.Draw(rt, "explicit")
		envVal := maybe.Draw(rt, "env")
		fallback := value.Draw(rt, "fallback")

		os.Setenv(envVar, envVal)

		got := ResolveBaseURL(explicit, envVar, fallback)
		switch {
		case explicit != "":
			if got != explicit {
				rt.Fatalf("explicit=%q env=%q fallback=%q: got %q, want explicit", explicit, envVal, fallback, got)
			}
		case envVal != "":
			if got != envVal {
				rt.Fatalf("explicit empty env=%q fallback=%q: got %q, want env", envVal, fallback, got)
			}
		default:
			if got != fallback {
				rt.Fatalf("both empty fallback=%q: got %q, want fallback", fallback, got)
			}
		}
	})
}

func TestResolveAPIKey(t *testing.T) {
	const (
		envA = "MODELFLOW_TEST_KEY_A"
		envB = "MODELFLOW_TEST_KEY_B"
	)

	t.Run("显式密钥优先", func(t *testing.T) {
		t.Setenv(envA, "from-env")
		key, ok := ResolveAPIKey("explicit", envA)
		assert.True(t, ok)
		assert.Equal(t, "explicit", key)
	})

	t.Run("环境变量次之", func(t *testing.T) {
		t.Setenv(envA, "from-env")
		key, ok := ResolveAPIKey("", envA)
		assert.True(t, ok)
		assert.Equal(t, "from-env", key)
	})

	t.Run("多个环境变量按顺序取第一个非空", func(t *testing.T) {
		t.Setenv(envA, "")
		t.Setenv(envB, "from-b")
		key, ok := ResolveAPIKey("", envA, envB)
		assert.True(t, ok)
		assert.Equal(t, "from-b", key)

		t.Setenv(envA, "from-a")
		key, ok = ResolveAPIKey("", envA, envB)
		assert.True(t, ok)
		assert.Equal(t, "from-a", key)
	})

	t.Run("全部缺失返回 false", func(t *testing.T) {
		t.Setenv(envA, "")
		t.Setenv(envB, "")
		key, ok := ResolveAPIKey("", envA, envB)
		assert.False(t, ok)
		assert.Empty(t, key)
	})

	t.Run("无环境变量候选时仅看显式参数", func(t *testing.T) {
		key, ok := ResolveAPIKey("only")
		assert.True(t, ok)
		assert.Equal(t, "only", key)

		_, ok = ResolveAPIKey("")
		assert.False(t, ok)
	})
}
