package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTelemetry 把全局 Provider 换成可断言的内存实现。
func setupTelemetry(t *testing.T) (*sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})
	return reader, recorder
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestMetrics_EndRequestRecordsCounters(t *testing.T) {
	reader, recorder := setupTelemetry(t)

	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	req := RequestAttrs{Provider: "deepseek", Model: "deepseek-chat", TraceID: "t-1"}

	ctx, span := m.StartRequest(ctx, req)
	m.EndRequest(ctx, span, req, ResponseAttrs{
		Status:           "ok",
		TokensPrompt:     120,
		TokensCompletion: 30,
		Cost:             0.0004,
		Duration:         250 * time.Millisecond,
	})

	requests, ok := collectMetric(t, reader, "llm.request.total")
	if !ok {
		t.Fatal("llm.request.total not collected")
	}
	sum, ok := requests.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("llm.request.total data type = %T", requests.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Errorf("request.total datapoints = %+v, want single point of 1", sum.DataPoints)
	}

	tokens, ok := collectMetric(t, reader, "llm.token.total")
	if !ok {
		t.Fatal("llm.token.total not collected")
	}
	tokenSum := tokens.Data.(metricdata.Sum[int64])
	// prompt / completion / total 三个维度各一个数据点
	if len(tokenSum.DataPoints) != 3 {
		t.Errorf("token.total datapoints = %d, want 3", len(tokenSum.DataPoints))
	}
	var total int64
	for _, dp := range tokenSum.DataPoints {
		total += dp.Value
	}
	// 120+30 被记了 total 与分项两份
	if total != 300 {
		t.Errorf("token.total sum across types = %d, want 300", total)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "llm.completion" {
		t.Errorf("span name = %q, want llm.completion", spans[0].Name())
	}
}

func TestMetrics_ErrorAndCacheCounters(t *testing.T) {
	reader, _ := setupTelemetry(t)

	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	req := RequestAttrs{Provider: "goodfire", Model: "meta-llama/Meta-Llama-3.1-8B-Instruct"}

	ctx, span := m.StartRequest(ctx, req)
	m.EndRequest(ctx, span, req, ResponseAttrs{
		Status:    "error",
		ErrorCode: "rate_limited",
		Duration:  50 * time.Millisecond,
	})
	m.RecordCacheMiss(ctx, req.Provider, req.Model)

	errs, ok := collectMetric(t, reader, "llm.error.total")
	if !ok {
		t.Fatal("llm.error.total not collected")
	}
	if sum := errs.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 1 {
		t.Errorf("error.total = %d, want 1", sum.DataPoints[0].Value)
	}

	misses, ok := collectMetric(t, reader, "llm.cache.miss.total")
	if !ok {
		t.Fatal("llm.cache.miss.total not collected")
	}
	if sum := misses.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 1 {
		t.Errorf("cache.miss.total = %d, want 1", sum.DataPoints[0].Value)
	}

	if _, ok := collectMetric(t, reader, "llm.cache.hit.total"); ok {
		t.Error("cache.hit.total should not be recorded for uncached error")
	}
}

func TestMetrics_RecordToolCall(t *testing.T) {
	_, recorder := setupTelemetry(t)

	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordToolCall(context.Background(), "calculator", 12*time.Millisecond, true)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "llm.tool_call" {
		t.Errorf("span name = %q, want llm.tool_call", spans[0].Name())
	}
}

func TestMetrics_CachedResponseRecordsHit(t *testing.T) {
	reader, _ := setupTelemetry(t)

	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	req := RequestAttrs{Provider: "deepseek", Model: "deepseek-chat"}

	ctx, span := m.StartRequest(ctx, req)
	m.EndRequest(ctx, span, req, ResponseAttrs{
		Status:   "ok",
		Cached:   true,
		Duration: time.Millisecond,
	})

	hits, ok := collectMetric(t, reader, "llm.cache.hit.total")
	if !ok {
		t.Fatal("llm.cache.hit.total not collected")
	}
	if sum := hits.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 1 {
		t.Errorf("cache.hit.total = %d, want 1", sum.DataPoints[0].Value)
	}
}
