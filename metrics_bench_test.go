package goSession

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricNavigateRender)
		}
	})
}

func BenchmarkMetricsIncDisabledParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricNavigateRender)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRefreshLatency, d)
		}
	})
}

var mixedHotMetricIDs = [...]MetricID{
	MetricNavigateRender,
	MetricNavigateRedirect,
	MetricDestinationRemembered,
	MetricAuthCheckCached,
	MetricRefreshSuccess,
	MetricLoginSuccess,
}

func BenchmarkMetricsIncMixedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(mixedHotMetricIDs[idx])
			idx++
			if idx == len(mixedHotMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkClientDecide(b *testing.B) {
	h := newHarness(b, nil)
	if err := h.client.Initialize(context.Background()); err != nil {
		b.Fatalf("initialize: %v", err)
	}
	if _, err := h.client.Login(context.Background(), "ada@example.com", "pw-ada"); err != nil {
		b.Fatalf("login: %v", err)
	}

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.client.Decide(ctx, "/admin/reports"); err != nil {
			b.Fatalf("decide: %v", err)
		}
	}
}
