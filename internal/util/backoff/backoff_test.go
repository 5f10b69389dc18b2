// Package backoff 退避算法测试
package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBackoff_Bounds 退避时间单调不减且不超过 max（无抖动）
func TestBackoff_Bounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("退避时间单调不减且受 max 约束", prop.ForAll(
		func(baseMs int, maxMs int) bool {
			base := time.Duration(baseMs) * time.Millisecond
			max := time.Duration(maxMs) * time.Millisecond
			b := New(base, max, 0)

			prev := time.Duration(0)
			for i := 0; i < 40; i++ {
				delay := b.Next()
				if delay > max || delay < prev {
					return false
				}
				prev = delay
			}
			return prev == max
		},
		gen.IntRange(100, 2000),
		gen.IntRange(5000, 60000),
	))

	properties.Property("抖动在 ±jitter 范围内", prop.ForAll(
		func(jitterPercent int) bool {
			jitter := float64(jitterPercent) / 100.0
			b := New(time.Second, 30*time.Second, jitter)
			delay := b.Next()
			lo := float64(time.Second) * (1 - jitter)
			hi := float64(time.Second) * (1 + jitter)
			return float64(delay) >= lo && float64(delay) <= hi
		},
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

func TestBackoff_SpecificValues(t *testing.T) {
	b := New(time.Second, 30*time.Second, 0)

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("attempt %d: got %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Fatalf("Reset 后 attempt=%d, want 0", b.Attempt())
	}
	if got := b.Next(); got != time.Second {
		t.Fatalf("Reset 后 delay=%v, want 1s", got)
	}
}

func TestBackoff_WaitCancelled(t *testing.T) {
	b := New(time.Hour, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err == nil {
		t.Fatalf("ctx 已取消，Wait 应返回错误")
	}
}
