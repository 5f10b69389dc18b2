// Package latency 耗时追踪器测试
package latency

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crypto-price-overlay/internal/util/timeutil"
)

func TestTracker_SingleSample(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 单个样本时所有分位数等于该样本
	properties.Property("单样本分位数相等", prop.ForAll(
		func(ns int64) bool {
			tr := NewTracker("fetch", 100)
			tr.Add(time.Duration(ns))
			stats := tr.Stats()
			want := float64(ns) / 1_000_000.0
			return stats.Count == 1 &&
				approxEqual(stats.P50Ms, want, 1e-9) &&
				approxEqual(stats.P99Ms, want, 1e-9) &&
				approxEqual(stats.MaxMs, want, 1e-9)
		},
		gen.Int64Range(0, int64(time.Hour)),
	))

	properties.TestingRun(t)
}

func TestTracker_Percentiles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 分位数与排序后下标取值一致，且单调不减
	properties.Property("分位数计算正确", prop.ForAll(
		func(samples []int64) bool {
			tr := NewTracker("fetch", 1000)
			for _, v := range samples {
				tr.Add(time.Duration(v))
			}
			sorted := append([]int64(nil), samples...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

			stats := tr.Stats()
			want50 := float64(sorted[idxQuantile(sorted, 0.50)]) / 1_000_000.0
			want90 := float64(sorted[idxQuantile(sorted, 0.90)]) / 1_000_000.0
			want99 := float64(sorted[idxQuantile(sorted, 0.99)]) / 1_000_000.0
			return approxEqual(stats.P50Ms, want50, 1e-9) &&
				approxEqual(stats.P90Ms, want90, 1e-9) &&
				approxEqual(stats.P99Ms, want99, 1e-9) &&
				stats.P50Ms <= stats.P90Ms && stats.P90Ms <= stats.P99Ms && stats.P99Ms <= stats.MaxMs
		},
		gen.SliceOfN(50, gen.Int64Range(0, int64(10*time.Second))),
	))

	properties.TestingRun(t)
}

func TestTracker_WindowRollover(t *testing.T) {
	tr := NewTracker("fetch", 3)
	for _, ms := range []int64{1000, 1000, 1000, 1, 2, 3} {
		tr.Add(time.Duration(ms) * time.Millisecond)
	}
	stats := tr.Stats()
	if stats.Count != 6 {
		t.Fatalf("Count=%d, want 6", stats.Count)
	}
	if stats.MaxMs != 3 {
		t.Fatalf("MaxMs=%v, want 3（旧样本应被覆盖）", stats.MaxMs)
	}
}

func TestTracker_EmptyAndNegative(t *testing.T) {
	tr := NewTracker("fetch", 10)
	if s := tr.Stats(); s.Count != 0 || s.P50Ms != 0 || s.Name != "fetch" {
		t.Fatalf("空窗口 Stats=%+v", s)
	}
	tr.Add(-time.Second)
	if s := tr.Stats(); s.MaxMs != 0 {
		t.Fatalf("负耗时应按 0 记录, got %+v", s)
	}

	tr.Since(timeutil.NowNano())
	if s := tr.Stats(); s.Count != 2 || s.MaxMs < 0 {
		t.Fatalf("Since 后 Stats=%+v", s)
	}
}

func idxQuantile(sorted []int64, q float64) int {
	n := len(sorted)
	if q <= 0 {
		return 0
	}
	if q >= 1 {
		return n - 1
	}
	return int(float64(n-1) * q)
}

func approxEqual(a, b float64, eps float64) bool {
	return math.Abs(a-b) <= eps
}
