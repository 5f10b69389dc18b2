// Package latency 维护滚动窗口内的耗时分位数统计。
// 用于记录行情拉取等外部请求的耗时。
package latency

import (
	"sort"
	"sync"
	"time"

	"crypto-price-overlay/internal/util/timeutil"
)

// Stats 耗时统计快照（滚动窗口）
// 单位：毫秒。
type Stats struct {
	// Name 统计项名称
	Name string `json:"name"`
	// Count 样本总数（累计）
	Count int64 `json:"count"`
	// P50Ms P50 耗时
	P50Ms float64 `json:"p50_ms"`
	// P90Ms P90 耗时
	P90Ms float64 `json:"p90_ms"`
	// P99Ms P99 耗时
	P99Ms float64 `json:"p99_ms"`
	// MaxMs 窗口内最大耗时
	MaxMs float64 `json:"max_ms"`
}

type rollingWindow struct {
	size  int
	buf   []int64
	pos   int
	count int64
	full  bool

	mu sync.Mutex
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{size: size, buf: make([]int64, 0, size)}
}

func (w *rollingWindow) add(v int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	if w.size <= 0 {
		return
	}

	if !w.full {
		w.buf = append(w.buf, v)
		if len(w.buf) == w.size {
			w.full = true
			w.pos = 0
		}
		return
	}

	w.buf[w.pos] = v
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
	}
}

// quantiles 计算窗口内的分位数；窗口为空时全部返回 0
func (w *rollingWindow) quantiles(qs ...float64) (count int64, values []int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	count = w.count
	values = make([]int64, len(qs))
	if len(w.buf) == 0 {
		return count, values
	}

	sorted := make([]int64, len(w.buf))
	copy(sorted, w.buf)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	for i, q := range qs {
		switch {
		case q <= 0:
			values[i] = sorted[0]
		case q >= 1:
			values[i] = sorted[n-1]
		default:
			values[i] = sorted[int(float64(n-1)*q)]
		}
	}
	return count, values
}

// Tracker 单项耗时追踪器，并发安全
type Tracker struct {
	name   string
	window *rollingWindow
}

// NewTracker 创建耗时追踪器
// 参数 name: 统计项名称
// 参数 windowSize: 滚动窗口大小，用于 P50/P90/P99
func NewTracker(name string, windowSize int) *Tracker {
	return &Tracker{name: name, window: newRollingWindow(windowSize)}
}

// Add 记录一次耗时；负数按 0 记录
func (t *Tracker) Add(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.window.add(int64(d))
}

// Since 记录从 startNs（纳秒时间戳）到现在的耗时
func (t *Tracker) Since(startNs int64) {
	t.Add(time.Duration(timeutil.NowNano() - startNs))
}

// Stats 获取统计快照
func (t *Tracker) Stats() Stats {
	count, qs := t.window.quantiles(0.50, 0.90, 0.99, 1)
	return Stats{
		Name:  t.name,
		Count: count,
		P50Ms: float64(qs[0]) / 1_000_000.0,
		P90Ms: float64(qs[1]) / 1_000_000.0,
		P99Ms: float64(qs[2]) / 1_000_000.0,
		MaxMs: float64(qs[3]) / 1_000_000.0,
	}
}
