// Package timeutil 提供价格快照的时间戳。
// 快照的 fetched_at 由启动时刻加单调时钟增量得出，系统校时不会让快照时间倒退。
package timeutil

import (
	"time"
)

var (
	// startWall 进程启动时刻，附带单调读数
	startWall = time.Now()
	// startUnixNs 启动时刻的 Unix 纳秒
	startUnixNs = startWall.UnixNano()
)

// NowNano 快照时间戳（Unix 纳秒），同一进程内单调不减
func NowNano() int64 {
	return startUnixNs + time.Since(startWall).Nanoseconds()
}

// NowMs 快照时间戳（Unix 毫秒），写入 fetched_at_ms
func NowMs() int64 {
	return NowNano() / int64(time.Millisecond)
}

// MsToTime 把快照中的 fetched_at_ms 还原为 time.Time，用于日志
func MsToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// SinceMs 快照距今的毫秒数，用于判断价格表的陈旧程度
func SinceMs(startMs int64) int64 {
	return NowMs() - startMs
}
