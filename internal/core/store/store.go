// Package store 维护引擎使用的最新价格表快照。
// 写入方整表替换，读取方拿到的永远是完整快照。
package store

import (
	"sync/atomic"

	"crypto-price-overlay/internal/core/model"
)

// snapshot 价格表及其采集时间
type snapshot struct {
	table       model.PriceTable
	fetchedAtMs int64
}

// PriceStore 最新价格表缓存
// 通过原子指针整表替换；返回的价格表应视为只读。
type PriceStore struct {
	cur     atomic.Pointer[snapshot]
	updates atomic.Int64
}

// New 创建空的价格缓存
func New() *PriceStore {
	return &PriceStore{}
}

// Replace 用新价格表替换当前快照
// 参数 table: 新价格表，空表不会覆盖已有快照
// 参数 fetchedAtMs: 采集时间（毫秒）
// 返回: 是否发生替换
func (s *PriceStore) Replace(table model.PriceTable, fetchedAtMs int64) bool {
	if len(table) == 0 {
		return false
	}
	s.cur.Store(&snapshot{table: table, fetchedAtMs: fetchedAtMs})
	s.updates.Add(1)
	return true
}

// Table 获取当前价格表；尚无数据时返回 nil
func (s *PriceStore) Table() model.PriceTable {
	snap := s.cur.Load()
	if snap == nil {
		return nil
	}
	return snap.table
}

// FetchedAtMs 当前快照的采集时间；尚无数据时返回 0
func (s *PriceStore) FetchedAtMs() int64 {
	snap := s.cur.Load()
	if snap == nil {
		return 0
	}
	return snap.fetchedAtMs
}

// Updates 累计替换次数
func (s *PriceStore) Updates() int64 {
	return s.updates.Load()
}
