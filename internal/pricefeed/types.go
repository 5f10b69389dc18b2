// Package pricefeed 负责获取比特币行情价格表并通过 websocket 向覆盖层广播。
//
// 行情接口返回 {CODE: {last, buy, sell, 15m, symbol}} 结构；
// 广播消息为 Snapshot，连接建立时与每次成功刷新后推送。
package pricefeed

import (
	"errors"

	"crypto-price-overlay/internal/core/model"
)

// ErrUnavailable 价格暂不可用（网络失败、非 200、解析失败或价格表为空）
var ErrUnavailable = errors.New("价格数据不可用")

// MessageTypePrices 价格快照消息类型
const MessageTypePrices = "prices"

// TickerEntry 行情接口单币种条目
type TickerEntry struct {
	// Delayed 15 分钟延迟价格
	Delayed float64 `json:"15m"`
	// Last 最新成交价
	Last float64 `json:"last"`
	// Buy 买入价
	Buy float64 `json:"buy"`
	// Sell 卖出价
	Sell float64 `json:"sell"`
	// Symbol 币种符号
	Symbol string `json:"symbol"`
}

// TickerResponse 行情接口响应（key 为币种代码）
type TickerResponse map[string]TickerEntry

// Snapshot 价格快照广播消息
type Snapshot struct {
	// Type 消息类型，固定为 "prices"
	Type string `json:"type"`
	// Prices 价格表
	Prices model.PriceTable `json:"prices"`
	// Currencies 价格表中的币种代码（排序后）
	Currencies []string `json:"currencies"`
	// FetchedAtMs 获取时间（毫秒）
	FetchedAtMs int64 `json:"fetched_at_ms"`
}

// NewSnapshot 由价格表构造快照
func NewSnapshot(table model.PriceTable, fetchedAtMs int64) Snapshot {
	return Snapshot{
		Type:        MessageTypePrices,
		Prices:      table,
		Currencies:  table.Currencies(),
		FetchedAtMs: fetchedAtMs,
	}
}

// Normalize 将行情响应转换为价格表
// RUB 的符号置空（接口返回的符号在页面上显示不佳）；代码为空或价格非正的条目丢弃。
func Normalize(resp TickerResponse) model.PriceTable {
	table := make(model.PriceTable, len(resp))
	for code, e := range resp {
		if code == "" || e.Last <= 0 {
			continue
		}
		symbol := e.Symbol
		if code == "RUB" {
			symbol = ""
		}
		table[code] = model.Quote{Symbol: symbol, Last: e.Last}
	}
	return table
}
