// Package tagger 为匹配选择器的页面元素打上标记 class。
package tagger

import (
	"fmt"

	"crypto-price-overlay/internal/dom"
)

// Tag 为匹配 selector 的元素添加 marker
// 已带有 marker 的元素跳过，重复执行不会产生额外修改。
// 参数 doc: 宿主页面
// 参数 selector: 合并后的选择器
// 参数 marker: 标记 class
// 返回: 本次新增标记的元素数量
func Tag(doc dom.Document, selector, marker string) (int, error) {
	if selector == "" {
		return 0, nil
	}
	nodes, err := doc.QueryAll(selector)
	if err != nil {
		return 0, fmt.Errorf("查询元素失败: %w", err)
	}

	added := 0
	for _, n := range nodes {
		if n.HasClass(marker) {
			continue
		}
		if err := n.AddClass(marker); err != nil {
			return added, fmt.Errorf("添加标记失败: %w", err)
		}
		added++
	}
	return added, nil
}
