package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crypto-price-overlay/internal/core/model"
)

// Fetcher 价格表获取器
type Fetcher interface {
	// Fetch 获取最新价格表
	Fetch(ctx context.Context) (model.PriceTable, error)
}

// HTTPFetcher HTTP 行情获取器
type HTTPFetcher struct {
	// url 行情接口地址
	url string
	// client HTTP 客户端
	client *http.Client
}

// NewHTTPFetcher 创建 HTTP 行情获取器
// 参数 url: 行情接口地址
// 参数 timeoutMs: HTTP 请求超时时间（毫秒）
func NewHTTPFetcher(url string, timeoutMs int) *HTTPFetcher {
	return &HTTPFetcher{
		url: url,
		client: &http.Client{
			Timeout: time.Duration(timeoutMs) * time.Millisecond,
		},
	}
}

// Fetch 获取并解析价格表
// 参数 ctx: 上下文，用于取消请求
// 返回: 价格表；失败时返回包装 ErrUnavailable 的错误
func (f *HTTPFetcher) Fetch(ctx context.Context) (model.PriceTable, error) {
	body, err := f.doRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求行情失败: %v", ErrUnavailable, err)
	}

	var resp TickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: 解析行情失败: %v", ErrUnavailable, err)
	}

	table := Normalize(resp)
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: 行情为空", ErrUnavailable)
	}
	return table, nil
}

// Latest 同 Fetch，供覆盖层引擎直接使用
func (f *HTTPFetcher) Latest(ctx context.Context) (model.PriceTable, error) {
	return f.Fetch(ctx)
}

// doRequest 执行 HTTP GET 请求
// 参数 ctx: 上下文
// 返回: 响应体字节数组
func (f *HTTPFetcher) doRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	// 设置请求头
	req.Header.Set("User-Agent", "crypto-price-overlay/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	return body, nil
}
