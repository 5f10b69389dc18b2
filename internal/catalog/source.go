package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"crypto-price-overlay/internal/core/model"
)

// ErrUnavailable 目录暂不可用（网络或解析失败），调用方应保持 Unresolved 并在下个周期重试
var ErrUnavailable = errors.New("站点目录不可用")

//go:embed web-data.json
var bundled []byte

// Bundled 返回随程序打包的目录文档原文
func Bundled() []byte {
	return bundled
}

// Source 站点目录来源
type Source interface {
	// Fetch 获取目录
	Fetch(ctx context.Context) (*model.Catalog, error)
}

// Decode 解析目录 JSON 文档
func Decode(r io.Reader) (*model.Catalog, error) {
	var c model.Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: 解析目录失败: %v", ErrUnavailable, err)
	}
	return &c, nil
}

// EmbeddedSource 打包目录
type EmbeddedSource struct{}

// Fetch 解析打包目录
func (EmbeddedSource) Fetch(ctx context.Context) (*model.Catalog, error) {
	return Decode(bytes.NewReader(bundled))
}

// FileSource 本地文件目录
type FileSource struct {
	Path string
}

// Fetch 读取并解析目录文件
func (s FileSource) Fetch(ctx context.Context) (*model.Catalog, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开目录文件失败: %v", ErrUnavailable, err)
	}
	defer f.Close()
	return Decode(f)
}

// HTTPSource 远程目录
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource 创建远程目录来源
// 参数 url: 目录文档地址
// 参数 timeoutMs: HTTP 请求超时时间（毫秒）
func NewHTTPSource(url string, timeoutMs int) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

// Fetch 下载并解析目录
func (s *HTTPSource) Fetch(ctx context.Context) (*model.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: 请求目录失败: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP 状态码错误: %d", ErrUnavailable, resp.StatusCode)
	}
	return Decode(resp.Body)
}
