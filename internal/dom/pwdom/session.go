package pwdom

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// SessionOptions 浏览器会话选项
type SessionOptions struct {
	// Engine 浏览器内核: chromium, firefox, webkit
	Engine string
	// Headless 是否无界面运行
	Headless bool
	// ViewportWidth/ViewportHeight 视口尺寸
	ViewportWidth  int
	ViewportHeight int
	// TimeoutMs 页面操作超时（毫秒）
	TimeoutMs float64
	// Install 启动前安装浏览器驱动
	Install bool
}

// Session 浏览器会话（单页面）
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	doc     *Document
	logger  *zap.Logger
}

// Launch 启动浏览器并打开单个页面
// 页面脚本在页面创建后立即安装，之后的每次导航自动重新安装。
func Launch(opts SessionOptions, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("安装 playwright 失败: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("启动 playwright 失败: %w", err)
	}

	browserType, err := pickEngine(pw, opts.Engine)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("创建浏览器上下文失败: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	if opts.TimeoutMs > 0 {
		page.SetDefaultTimeout(opts.TimeoutMs)
	}

	doc, err := Attach(page, logger)
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, err
	}

	return &Session{
		pw:      pw,
		browser: browser,
		context: bctx,
		page:    page,
		doc:     doc,
		logger:  logger.Named("session"),
	}, nil
}

func pickEngine(pw *playwright.Playwright, engine string) (playwright.BrowserType, error) {
	switch engine {
	case "", "chromium":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("不支持的浏览器内核: %s", engine)
}

// Navigate 打开页面
func (s *Session) Navigate(url string) error {
	if _, err := s.page.Goto(url); err != nil {
		return fmt.Errorf("打开页面失败: %w", err)
	}
	s.logger.Info("页面已打开", zap.String("url", s.page.URL()))
	return nil
}

// Document 页面包装
func (s *Session) Document() *Document {
	return s.doc
}

// Close 关闭页面、浏览器与 playwright
func (s *Session) Close() error {
	var firstErr error
	if err := s.context.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("关闭浏览器上下文失败: %w", err)
	}
	if err := s.browser.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("关闭浏览器失败: %w", err)
	}
	if err := s.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("停止 playwright 失败: %w", err)
	}
	return firstErr
}
