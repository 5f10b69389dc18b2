// Package main 是加密货币价格覆盖层的入口点。
// 打开浏览器页面（或回放本地 HTML 文件），在页面上标记价格元素、
// 悬停/选区时弹出法币换算，并在输入价格明显偏离参考价时告警。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"crypto-price-overlay/internal/catalog"
	"crypto-price-overlay/internal/config"
	"crypto-price-overlay/internal/core/router"
	"crypto-price-overlay/internal/dom/memdom"
	"crypto-price-overlay/internal/dom/pwdom"
	"crypto-price-overlay/internal/pricefeed"
	"crypto-price-overlay/internal/util/logutil"
)

func main() {
	var (
		configPath string
		startURL   string
		replayPath string
		dump       bool
		install    bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.StringVar(&startURL, "url", "", "启动页面地址（覆盖 browser.start_url；回放模式下作为页面地址）")
	flag.StringVar(&replayPath, "replay", "", "回放本地 HTML 文件（不启动浏览器）")
	flag.BoolVar(&dump, "dump", false, "回放结束后输出最终 HTML")
	flag.BoolVar(&install, "install", false, "启动前安装浏览器驱动")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if startURL != "" {
		cfg.Browser.StartURL = startURL
	}

	logger := logutil.New(cfg.App.LogLevel).Named(cfg.App.Name)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	prices, closePrices := newPriceSource(ctx, cfg, logger)
	defer closePrices()

	catSrc := newCatalogSource(cfg)
	opts := router.Options{
		TickInterval:        time.Duration(cfg.Overlay.TickIntervalMs) * time.Millisecond,
		CleanupDelay:        time.Duration(cfg.Overlay.CleanupDelayMs) * time.Millisecond,
		Currencies:          cfg.Overlay.Currencies,
		SelectionCurrencies: cfg.Overlay.SelectionSet(),
		TooltipMarker:       cfg.Overlay.TooltipMarker,
		AlertMarker:         cfg.Overlay.AlertMarker,
		Title:               cfg.App.Name,
	}

	if replayPath != "" {
		if err := runReplay(ctx, logger, replayPath, cfg.Browser.StartURL, dump, prices, catSrc, opts); err != nil {
			logger.Error("回放失败", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	sess, err := pwdom.Launch(pwdom.SessionOptions{
		Engine:         cfg.Browser.Engine,
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		TimeoutMs:      float64(cfg.Browser.TimeoutMs),
		Install:        install,
	}, logger)
	if err != nil {
		logger.Error("启动浏览器失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("关闭浏览器失败", zap.Error(err))
		}
	}()

	if cfg.Browser.StartURL != "" {
		if err := sess.Navigate(cfg.Browser.StartURL); err != nil {
			logger.Error("打开页面失败", zap.Error(err))
			os.Exit(1)
		}
	}

	runBrowser(ctx, logger, sess.Document(), func() *router.Engine {
		return router.New(sess.Document(), sess.Document(), prices, catSrc, opts, logger)
	})
	logger.Info("关闭完成")
}

// newPriceSource 配置了广播地址时订阅广播服务，否则直接请求行情接口
func newPriceSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (router.PriceSource, func()) {
	if cfg.Feed.BroadcastURL == "" {
		return pricefeed.NewHTTPFetcher(cfg.Feed.URL, cfg.Feed.TimeoutMs), func() {}
	}

	sub := pricefeed.NewSubscriber(cfg.Feed.BroadcastURL, logger)
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := sub.Connect(connectCtx); err != nil {
		// Run 会按退避策略继续重连
		logger.Warn("价格广播连接失败", zap.Error(err))
	}
	connectCancel()
	go sub.Run(ctx)
	return sub, func() { _ = sub.Close() }
}

// newCatalogSource 本地文件 > 远程地址 > 打包目录
func newCatalogSource(cfg *config.Config) catalog.Source {
	switch {
	case cfg.Catalog.Path != "":
		return catalog.FileSource{Path: cfg.Catalog.Path}
	case cfg.Catalog.URL != "":
		return catalog.NewHTTPSource(cfg.Catalog.URL, cfg.Catalog.TimeoutMs)
	default:
		return catalog.EmbeddedSource{}
	}
}

// runReplay 在内存 DOM 上运行引擎，直到 ctx 取消
func runReplay(
	ctx context.Context,
	logger *zap.Logger,
	path string,
	url string,
	dump bool,
	prices router.PriceSource,
	catSrc catalog.Source,
	opts router.Options,
) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开回放文件失败: %w", err)
	}
	defer f.Close()

	if url == "" {
		url = "file://" + path
	}
	doc, err := memdom.Parse(url, f)
	if err != nil {
		return err
	}

	engine := router.New(doc, doc, prices, catSrc, opts, logger)
	logger.Info("开始回放", zap.String("file", path), zap.String("url", url))
	if err := engine.Run(ctx); err != nil {
		return err
	}

	logger.Info("回放结束",
		zap.Stringer("resolution", engine.Resolution().State),
		zap.String("selector", engine.Resolution().Selector),
		zap.Int("class_adds", doc.ClassAdds()),
		zap.Float64("reference_price", engine.ReferencePrice()))

	if dump {
		out, err := doc.HTML()
		if err != nil {
			return fmt.Errorf("序列化 HTML 失败: %w", err)
		}
		fmt.Println(out)
	}
	return nil
}

// runBrowser 每次页面加载完成后重建引擎，直到 ctx 取消
func runBrowser(ctx context.Context, logger *zap.Logger, doc *pwdom.Document, newEngine func() *router.Engine) {
	var (
		engineCancel context.CancelFunc
		engineDone   chan struct{}
	)
	stop := func() {
		if engineCancel == nil {
			return
		}
		engineCancel()
		<-engineDone
		engineCancel = nil
	}
	start := func() {
		stop()
		engineCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		engine := newEngine()
		go func() {
			defer close(done)
			if err := engine.Run(engineCtx); err != nil {
				logger.Warn("引擎退出", zap.Error(err))
			}
		}()
		engineCancel = cancel
		engineDone = done
	}

	start()
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case url := <-doc.Attached():
			logger.Info("页面已加载，重新绑定引擎", zap.String("url", url))
			start()
		}
	}
}
