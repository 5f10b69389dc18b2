// Package main 是价格广播服务的入口点。
// 周期拉取比特币行情，通过 websocket 推送给所有覆盖层实例，并提供站点目录文档。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"crypto-price-overlay/internal/catalog"
	"crypto-price-overlay/internal/config"
	"crypto-price-overlay/internal/pricefeed"
	"crypto-price-overlay/internal/util/logutil"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
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

	catalogDoc := catalog.Bundled()
	if cfg.Catalog.Path != "" {
		catalogDoc, err = os.ReadFile(cfg.Catalog.Path)
		if err != nil {
			logger.Error("读取站点目录失败", zap.Error(err))
			os.Exit(1)
		}
	}

	fetcher := pricefeed.NewHTTPFetcher(cfg.Feed.URL, cfg.Feed.TimeoutMs)
	b := pricefeed.NewBroadcaster(fetcher, pricefeed.BroadcasterOptions{
		RefreshInterval: time.Duration(cfg.Feed.RefreshIntervalMs) * time.Millisecond,
		WriteTimeout:    time.Duration(cfg.Broadcaster.WriteTimeoutMs) * time.Millisecond,
		PingInterval:    time.Duration(cfg.Broadcaster.PingIntervalMs) * time.Millisecond,
		Catalog:         catalogDoc,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Broadcaster.ListenAddr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("价格广播服务启动", zap.String("addr", srv.Addr), zap.String("feed", cfg.Feed.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go b.Run(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("HTTP 服务异常退出", zap.Error(err))
		cancel()
	}

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	b.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("关闭超时，强制退出", zap.Error(err))
		return
	}
	logger.Info("关闭完成")
}
