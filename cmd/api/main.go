package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutrition-calculator/internal/api"
	"nutrition-calculator/internal/core/service"
	"nutrition-calculator/internal/infrastructure/config"
	"nutrition-calculator/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(common.LogOptions{
		Level: cfg.LogLevel,
		Mode:  cfg.LogMode,
		File:  cfg.LogFile,
		Color: cfg.App.Debug,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("configuration loaded",
		zap.String("base_dir", cfg.Loader.BaseDir),
		zap.Bool("allow_remote", cfg.Loader.AllowRemote),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	// API 只能讀取基準目錄下的文件
	if err := config.ValidateServer(cfg); err != nil {
		common.LogFatal("invalid server config", zap.Error(err))
	}

	// 初始化服務（快取開啟但連線失敗時直接結束）
	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	svc, err := service.NewService(initCtx, cfg)
	cancelInit()
	if err != nil {
		common.LogFatal("failed to initialize nutrition service", zap.Error(err))
	}
	defer func() {
		if err := svc.Close(); err != nil {
			common.LogWarn("failed to close nutrition service", zap.Error(err))
		}
	}()

	router, err := api.SetupRouter(cfg, svc)
	if err != nil {
		common.LogFatal("failed to setup router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		common.LogInfo("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中斷信號或啟動失敗
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		common.LogError("failed to start server", zap.Error(err))
		return
	}

	common.LogInfo("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("server exited")
}
