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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/api/handler"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/api/router"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务与每日到期扫描",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func runServer(configPath string) error {
	a, err := bootstrap(configPath, true)
	if err != nil {
		return err
	}
	cfg, logger := a.cfg, a.logger

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Int("lead_days", cfg.Scheduler.LeadDays),
	)

	// 1. 执行数据库迁移
	if err := a.migrate(); err != nil {
		a.close(context.Background())
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 2. 定时扫描
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(&cfg.Scheduler, a.svc.Scan, logger)
		if err != nil {
			a.close(context.Background())
			return err
		}
		sched.Start()
	}

	// 3. 初始化路由
	deps := router.Deps{Handler: handler.NewHandler(a.svc), DB: a.repo}
	if a.rdb != nil {
		deps.Limiter = a.rdb
	}
	engine, err := router.Setup(cfg, deps, logger)
	if err != nil {
		a.close(context.Background())
		return err
	}

	// 4. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 5. 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case err = <-serveErr:
		logger.Error("HTTP 服务器异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if sched != nil {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("定时扫描未能按时停止", zap.Error(err))
		}
	}
	a.close(ctx)

	logger.Info("服务器已关闭")
	return err
}
