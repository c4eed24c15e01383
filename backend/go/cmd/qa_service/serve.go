package main

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/internal/discovery/etcd"
	"AskBot/backend/go/internal/qa_service/api"
	pkghttp "AskBot/backend/go/pkg/http"
	"AskBot/backend/go/pkg/logger"
	"AskBot/backend/go/pkg/ratelimiter"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, serveMemory)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.Close(closeCtx)
		}()

		var limiter *ratelimiter.Keyed
		if cfg.Middleware.RateLimiter.Enabled {
			factory, err := ratelimiter.FromConfig(cfg.Middleware.RateLimiter)
			if err != nil {
				return err
			}
			if limiter, err = ratelimiter.NewKeyed(factory, maxTrackedKeys); err != nil {
				return err
			}
		}

		if cfg.App.Environment != "development" {
			gin.SetMode(gin.ReleaseMode)
		}
		serviceLogger := logger.New("qa_service", "", "")
		handler := api.NewAPI(a.facts, a.configs, a.resolver, a.relay, a.importer, a.health, serviceLogger)
		router := api.NewRouter(handler, cfg.Auth, limiter)

		srv := pkghttp.NewServer(router, pkghttp.WithAddress(cfg.Server.Address))
		if deregister := register(ctx, cfg.Discovery, serviceLogger); deregister != nil {
			defer deregister()
		}
		serviceLogger.Info("Starting HTTP server on " + srv.Addr())
		if err := srv.Run(ctx); err != nil {
			return err
		}
		// 存储连接关闭前，让已确认的 webhook 批次至少完成当前这一条消息
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout()+cfg.SendTimeout())
		defer cancel()
		if err := handler.Wait(drainCtx); err != nil {
			serviceLogger.WithErr(err).Warn("仍有 webhook 批次未处理完")
		}
		serviceLogger.Info("Server gracefully stopped")
		return nil
	},
}

// register 在配置了 etcd 时注册当前实例。注册失败不影响服务启动。
func register(ctx context.Context, cfg config.DiscoveryConfig, log *logger.Logger) func() {
	if len(cfg.Endpoints) == 0 {
		return nil
	}
	registry, err := etcd.NewRegistry(cfg.Endpoints)
	if err != nil {
		log.WithErr(err).Warn("etcd 不可用，跳过服务注册")
		return nil
	}
	deregister, err := registry.Register(ctx, cfg.ServiceName, cfg.AdvertiseAddress, cfg.TTL)
	if err != nil {
		log.WithErr(err).Warn("服务注册失败")
		_ = registry.Close()
		return nil
	}
	return func() {
		revokeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := deregister(revokeCtx); err != nil {
			log.WithErr(err).Warn("注销服务失败")
		}
		_ = registry.Close()
	}
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "使用进程内存储（仅用于本地调试）")
}
