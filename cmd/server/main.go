// PaiBan 排班求解服务
// 主程序入口

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

	"github.com/redis/go-redis/v9"

	"github.com/paiban/planning/internal/cache"
	"github.com/paiban/planning/internal/config"
	"github.com/paiban/planning/internal/database"
	"github.com/paiban/planning/internal/handler"
	"github.com/paiban/planning/internal/middleware"
	"github.com/paiban/planning/internal/repository"
	"github.com/paiban/planning/internal/service"
	"github.com/paiban/planning/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("PaiBan 排班求解服务启动")

	ctx := context.Background()

	// 数据库不可用时仅保留内联求解与组合分析接口
	var store service.Store
	var health handler.HealthChecker
	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		if cfg.IsProduction() {
			logger.Fatal().Err(err).Msg("数据库连接失败")
		}
		logger.Warn().Err(err).Msg("数据库连接失败，按日期范围求解不可用")
	} else {
		defer db.Close()
		store = repository.NewPlanningRepository(db)
		health = db
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis 连接失败，组合目录仅缓存于进程内")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}
	var combos service.ComboCache
	if cs := cache.NewComboStore(rdb, cfg.Redis.TTL); cs.Enabled() {
		combos = cs
	}

	svc := service.New(store, combos, cfg.Solver, cfg.DayCombo)

	limiter := middleware.NewRateLimiter(cfg.App.RateLimit, time.Minute)
	h, err := handler.New(svc, handler.Options{
		Version:     Version,
		Database:    health,
		APIKeys:     cfg.App.APIKeys,
		RateLimiter: limiter,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化处理器失败")
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	if limiter != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-cleanupCtx.Done():
					return
				case <-ticker.C:
					limiter.Cleanup()
				}
			}
		}()
	}

	// 写超时需覆盖最长求解时间
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      h.Mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Solver.MaxTimeLimit + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Bool("database", store != nil).
			Bool("redis", combos != nil).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("服务器已关闭")
}
