package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/club-backend/internal/config"
	"github.com/pu-ac-cn/club-backend/internal/database"
	"github.com/pu-ac-cn/club-backend/internal/handler"
	"github.com/pu-ac-cn/club-backend/internal/middleware"
	"github.com/pu-ac-cn/club-backend/internal/model"
	"github.com/pu-ac-cn/club-backend/internal/redis"
	"github.com/pu-ac-cn/club-backend/internal/repository"
	"github.com/pu-ac-cn/club-backend/internal/service"
	"github.com/pu-ac-cn/club-backend/internal/spreadsheet"
	"github.com/pu-ac-cn/club-backend/internal/storage"
	"github.com/pu-ac-cn/club-backend/pkg/response"
	"github.com/pu-ac-cn/club-backend/web"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if err := middleware.InitLogger(cfg.Log.Level); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logger := middleware.GetLogger()
	defer logger.Sync()

	formulaMode, err := spreadsheet.ParseFormulaMode(cfg.Excel.FormulaMode)
	if err != nil {
		logger.Fatal("表格配置错误", zap.Error(err))
	}

	// 初始化数据库连接
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()
	logger.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接（可选）
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("初始化 Redis 失败", zap.Error(err))
	}
	defer redis.Close()
	if redis.Enabled() {
		logger.Info("Redis 连接成功", zap.String("addr", cfg.Redis.Addr))
	}

	// 自动迁移数据库表
	if err := database.AutoMigrate(&model.Club{}, &model.Activity{}); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	logger.Info("数据库迁移完成")

	// 统计缓存依赖 Redis
	var statsCache service.StatsCache
	if redis.Enabled() && cfg.Cache.StatisticsTTL > 0 {
		statsCache = service.NewRedisStatsCache(redis.GetClient(), cfg.Cache.StatisticsTTL)
	}

	clubRepo := repository.NewClubRepository(database.GetDB())
	fileStore := storage.NewLocalFileStore(cfg.Upload.Dir, cfg.Upload.URLPrefix)
	clubService := service.NewClubService(
		clubRepo,
		fileStore,
		spreadsheet.New(formulaMode),
		statsCache,
		&service.ClubServiceConfig{
			Vocabulary:     cfg.Vocabulary,
			ExportPageSize: cfg.Excel.ExportPageSize,
		},
		logger.Named("club"),
	)
	clubHandler := handler.NewClubHandler(clubService, cfg.Upload.MaxSize, logger.Named("handler"))

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	if cfg.Upload.MaxSize > 0 {
		router.MaxMultipartMemory = cfg.Upload.MaxSize
	}

	// 全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins...))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		if err := database.Ping(); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if redis.Enabled() {
			redisStatus = "ok"
			if err := redis.Ping(c.Request.Context()); err != nil {
				redisStatus = "error"
			}
		}

		response.Success(c, gin.H{
			"status":   "ok",
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"redis":    redisStatus,
		})
	})

	// 上传文件访问
	web.NewStaticHandler(&web.StaticConfig{
		Root:      cfg.Upload.Dir,
		URLPrefix: cfg.Upload.URLPrefix,
	}).SetupRoutes(router)

	// API 路由组
	api := router.Group(cfg.Server.APIPrefix)
	if cfg.RateLimit.Enabled {
		if redis.Enabled() {
			api.Use(middleware.RateLimiter(redis.GetClient(), cfg.RateLimit.Requests, cfg.RateLimit.Window))
		} else {
			logger.Warn("限流需要 Redis，已跳过")
		}
	}
	api.GET("/ping", func(c *gin.Context) {
		response.Success(c, "pong")
	})
	clubHandler.RegisterRoutes(api)

	router.NoRoute(func(c *gin.Context) {
		response.ErrorWithMsg(c, response.CodeNotFound, "接口不存在")
	})

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		logger.Info("服务启动", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务...")

	// 优雅关闭，等待 5 秒
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务关闭失败", zap.Error(err))
	}

	logger.Info("服务已关闭")
}
