package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/backend/internal/auth"
	jwtpkg "taskboard/backend/internal/auth/jwt"
	"taskboard/backend/internal/blob"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/health"
	"taskboard/backend/internal/logger"
	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/pool"
	"taskboard/backend/internal/service"
	"taskboard/backend/internal/storage"
	"taskboard/backend/internal/storage/filesystem"
	"taskboard/backend/internal/storage/hybrid"
	"taskboard/backend/internal/storage/memory"
	httptransport "taskboard/backend/internal/transport/http"
	"taskboard/backend/internal/websocket"
)

// main 启动包含上传管线、看板 API 与 WebSocket 推送的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.LogFile,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting taskboard server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	var hybridStore *hybrid.Store

	// 根据配置选择存储类型
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		hybridStore, err = initializeDatabaseStorage(cfg, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		store = hybridStore
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		// 内存存储（开发环境）
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}

	// 初始化分块暂存目录
	chunkStore, err := filesystem.NewChunkStore(cfg.Upload.StoragePath)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize chunk storage: %v", err))
	}
	log.Info("chunk storage initialized", zap.String("path", cfg.Upload.StoragePath))

	// 初始化对象存储
	var blobStore blob.Store
	if cfg.Minio.Endpoint != "" {
		blobStore, err = blob.NewMinioStore(blob.MinioConfig{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			Bucket:          cfg.Minio.Bucket,
			UseSSL:          cfg.Minio.UseSSL,
		})
		if err != nil {
			panic(fmt.Sprintf("failed to initialize object storage: %v", err))
		}
		log.Info("object storage initialized",
			zap.String("endpoint", cfg.Minio.Endpoint),
			zap.String("bucket", cfg.Minio.Bucket),
		)
	} else {
		blobStore = blob.NewMemoryStore(fmt.Sprintf("http://%s:%d/blobs", cfg.Server.Host, cfg.Server.Port))
		log.Info("using in-memory object storage (development mode)")
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(store, redisClient(hybridStore), log)

	// 后台任务工作池：过期会话清扫、转写分发等
	workerPool := pool.NewWorkerPool(4, 256)

	// 初始化服务层
	uploadService := service.NewUploadService(store, chunkStore, blobStore, cfg.Upload, log)
	attachmentService := service.NewAttachmentService(store, blobStore, log)
	boardService := service.NewBoardService(store, log)
	cardService := service.NewCardService(store, log)
	tagService := service.NewTagService(store, log)
	submissionService := service.NewSubmissionService(store, log)

	// 初始化认证服务
	authService := auth.NewService(store)
	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry)

	// 创建 WebSocket Hub 并接入事件推送
	wsHub := websocket.NewHub(log)
	wsHub.SetMetrics(metrics)

	uploadService.SetWorkerPool(workerPool)
	uploadService.SetEventPublisher(wsHub)
	uploadService.SetMetrics(metrics)
	attachmentService.SetEventPublisher(wsHub)
	cardService.SetEventPublisher(wsHub)
	submissionService.SetEventPublisher(wsHub)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:            cfg,
		AuthService:       authService,
		UploadService:     uploadService,
		AttachmentService: attachmentService,
		BoardService:      boardService,
		CardService:       cardService,
		TagService:        tagService,
		SubmissionService: submissionService,
		JWTManager:        jwtManager,
		WebSocketHub:      wsHub,
		Store:             store,
		Metrics:           metrics,
		HealthChecker:     healthChecker,
		Logger:            log,
	})

	// 健康检查处理器（用于 Kubernetes 等）
	router.GET("/health/live", gin.WrapH(healthChecker.Handler()))
	router.GET("/health/ready", gin.WrapH(healthChecker.Handler()))

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerPool.Start(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清扫过期上传会话 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Info("starting expired upload session sweep task", zap.Duration("interval", 1*time.Hour))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("sweep task stopped")
				return nil
			case <-ticker.C:
				count, err := uploadService.SweepExpired(groupCtx)
				if err != nil {
					log.Error("failed to sweep expired upload sessions", zap.Error(err))
				} else if count > 0 {
					log.Info("expired upload sessions swept", zap.Int("count", count))
				}
			}
		}
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx.Done())
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workerPool.Stop()

		if hybridStore != nil {
			if err := hybridStore.Close(); err != nil {
				log.Warn("storage close warning", zap.Error(err))
			}
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeDatabaseStorage 初始化数据库存储（SQL + Redis 混合）
func initializeDatabaseStorage(cfg *config.Config, log *zap.Logger) (*hybrid.Store, error) {
	log.Info("initializing database storage",
		zap.String("database_type", cfg.Database.Type),
		zap.String("redis_address", cfg.Redis.Address),
	)

	store, err := hybrid.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hybrid store: %w", err)
	}

	log.Info("database storage initialized successfully",
		zap.String("database_type", cfg.Database.Type),
	)

	return store, nil
}

// redisClient 返回混合存储使用的 Redis 客户端，内存存储模式下为 nil。
func redisClient(store *hybrid.Store) *goredis.Client {
	if store == nil || store.Cache() == nil {
		return nil
	}
	return store.Cache().Client()
}
