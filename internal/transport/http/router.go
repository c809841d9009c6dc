// Package httptransport 提供 HTTP API 路由与处理器。
package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/backend/internal/auth"
	jwtpkg "taskboard/backend/internal/auth/jwt"
	"taskboard/backend/internal/config"
	"taskboard/backend/internal/health"
	"taskboard/backend/internal/middleware"
	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/service"
	"taskboard/backend/internal/storage"
	"taskboard/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config            *config.Config
	AuthService       *auth.Service
	UploadService     *service.UploadService
	AttachmentService *service.AttachmentService
	BoardService      *service.BoardService
	CardService       *service.CardService
	TagService        *service.TagService
	SubmissionService *service.SubmissionService
	JWTManager        *jwtpkg.Manager
	WebSocketHub      *websocket.Hub
	Store             storage.Store
	Metrics           *monitoring.Metrics
	HealthChecker     *health.HealthChecker
	Logger            *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	log := deps.Logger
	monitoringMW := middleware.NewMonitoringMiddleware(deps.Metrics, log)

	router.Use(monitoringMW.PanicRecovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(monitoringMW.HTTPMetrics())
	router.Use(monitoringMW.BusinessMetrics())

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Max-Body-Size"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, deps.Store, log)
	uploadHandler := NewUploadHandler(deps.UploadService, deps.AttachmentService, log)
	attachmentHandler := NewAttachmentHandler(deps.AttachmentService, log)
	boardHandler := NewBoardHandler(deps.BoardService, log)
	cardHandler := NewCardHandler(deps.CardService, deps.TagService, log)
	tagHandler := NewTagHandler(deps.TagService, log)
	submissionHandler := NewSubmissionHandler(deps.SubmissionService, log)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, log)
	uploadRateLimit := middleware.NewRateLimiter(deps.Config.RateLimit.UploadRPS, deps.Config.RateLimit.UploadBurst)
	uploadRateLimit.SetMetrics(deps.Metrics)

	defaultBody := middleware.BodySizeLimit(middleware.DefaultBodyLimit)

	// 健康检查与监控
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.HealthChecker.CheckHealth())
	})
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth", defaultBody)
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		// ========== Upload Routes ==========
		// 分块端点的请求体上限取单个分块大小，其余上传端点只收 JSON
		uploadRoutes := v1.Group("/uploads")
		uploadRoutes.Use(jwtAuth.RequireAuth(), uploadRateLimit.Limit())
		{
			uploadRoutes.POST("/sessions", defaultBody, uploadHandler.InitUpload)
			uploadRoutes.GET("/sessions/:id/status", uploadHandler.GetUploadStatus)
			uploadRoutes.PUT("/sessions/:id/chunks/:index",
				middleware.ChunkBodyLimit(deps.Config.Upload.ChunkSize), uploadHandler.PutChunk)
			uploadRoutes.POST("/sessions/:id/finalize", defaultBody, uploadHandler.FinalizeUpload)

			// 直传路径：签发预签名地址，带外上传后经 POST /attachments 登记
			uploadRoutes.POST("/direct-target", defaultBody, uploadHandler.RequestDirectTarget)
		}

		// ========== Attachment Routes ==========
		attachmentRoutes := v1.Group("/attachments", defaultBody)
		attachmentRoutes.Use(jwtAuth.RequireAuth())
		{
			// 直传对象登记为附件
			attachmentRoutes.POST("", uploadHandler.LinkDirectUpload)
			attachmentRoutes.GET("", attachmentHandler.ListByParent)
			attachmentRoutes.GET("/:id", attachmentHandler.GetAttachment)
			// 转写回调：外部转写服务以管理员凭证回写结果
			attachmentRoutes.PATCH("/:id/transcription", middleware.RequireAdmin(), attachmentHandler.UpdateTranscription)
			attachmentRoutes.DELETE("/:id", middleware.RequireAdmin(), attachmentHandler.DeleteAttachment)
		}

		// ========== Board Routes（仅管理员） ==========
		boardRoutes := v1.Group("/boards", defaultBody)
		boardRoutes.Use(jwtAuth.RequireAuth(), middleware.RequireAdmin())
		{
			boardRoutes.POST("", boardHandler.CreateBoard)
			boardRoutes.GET("", boardHandler.ListBoards)
			boardRoutes.GET("/:id", boardHandler.GetBoard)
			boardRoutes.PATCH("/:id", boardHandler.UpdateBoard)
			boardRoutes.DELETE("/:id", boardHandler.DeleteBoard)

			boardRoutes.POST("/:id/lists", boardHandler.CreateList)
			boardRoutes.GET("/:id/lists", boardHandler.ListLists)

			boardRoutes.POST("/:id/tags", tagHandler.CreateTag)
			boardRoutes.GET("/:id/tags", tagHandler.ListTags)
		}

		// ========== List Routes（仅管理员） ==========
		listRoutes := v1.Group("/lists", defaultBody)
		listRoutes.Use(jwtAuth.RequireAuth(), middleware.RequireAdmin())
		{
			listRoutes.PATCH("/:id", boardHandler.RenameList)
			listRoutes.DELETE("/:id", boardHandler.DeleteList)

			listRoutes.POST("/:id/cards", cardHandler.CreateCard)
			listRoutes.GET("/:id/cards", cardHandler.ListCards)
		}

		// ========== Card Routes（仅管理员） ==========
		cardRoutes := v1.Group("/cards", defaultBody)
		cardRoutes.Use(jwtAuth.RequireAuth(), middleware.RequireAdmin())
		{
			cardRoutes.GET("/:id", cardHandler.GetCard)
			cardRoutes.PATCH("/:id", cardHandler.UpdateCard)
			cardRoutes.POST("/:id/move", cardHandler.MoveCard)
			cardRoutes.DELETE("/:id", cardHandler.DeleteCard)

			cardRoutes.POST("/:id/tags/:tagId", cardHandler.AttachTag)
			cardRoutes.DELETE("/:id/tags/:tagId", cardHandler.DetachTag)
			cardRoutes.GET("/:id/tags", cardHandler.CardTags)
		}

		// ========== Tag Routes（仅管理员） ==========
		tagRoutes := v1.Group("/tags", defaultBody)
		tagRoutes.Use(jwtAuth.RequireAuth(), middleware.RequireAdmin())
		{
			tagRoutes.PATCH("/:id", tagHandler.UpdateTag)
			tagRoutes.DELETE("/:id", tagHandler.DeleteTag)
		}

		// ========== Submission Routes ==========
		submissionRoutes := v1.Group("/submissions", defaultBody)
		submissionRoutes.Use(jwtAuth.RequireAuth())
		{
			submissionRoutes.POST("", submissionHandler.CreateSubmission)
			submissionRoutes.GET("", submissionHandler.ListSubmissions)
			submissionRoutes.GET("/:id", submissionHandler.GetSubmission)
			submissionRoutes.PATCH("/:id/status", middleware.RequireAdmin(), submissionHandler.UpdateStatus)
			submissionRoutes.POST("/:id/promote", middleware.RequireAdmin(), submissionHandler.PromoteSubmission)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", jwtAuth.RequireAuth(), func(c *gin.Context) {
				if err := deps.WebSocketHub.ServeClient(c.Writer, c.Request, middleware.UserID(c), middleware.Role(c)); err != nil {
					log.Warn("websocket upgrade failed", zap.Error(err))
				}
			})
		}
	}

	return router
}
