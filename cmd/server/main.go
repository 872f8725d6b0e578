// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"brandmonitor-go/internal/config"
	"brandmonitor-go/internal/handler"
	"brandmonitor-go/internal/middleware"
	"brandmonitor-go/internal/pipeline"
	"brandmonitor-go/internal/repository"
	"brandmonitor-go/internal/service"
	"brandmonitor-go/pkg/database"
	"brandmonitor-go/pkg/es"
	"brandmonitor-go/pkg/kafka"
	"brandmonitor-go/pkg/log"
	"brandmonitor-go/pkg/storage"
	"brandmonitor-go/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和外部设施
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	brandRepo := repository.NewBrandRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(
		database.DB,
		database.RDB,
		time.Duration(cfg.Analysis.StatsCacheTTLSeconds)*time.Second,
	)
	mentionRepo := repository.NewMentionRepository(database.DB)
	topicRepo := repository.NewTopicRepository(database.DB)
	relationshipRepo := repository.NewRelationshipRepository(database.DB)
	searchRepo := repository.NewSearchRepository(es.ESClient, cfg.Elasticsearch.IndexName)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	detector := service.NewMentionDetector(cfg.Analysis)
	extractor := service.NewTopicExtractor(cfg.Analysis)
	linker := service.NewRelationshipLinker(cfg.Analysis, searchRepo, conversationRepo, relationshipRepo)
	conversationService := service.NewConversationService(
		cfg.Analysis,
		brandRepo,
		conversationRepo,
		mentionRepo,
		topicRepo,
		relationshipRepo,
		searchRepo,
		detector,
		extractor,
		linker,
		service.KafkaEnrichmentQueue{},
	)
	exportService := service.NewExportService(conversationService, cfg.MinIO.BucketName)
	scanService := service.NewScanService(database.RDB)

	// 6. 初始化富化重试管道 (Enricher)
	enricher := pipeline.NewEnricher(
		brandRepo,
		conversationRepo,
		mentionRepo,
		topicRepo,
		searchRepo,
		detector,
		extractor,
		linker,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, enricher)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	conversationHandler := handler.NewConversationHandler(conversationService)
	mentionHandler := handler.NewMentionHandler(conversationService)
	analyticsHandler := handler.NewAnalyticsHandler(conversationService)
	exportHandler := handler.NewExportHandler(exportService)
	scanHandler := handler.NewScanHandler(scanService, conversationService)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(jwtManager))
	{
		conversations := apiV1.Group("/conversations")
		{
			conversations.POST("", conversationHandler.StartConversation)
			conversations.GET("", conversationHandler.GetConversations)
			conversations.GET("/search", conversationHandler.SearchConversations)
			conversations.GET("/:id", conversationHandler.GetConversationDetails)
			conversations.POST("/:id/turns", conversationHandler.ContinueConversation)
			conversations.DELETE("/:id", conversationHandler.DeactivateConversation)
		}

		mentions := apiV1.Group("/mentions")
		{
			mentions.POST("/detect", mentionHandler.DetectMentions)
		}

		analytics := apiV1.Group("/analytics")
		{
			analytics.GET("/dashboard", analyticsHandler.GetDashboard)
			analytics.GET("/statistics", analyticsHandler.GetStatistics)
		}

		exports := apiV1.Group("/exports")
		{
			exports.POST("/conversations/:id", exportHandler.ExportConversation)
		}

		scan := apiV1.Group("/scan")
		{
			scan.GET("/ticket", scanHandler.IssueTicket)
		}
	}
	// WebSocket 连接凭一次性票据认证，不经过 JWT 中间件
	r.GET("/scan/:ticket", scanHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
