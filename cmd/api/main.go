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

	"github.com/huangchenwei1/Puzle-Read/internal/api/handler"
	"github.com/huangchenwei1/Puzle-Read/internal/api/middleware"
	"github.com/huangchenwei1/Puzle-Read/internal/api/router"
	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/database"
	infraES "github.com/huangchenwei1/Puzle-Read/internal/infra/elasticsearch"
	infraKafka "github.com/huangchenwei1/Puzle-Read/internal/infra/kafka"
	infraMinio "github.com/huangchenwei1/Puzle-Read/internal/infra/minio"
	infraRedis "github.com/huangchenwei1/Puzle-Read/internal/infra/redis"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/tracing"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/internal/repository"
	"github.com/huangchenwei1/Puzle-Read/internal/seed"
	"github.com/huangchenwei1/Puzle-Read/internal/service"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"
	"github.com/huangchenwei1/Puzle-Read/pkg/utils"

	_ "github.com/huangchenwei1/Puzle-Read/api/openapi"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title Puzle Read API
// @version 1.0
// @description 文章阅读与讨论服务 API

// @host 127.0.0.1:8000
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 输入格式: Bearer {token}

func main() {
	// 加载配置文件
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 初始化日志系统
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, &cfg.App, &cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer database.Close()

	if err := database.AutoMigrate(&model.Article{}, &model.User{}); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	healthChecks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := database.Get().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	storeOpts := []service.StoreOption{}

	// Redis 不可用时不使用缓存，变更只在本进程内广播
	notifier := infraRedis.NewNotifier(nil, cfg.Redis.ChangeChannel)
	if err := infraRedis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis init failed, running without cache", zap.Error(err))
	} else {
		defer infraRedis.Close()
		rdb := infraRedis.Get()
		notifier = infraRedis.NewNotifier(rdb, cfg.Redis.ChangeChannel)
		storeOpts = append(storeOpts, service.WithCache(infraRedis.NewDocumentCache(rdb, cfg.Redis.CacheTTLDuration())))
		healthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	storeOpts = append(storeOpts, service.WithNotifier(notifier))

	// Kafka 生产者（可选，失败则不投递文章事件）
	if err := infraKafka.InitProducer(&cfg.Kafka); err != nil {
		logger.Warn("Kafka producer init failed, article events disabled", zap.Error(err))
	} else {
		defer infraKafka.CloseProducer()
		storeOpts = append(storeOpts, service.WithEvents(infraKafka.NewPublisher(cfg.Kafka.ArticleEventsTopic())))
	}

	// Elasticsearch（可选，失败则搜索降级到 DB）
	var index service.SearchIndex
	if err := infraES.Init(&cfg.Elasticsearch); err != nil {
		logger.Warn("Elasticsearch init failed, search will fallback to DB", zap.Error(err))
	} else {
		defer infraES.Close()
		if err := infraES.InitIndexes(cfg.Elasticsearch.ArticlesIndex()); err != nil {
			logger.Warn("Elasticsearch index init failed", zap.Error(err))
		}
		index = infraES.NewArticleIndex(cfg.Elasticsearch.ArticlesIndex())
		healthChecks["elasticsearch"] = func(ctx context.Context) error {
			if !infraES.Ready() {
				return errors.New("elasticsearch not ready")
			}
			return nil
		}
	}

	// MinIO（可选，失败则导出不可用）
	var exporter service.ExportStore
	if err := infraMinio.Init(&cfg.MinIO); err != nil {
		logger.Warn("MinIO init failed, export disabled", zap.Error(err))
	} else {
		exporter = infraMinio.NewExportStore(cfg.MinIO.ExportBucket, cfg.MinIO.PresignDuration())
		healthChecks["minio"] = func(ctx context.Context) error {
			_, err := infraMinio.Get().BucketExists(ctx, cfg.MinIO.ExportBucket)
			return err
		}
	}

	// 内置文章
	catalog, err := seed.Load(cfg.Seed.Path, time.Now())
	if err != nil {
		logger.Warn("Seed catalog unavailable", zap.String("path", cfg.Seed.Path), zap.Error(err))
		catalog = seed.Empty()
	}
	logger.Info("Seed catalog loaded", zap.Int("articles", catalog.Len()))

	// 初始化依赖（Repository -> Service -> Handler）
	db := database.Get()
	articleRepo := repository.NewArticleRepository(db)
	userRepo := repository.NewUserRepository(db)
	ids := utils.UUIDGenerator{}

	store := service.NewDocumentStore(articleRepo, catalog, storeOpts...)
	authService := service.NewAuthService(userRepo, cfg.Comments.BotAuthor)
	articleService := service.NewArticleService(store, ids, exporter)
	commentService := service.NewCommentService(store, ids, cfg.Comments)
	annotationService := service.NewAnnotationService(store, ids, cfg.Comments)
	searchService := service.NewSearchService(store, articleRepo, index)

	gin.SetMode(cfg.App.Mode)
	r := router.New(&cfg.App, &cfg.CORS)
	router.Setup(r, router.Handlers{
		Health:    handler.NewHealthHandler(healthChecks),
		Auth:      handler.NewAuthHandler(authService),
		Article:   handler.NewArticleHandler(articleService, store),
		Comment:   handler.NewCommentHandler(commentService),
		Paragraph: handler.NewParagraphHandler(annotationService),
		Search:    handler.NewSearchHandler(searchService),
	}, middleware.AdminRequired(authService.GetUserRole))

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("mode", cfg.App.Mode),
		zap.String("addr", addr),
		zap.String("orphan_policy", cfg.Comments.OrphanPolicy),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownDuration())
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}
