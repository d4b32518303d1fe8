package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/database"
	infraES "github.com/huangchenwei1/Puzle-Read/internal/infra/elasticsearch"
	infraKafka "github.com/huangchenwei1/Puzle-Read/internal/infra/kafka"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/tracing"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/internal/repository"
	"github.com/huangchenwei1/Puzle-Read/internal/seed"
	"github.com/huangchenwei1/Puzle-Read/internal/service"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// 搜索索引同步 worker：消费文章变更事件，把最新文章写入 ES
func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 监听系统信号，优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, &cfg.App, &cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer database.Close()

	if err := database.AutoMigrate(&model.Article{}); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	if err := infraES.Init(&cfg.Elasticsearch); err != nil {
		logger.Fatal("Failed to init elasticsearch", zap.Error(err))
	}
	defer infraES.Close()

	articlesIndex := cfg.Elasticsearch.ArticlesIndex()
	if err := infraES.InitIndexes(articlesIndex); err != nil {
		logger.Fatal("Failed to init elasticsearch indexes", zap.Error(err))
	}

	catalog, err := seed.Load(cfg.Seed.Path, time.Now())
	if err != nil {
		logger.Warn("Seed catalog unavailable", zap.String("path", cfg.Seed.Path), zap.Error(err))
		catalog = seed.Empty()
	}

	// worker 直接读库，不走缓存
	articleRepo := repository.NewArticleRepository(database.Get())
	store := service.NewDocumentStore(articleRepo, catalog)
	searchService := service.NewSearchService(store, articleRepo, infraES.NewArticleIndex(articlesIndex))

	if len(os.Args) > 1 && os.Args[1] == "reindex" {
		result, err := searchService.Reindex(ctx)
		if err != nil {
			logger.Fatal("Reindex failed", zap.Error(err))
		}
		logger.Info("Reindex completed", zap.Int("success", result.Success), zap.Int("failed", result.Failed))
		return
	}

	topic := cfg.Kafka.ArticleEventsTopic()
	groupID := cfg.Kafka.ConsumerGroup
	if groupID == "" {
		groupID = cfg.App.Name + "-search-sync"
	}

	logger.Info("Search sync worker started",
		zap.String("topic", topic),
		zap.String("group", groupID),
		zap.Strings("brokers", cfg.Kafka.Brokers),
	)

	infraKafka.StartArticleEventConsumer(ctx, cfg.Kafka.Brokers, topic, groupID,
		func(ctx context.Context, event *infraKafka.ArticleEvent) error {
			ctx, span := tracing.Start(ctx, "search.sync_article",
				attribute.String("article.id", event.ArticleID),
				attribute.String("event.type", event.Type),
			)
			defer span.End()

			if err := searchService.SyncArticle(ctx, event.ArticleID); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			logger.Debug("Article synced to search index",
				zap.String("article_id", event.ArticleID),
				zap.String("type", event.Type),
			)
			return nil
		})

	logger.Info("Search sync worker stopped")
}
