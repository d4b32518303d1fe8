package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventHandler 处理文章事件的回调函数
type EventHandler func(ctx context.Context, event *ArticleEvent) error

// StartArticleEventConsumer 启动文章事件消费者（阻塞，需在 goroutine 中运行）
// ctx 取消后会自动停止
func StartArticleEventConsumer(ctx context.Context, brokers []string, topic, groupID string, handler EventHandler) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("Failed to close kafka consumer", zap.Error(err))
		}
		logger.Info("Kafka article event consumer stopped")
	}()

	logger.Info("Kafka article event consumer started",
		zap.String("topic", topic),
		zap.String("group", groupID),
	)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to read kafka message", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		event, ok := decodeArticleEvent(msg.Value)
		if !ok {
			continue
		}

		if err := handler(ctx, event); err != nil {
			logger.Error("Failed to handle article event",
				zap.String("article_id", event.ArticleID),
				zap.String("type", event.Type),
				zap.Error(err),
			)
		}
	}
}

func decodeArticleEvent(value []byte) (*ArticleEvent, bool) {
	var event ArticleEvent
	if err := json.Unmarshal(value, &event); err != nil {
		logger.Error("Failed to unmarshal article event",
			zap.Error(err),
			zap.ByteString("value", value),
		)
		return nil, false
	}
	if event.ArticleID == "" {
		logger.Warn("Article event without article id", zap.ByteString("value", value))
		return nil, false
	}
	return &event, true
}
