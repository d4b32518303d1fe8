package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var producer *kafka.Writer

// 文章事件类型
const (
	EventArticleUpserted = "article.upserted"
	EventArticleDeleted  = "article.deleted"
)

// ArticleEvent 文章变更事件消息体
type ArticleEvent struct {
	ArticleID  string `json:"article_id"`
	Type       string `json:"type"`
	Reason     string `json:"reason,omitempty"`
	CommentID  string `json:"comment_id,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

// InitProducer 初始化 Kafka 生产者
func InitProducer(cfg *config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("kafka brokers is empty")
	}
	producer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
	)

	return nil
}

// SendArticleEvent 发送文章事件，同一文章的事件落在同一分区
func SendArticleEvent(ctx context.Context, topic string, event *ArticleEvent) error {
	if producer == nil {
		return fmt.Errorf("kafka producer not initialized")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal article event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte("article-" + event.ArticleID),
		Value: payload,
	}

	if err := producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send article event: %w", err)
	}

	logger.Debug("Article event sent",
		zap.String("article_id", event.ArticleID),
		zap.String("type", event.Type),
		zap.String("topic", topic),
	)

	return nil
}

// Publisher 将文章事件发到固定 topic
type Publisher struct {
	topic string
}

func NewPublisher(topic string) *Publisher {
	return &Publisher{topic: topic}
}

// PublishArticleEvent 发布文章事件
func (p *Publisher) PublishArticleEvent(ctx context.Context, event ArticleEvent) error {
	return SendArticleEvent(ctx, p.topic, &event)
}

// CloseProducer 关闭生产者
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	logger.Info("Kafka producer closed")
	return producer.Close()
}
