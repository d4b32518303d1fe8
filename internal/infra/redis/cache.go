package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const documentKeyPrefix = "puzle:article:"

// cachedArticle 缓存中的文章快照，保留 JSON 隐藏的时间字段
type cachedArticle struct {
	model.Article
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentCache 文章文档读缓存，写入路径只做失效
type DocumentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDocumentCache(rdb *redis.Client, ttl time.Duration) *DocumentCache {
	return &DocumentCache{rdb: rdb, ttl: ttl}
}

func documentKey(id string) string {
	return documentKeyPrefix + id
}

// Get 读取缓存，未命中或出错时返回 false
func (c *DocumentCache) Get(ctx context.Context, id string) (*model.Article, bool) {
	raw, err := c.rdb.Get(ctx, documentKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Article cache read failed", zap.String("article_id", id), zap.Error(err))
		}
		return nil, false
	}

	var cached cachedArticle
	if err := json.Unmarshal(raw, &cached); err != nil {
		logger.Warn("Article cache entry corrupted", zap.String("article_id", id), zap.Error(err))
		_ = c.rdb.Del(ctx, documentKey(id)).Err()
		return nil, false
	}
	a := cached.Article
	a.CreatedAt, a.UpdatedAt = cached.CreatedAt, cached.UpdatedAt
	return &a, true
}

// Set 写入缓存
func (c *DocumentCache) Set(ctx context.Context, a *model.Article) error {
	raw, err := json.Marshal(cachedArticle{Article: *a, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt})
	if err != nil {
		return fmt.Errorf("marshal article cache: %w", err)
	}
	return c.rdb.Set(ctx, documentKey(a.ID), raw, c.ttl).Err()
}

// Invalidate 删除缓存
func (c *DocumentCache) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, documentKey(id)).Err()
}
