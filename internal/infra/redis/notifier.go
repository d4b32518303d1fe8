package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ArticleChange 文章文档变更通知
type ArticleChange struct {
	ArticleID string `json:"article_id"`
	Reason    string `json:"reason"`
	CommentID string `json:"comment_id,omitempty"`
	At        int64  `json:"at"`
}

const watcherBuffer = 8

// Notifier 通过 Redis pub/sub 广播文章变更，并在本进程内分发给各个观察者。
// rdb 为空时退化为纯进程内广播。
type Notifier struct {
	rdb     *redis.Client
	channel string

	mu       sync.Mutex
	nextID   int
	watchers map[string]map[int]chan ArticleChange
}

func NewNotifier(rdb *redis.Client, channel string) *Notifier {
	return &Notifier{
		rdb:      rdb,
		channel:  channel,
		watchers: make(map[string]map[int]chan ArticleChange),
	}
}

// Publish 发布变更；经 Redis 发布的消息由 Run 收到后再分发，本进程也不例外
func (n *Notifier) Publish(ctx context.Context, change ArticleChange) error {
	if n.rdb == nil {
		n.broadcast(change)
		return nil
	}
	raw, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish article change: %w", err)
	}
	return nil
}

// Run 订阅变更频道并分发，阻塞直到 ctx 结束
func (n *Notifier) Run(ctx context.Context) error {
	if n.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := n.rdb.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	logger.Info("Article change subscription started", zap.String("channel", n.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Article change subscription stopped")
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var change ArticleChange
			if err := json.Unmarshal([]byte(m.Payload), &change); err != nil {
				logger.Warn("Bad article change payload", zap.Error(err))
				continue
			}
			n.broadcast(change)
		}
	}
}

// Watch 观察某篇文章的变更，返回的 cancel 必须调用以释放资源
func (n *Notifier) Watch(articleID string) (<-chan ArticleChange, func()) {
	ch := make(chan ArticleChange, watcherBuffer)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	if n.watchers[articleID] == nil {
		n.watchers[articleID] = make(map[int]chan ArticleChange)
	}
	n.watchers[articleID][id] = ch
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.watchers[articleID], id)
			if len(n.watchers[articleID]) == 0 {
				delete(n.watchers, articleID)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// broadcast 观察者缓冲已满时丢弃，观察者收到任意一条都会整体重读
func (n *Notifier) broadcast(change ArticleChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.watchers[change.ArticleID] {
		select {
		case ch <- change:
		default:
		}
	}
}

// Watchers 当前观察者数量
func (n *Notifier) Watchers(articleID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watchers[articleID])
}
