package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	infraES "github.com/huangchenwei1/Puzle-Read/internal/infra/elasticsearch"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/kafka"
	infraRedis "github.com/huangchenwei1/Puzle-Read/internal/infra/redis"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/internal/seed"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrArticleNotFound    = errors.New("文章不存在")
	ErrDocumentCorrupted  = errors.New("文章数据损坏")
	ErrServiceUnavailable = errors.New("依赖服务不可用")
)

// ArticleRepo 文章文档持久化
type ArticleRepo interface {
	GetByID(ctx context.Context, id string) (*model.Article, error)
	Upsert(ctx context.Context, article *model.Article) error
	List(ctx context.Context) ([]model.Article, error)
	TombstonedIDs(ctx context.Context) ([]string, error)
	IsTombstoned(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, keyword string, skip, limit int) ([]model.Article, int64, error)
}

// DocumentCache 文章读缓存
type DocumentCache interface {
	Get(ctx context.Context, id string) (*model.Article, bool)
	Set(ctx context.Context, a *model.Article) error
	Invalidate(ctx context.Context, id string) error
}

// ChangeNotifier 文章变更订阅
type ChangeNotifier interface {
	Publish(ctx context.Context, change infraRedis.ArticleChange) error
	Watch(articleID string) (<-chan infraRedis.ArticleChange, func())
}

// EventPublisher 文章事件投递
type EventPublisher interface {
	PublishArticleEvent(ctx context.Context, event kafka.ArticleEvent) error
}

// SearchIndex 文章全文索引
type SearchIndex interface {
	SearchArticles(ctx context.Context, q string, from, size int) (*infraES.SearchResult, error)
	SyncArticle(ctx context.Context, a *model.Article) error
	DeleteArticle(ctx context.Context, id string) error
	BulkSyncArticles(ctx context.Context, articles []model.Article) (success, failed int, err error)
}

// ExportStore 快照导出存储
type ExportStore interface {
	PutSnapshot(ctx context.Context, objectName string, data []byte) (string, time.Time, error)
}

// 变更原因
const (
	ReasonArticleCreated = "article_created"
	ReasonArticleUpdated = "article_updated"
	ReasonArticleDeleted = "article_deleted"
	ReasonCommentCreated = "comment_created"
	ReasonCommentVoted   = "comment_voted"
	ReasonCommentDeleted = "comment_deleted"
	ReasonParagraphNoted = "paragraph_commented"
)

// StoreOption DocumentStore 可选依赖
type StoreOption func(*DocumentStore)

func WithCache(c DocumentCache) StoreOption { return func(s *DocumentStore) { s.cache = c } }

func WithNotifier(n ChangeNotifier) StoreOption { return func(s *DocumentStore) { s.notifier = n } }

func WithEvents(p EventPublisher) StoreOption { return func(s *DocumentStore) { s.events = p } }

func WithClock(now func() time.Time) StoreOption { return func(s *DocumentStore) { s.now = now } }

// DocumentStore 文章文档仓库：读取走缓存、数据库、内置文章三级，
// 写入整体覆盖后失效缓存并广播变更。同一进程内同一文章的修改串行执行。
type DocumentStore struct {
	repo     ArticleRepo
	catalog  *seed.Catalog
	cache    DocumentCache
	notifier ChangeNotifier
	events   EventPublisher
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*articleLock
}

type articleLock struct {
	mu   sync.Mutex
	refs int
}

func NewDocumentStore(repo ArticleRepo, catalog *seed.Catalog, opts ...StoreOption) *DocumentStore {
	if catalog == nil {
		catalog = seed.Empty()
	}
	s := &DocumentStore{
		repo:    repo,
		catalog: catalog,
		now:     time.Now,
		locks:   make(map[string]*articleLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now 当前时间
func (s *DocumentStore) Now() time.Time {
	return s.now()
}

// lock 获取文章级互斥锁，返回解锁函数
func (s *DocumentStore) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &articleLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Load 读取文章文档，返回的文档可由调用方自由修改。
// 缓存未命中时在文章锁内回填，回填与写入不会交错。
func (s *DocumentStore) Load(ctx context.Context, id string) (*model.Article, error) {
	if s.cache == nil {
		return s.loadFresh(ctx, id)
	}
	if a, ok := s.cache.Get(ctx, id); ok {
		return a, nil
	}

	unlock := s.lock(id)
	defer unlock()

	// 等锁期间可能已有其他读者回填
	if a, ok := s.cache.Get(ctx, id); ok {
		return a, nil
	}
	a, err := s.loadFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, a); err != nil {
		logger.Warn("Article cache write failed", zap.String("article_id", id), zap.Error(err))
	}
	return a, nil
}

// loadFresh 绕过缓存读取数据库，数据库没有时回退到未删除的内置文章
func (s *DocumentStore) loadFresh(ctx context.Context, id string) (*model.Article, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	seeded, ok := s.catalog.Get(id)
	if !ok {
		return nil, ErrArticleNotFound
	}
	dead, err := s.repo.IsTombstoned(ctx, id)
	if err != nil {
		return nil, err
	}
	if dead {
		return nil, ErrArticleNotFound
	}
	return seeded, nil
}

// LoadForest 读取文章并解析评论森林
func (s *DocumentStore) LoadForest(ctx context.Context, id string) (*model.Article, commenttree.Forest, error) {
	a, err := s.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.forestOf(a)
	if err != nil {
		return nil, nil, err
	}
	return a, f, nil
}

func (s *DocumentStore) forestOf(a *model.Article) (commenttree.Forest, error) {
	f, err := a.Forest(s.now())
	if err != nil {
		logger.Error("Article forest unreadable", zap.String("article_id", a.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDocumentCorrupted, err)
	}
	return f, nil
}

// List 合并数据库文章与内置文章
func (s *DocumentStore) List(ctx context.Context) ([]model.Article, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	tombstones, err := s.repo.TombstonedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return seed.Merge(stored, s.catalog, tombstones), nil
}

// Change 一次写入的描述
type Change struct {
	Reason    string
	CommentID string
}

// Create 写入新文章
func (s *DocumentStore) Create(ctx context.Context, a *model.Article) error {
	unlock := s.lock(a.ID)
	defer unlock()

	if err := s.repo.Upsert(ctx, a); err != nil {
		return err
	}
	s.afterWrite(ctx, a.ID, Change{Reason: ReasonArticleCreated}, kafka.EventArticleUpserted)
	return nil
}

// Mutate 在文章锁内读取最新文档、执行修改并整体写回。
// fn 返回错误时不写回。
func (s *DocumentStore) Mutate(ctx context.Context, id, reason string, fn func(a *model.Article) (commentID string, err error)) (*model.Article, error) {
	unlock := s.lock(id)
	defer unlock()

	a, err := s.loadFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	commentID, err := fn(a)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, a); err != nil {
		return nil, err
	}
	s.afterWrite(ctx, id, Change{Reason: reason, CommentID: commentID}, kafka.EventArticleUpserted)
	return a, nil
}

// MutateTree 在文章锁内把评论森林建成索引树交给 fn 修改，成功后整体写回。
// 返回写回后的文章与修改后的树。
func (s *DocumentStore) MutateTree(ctx context.Context, id, reason string, fn func(t *commenttree.Tree) (commentID string, err error)) (*model.Article, *commenttree.Tree, error) {
	var tree *commenttree.Tree
	a, err := s.Mutate(ctx, id, reason, func(a *model.Article) (string, error) {
		f, err := s.forestOf(a)
		if err != nil {
			return "", err
		}
		t, err := commenttree.Build(f)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDocumentCorrupted, err)
		}
		commentID, err := fn(t)
		if err != nil {
			return "", err
		}
		if err := a.SetForest(t.Forest()); err != nil {
			return "", err
		}
		tree = t
		return commentID, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return a, tree, nil
}

// Remove 删除文章；仅存在于内置目录的文章先落库再软删除，留下墓碑
func (s *DocumentStore) Remove(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	err := s.repo.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a, lerr := s.loadFresh(ctx, id)
		if lerr != nil {
			return lerr
		}
		if err = s.repo.Upsert(ctx, a); err != nil {
			return err
		}
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		return err
	}
	s.afterWrite(ctx, id, Change{Reason: ReasonArticleDeleted}, kafka.EventArticleDeleted)
	return nil
}

// Watch 订阅文章变更
func (s *DocumentStore) Watch(id string) (<-chan infraRedis.ArticleChange, func(), error) {
	if s.notifier == nil {
		return nil, nil, ErrServiceUnavailable
	}
	ch, cancel := s.notifier.Watch(id)
	return ch, cancel, nil
}

// afterWrite 写入成功后的附带动作，失败只记日志
func (s *DocumentStore) afterWrite(ctx context.Context, id string, change Change, eventType string) {
	at := s.now().UnixMilli()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			logger.Warn("Article cache invalidate failed", zap.String("article_id", id), zap.Error(err))
		}
	}
	if s.notifier != nil {
		msg := infraRedis.ArticleChange{ArticleID: id, Reason: change.Reason, CommentID: change.CommentID, At: at}
		if err := s.notifier.Publish(ctx, msg); err != nil {
			logger.Warn("Article change publish failed", zap.String("article_id", id), zap.Error(err))
		}
	}
	if s.events != nil {
		ev := kafka.ArticleEvent{ArticleID: id, Type: eventType, Reason: change.Reason, CommentID: change.CommentID, OccurredAt: at}
		if err := s.events.PublishArticleEvent(ctx, ev); err != nil {
			logger.Warn("Article event publish failed", zap.String("article_id", id), zap.Error(err))
		}
	}
}
