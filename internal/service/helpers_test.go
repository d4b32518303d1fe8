package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
	infraES "github.com/huangchenwei1/Puzle-Read/internal/infra/elasticsearch"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/kafka"
	infraRedis "github.com/huangchenwei1/Puzle-Read/internal/infra/redis"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/internal/repository"
	"github.com/huangchenwei1/Puzle-Read/internal/repository/repotest"
	"github.com/huangchenwei1/Puzle-Read/internal/seed"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

const testCatalog = `
articles:
  - id: "1"
    title: 内置文章
    content: |
      第一段讲技术。

      第二段讲学习。
    source: TechCrunch
    age: 2h
    comments:
      - id: s1
        author: Puzle
        age: 1h
        content: 机器人的第一条
      - id: s2
        author: 我
        age: 30m
        content: 关于学习
        quoted_text: 第二段讲学习
        replies:
          - id: s2-r1
            author: Puzle
            age: 20m
            content: 回复引用
  - id: "2"
    title: 另一篇内置文章
    content: 正文
    age: 48h
`

// seqIDs 可预测的 ID 生成器
type seqIDs struct {
	prefix string
	n      atomic.Int64
}

func (g *seqIDs) NewID() string {
	return fmt.Sprintf("%s%d", g.prefix, g.n.Add(1))
}

type memCache struct {
	mu          sync.Mutex
	items       map[string]*model.Article
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string]*model.Article)}
}

func (c *memCache) Get(_ context.Context, id string) (*model.Article, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (c *memCache) Set(_ context.Context, a *model.Article) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[a.ID] = a.Clone()
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []kafka.ArticleEvent
	fail   bool
}

func (r *recordedEvents) PublishArticleEvent(_ context.Context, ev kafka.ArticleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordedEvents) snapshot() []kafka.ArticleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.ArticleEvent(nil), r.events...)
}

type fakeIndex struct {
	result  *infraES.SearchResult
	err     error
	synced  []string
	deleted []string
	bulk    int
}

func (f *fakeIndex) SearchArticles(context.Context, string, int, int) (*infraES.SearchResult, error) {
	return f.result, f.err
}

func (f *fakeIndex) SyncArticle(_ context.Context, a *model.Article) error {
	f.synced = append(f.synced, a.ID)
	return nil
}

func (f *fakeIndex) DeleteArticle(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) BulkSyncArticles(_ context.Context, articles []model.Article) (int, int, error) {
	f.bulk = len(articles)
	return len(articles), 0, nil
}

type fakeExporter struct {
	objects map[string][]byte
}

func (f *fakeExporter) PutSnapshot(_ context.Context, objectName string, data []byte) (string, time.Time, error) {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[objectName] = data
	return "http://minio.local/" + objectName, testNow.Add(time.Hour), nil
}

// fixture 一套基于内存 SQLite 的服务
type fixture struct {
	repo     *repository.ArticleRepository
	users    *repository.UserRepository
	store    *DocumentStore
	cache    *memCache
	notifier *infraRedis.Notifier
	events   *recordedEvents
	ids      *seqIDs
	cfg      config.CommentsConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.NewDB(t)
	catalog, err := seed.Parse([]byte(testCatalog), testNow)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	fx := &fixture{
		repo:     repository.NewArticleRepository(db),
		users:    repository.NewUserRepository(db),
		cache:    newMemCache(),
		notifier: infraRedis.NewNotifier(nil, "test"),
		events:   &recordedEvents{},
		ids:      &seqIDs{prefix: "id-"},
		cfg: config.CommentsConfig{
			OrphanPolicy:   config.OrphanAttach,
			BotAuthor:      "Puzle",
			MaxIndentDepth: 8,
			MaxLength:      2000,
		},
	}
	fx.store = NewDocumentStore(fx.repo, catalog,
		WithCache(fx.cache),
		WithNotifier(fx.notifier),
		WithEvents(fx.events),
		WithClock(func() time.Time { return testNow }),
	)
	return fx
}

func (fx *fixture) comments() *CommentService {
	return NewCommentService(fx.store, fx.ids, fx.cfg)
}

func (fx *fixture) articles(exporter ExportStore) *ArticleService {
	return NewArticleService(fx.store, fx.ids, exporter)
}
