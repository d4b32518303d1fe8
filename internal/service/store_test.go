package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/infra/kafka"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
)

func TestStoreLoadFallsBackToSeed(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	a, err := fx.store.Load(ctx, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Title != "内置文章" {
		t.Errorf("title = %q", a.Title)
	}
	if _, ok := fx.cache.Get(ctx, "1"); !ok {
		t.Error("seed article should be cached after load")
	}

	if _, err := fx.store.Load(ctx, "missing"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestStoreMutatePersistsSeedAndNotifies(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	ch, cancel := fx.notifier.Watch("1")
	defer cancel()

	// 先读一次，确认写入后缓存被失效
	if _, err := fx.store.Load(ctx, "1"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, _, err := fx.store.MutateTree(ctx, "1", ReasonCommentCreated, func(tree *commenttree.Tree) (string, error) {
		c, err := tree.AddRoot(commenttree.Comment{ID: "n1", Author: "我", Content: "新评论"})
		return c.ID, err
	})
	if err != nil {
		t.Fatalf("MutateTree: %v", err)
	}

	if _, ok := fx.cache.Get(ctx, "1"); ok {
		t.Error("cache should be invalidated after write")
	}

	stored, err := fx.repo.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("seed article should now be persisted: %v", err)
	}
	f, err := stored.Forest(testNow)
	if err != nil {
		t.Fatalf("Forest: %v", err)
	}
	if got := commenttree.CountAll(f); got != 4 {
		t.Errorf("comment count = %d, want 4", got)
	}

	select {
	case change := <-ch:
		if change.ArticleID != "1" || change.Reason != ReasonCommentCreated || change.CommentID != "n1" {
			t.Errorf("change = %+v", change)
		}
		if change.At != testNow.UnixMilli() {
			t.Errorf("change.At = %d", change.At)
		}
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	events := fx.events.snapshot()
	if len(events) != 1 || events[0].Type != kafka.EventArticleUpserted || events[0].CommentID != "n1" {
		t.Errorf("events = %+v", events)
	}
}

func TestStoreMutateErrorDoesNotWrite(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := fx.store.Mutate(ctx, "1", ReasonArticleUpdated, func(a *model.Article) (string, error) {
		a.Title = "改过"
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, err := fx.repo.GetByID(ctx, "1"); err == nil {
		t.Error("failed mutation must not persist the seed article")
	}
	if n := len(fx.events.snapshot()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestStoreSideEffectFailuresAreIgnored(t *testing.T) {
	fx := newFixture(t)
	fx.events.fail = true
	ctx := context.Background()

	_, err := fx.store.Mutate(ctx, "2", ReasonArticleUpdated, func(a *model.Article) (string, error) {
		a.IsDiscussed = true
		return "", nil
	})
	if err != nil {
		t.Fatalf("event failure should not fail the write: %v", err)
	}
	a, err := fx.store.Load(ctx, "2")
	if err != nil || !a.IsDiscussed {
		t.Fatalf("Load = %+v, %v", a, err)
	}
}

func TestStoreRemoveSeedLeavesTombstone(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.store.Remove(ctx, "2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := fx.store.Load(ctx, "2"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("deleted seed should not resurrect, err = %v", err)
	}

	list, err := fx.store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, a := range list {
		if a.ID == "2" {
			t.Error("deleted seed article still listed")
		}
	}
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}

	events := fx.events.snapshot()
	if len(events) != 1 || events[0].Type != kafka.EventArticleDeleted {
		t.Errorf("events = %+v", events)
	}

	if err := fx.store.Remove(ctx, "2"); !errors.Is(err, ErrArticleNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestStoreCorruptedDocument(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	bad := &model.Article{ID: "bad", Title: "坏数据", Timestamp: testNow.UnixMilli(), Comments: []byte(`{"not":"a list"}`)}
	if err := fx.repo.Upsert(ctx, bad); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, _, err := fx.store.LoadForest(ctx, "bad"); !errors.Is(err, ErrDocumentCorrupted) {
		t.Errorf("err = %v, want ErrDocumentCorrupted", err)
	}
}

func TestStoreConcurrentCommentsAreNotLost(t *testing.T) {
	fx := newFixture(t)
	svc := fx.comments()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(ctx, "2", "我", &dto.CommentCreateRequest{Content: fmt.Sprintf("评论%d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	_, f, err := fx.store.LoadForest(ctx, "2")
	if err != nil {
		t.Fatalf("LoadForest: %v", err)
	}
	if got := commenttree.CountAll(f); got != n {
		t.Errorf("comments = %d, want %d", got, n)
	}
}

func TestStoreWatchWithoutNotifier(t *testing.T) {
	store := NewDocumentStore(newFixture(t).repo, nil)
	if _, _, err := store.Watch("1"); !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("err = %v", err)
	}
}

// pausedRepo 第一次 GetByID 读完后停住，直到 release 关闭
type pausedRepo struct {
	ArticleRepo
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (r *pausedRepo) GetByID(ctx context.Context, id string) (*model.Article, error) {
	a, err := r.ArticleRepo.GetByID(ctx, id)
	r.once.Do(func() {
		close(r.reached)
		<-r.release
	})
	return a, err
}

func TestStoreCacheFillDoesNotHideConcurrentWrite(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	repo := &pausedRepo{ArticleRepo: fx.repo, reached: make(chan struct{}), release: make(chan struct{})}
	store := NewDocumentStore(repo, fx.store.catalog,
		WithCache(fx.cache),
		WithClock(func() time.Time { return testNow }),
	)

	// 读者未命中缓存，读到旧文档后停住
	readDone := make(chan error, 1)
	go func() {
		_, err := store.Load(ctx, "1")
		readDone <- err
	}()
	<-repo.reached

	writeDone := make(chan error, 1)
	go func() {
		_, _, err := store.MutateTree(ctx, "1", ReasonCommentCreated, func(tree *commenttree.Tree) (string, error) {
			c, err := tree.AddRoot(commenttree.Comment{ID: "n1", Author: "我", Content: "新评论"})
			return c.ID, err
		})
		writeDone <- err
	}()

	written := false
	var writeErr error
	select {
	case writeErr = <-writeDone:
		written = true
	case <-time.After(50 * time.Millisecond):
	}
	close(repo.release)

	if err := <-readDone; err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !written {
		writeErr = <-writeDone
	}
	if writeErr != nil {
		t.Fatalf("MutateTree: %v", writeErr)
	}

	_, f, err := store.LoadForest(ctx, "1")
	if err != nil {
		t.Fatalf("LoadForest: %v", err)
	}
	if _, ok := commenttree.FindNode(f, "n1"); !ok {
		t.Errorf("committed comment invisible after cache fill, count = %d", commenttree.CountAll(f))
	}
	if got := commenttree.CountAll(f); got != 4 {
		t.Errorf("comment count = %d, want 4", got)
	}
}
