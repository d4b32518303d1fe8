package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/internal/repository"
	"github.com/huangchenwei1/Puzle-Read/internal/repository/repotest"

	"gorm.io/gorm"
)

func newArticle(id string, ts int64) *model.Article {
	return &model.Article{
		ID:        id,
		Title:     "标题 " + id,
		Content:   "正文 " + id,
		Source:    "手动创建",
		Time:      "刚刚",
		Timestamp: ts,
		Type:      model.ArticleTypeArticle,
	}
}

func TestArticleUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewArticleRepository(repotest.NewDB(t))

	a := newArticle("a1", 100)
	forest, _ := commenttree.InsertRoot(nil, commenttree.Comment{ID: "c1", Author: "我", Content: "第一条", Time: "刚刚", CreatedAt: 1})
	forest, _ = commenttree.InsertReply(forest, "c1", commenttree.Comment{ID: "c2", Author: "Puzle", Content: "回复", Time: "刚刚", CreatedAt: 2})
	if err := a.SetForest(forest); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	back, err := got.Forest(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if commenttree.CountAll(back) != 2 || back[0].Replies[0].Depth != 1 {
		t.Errorf("forest after reload = %+v", back)
	}

	// 整体覆盖写
	forest, _ = commenttree.DeleteSubtree(forest, "c2")
	_ = got.SetForest(forest)
	got.Title = "改过的标题"
	if err := repo.Upsert(ctx, got); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	again, _ := repo.GetByID(ctx, "a1")
	back, _ = again.Forest(time.Now())
	if again.Title != "改过的标题" || commenttree.CountAll(back) != 1 {
		t.Errorf("overwrite lost: title=%q count=%d", again.Title, commenttree.CountAll(back))
	}
}

func TestArticleListAndTombstones(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewArticleRepository(repotest.NewDB(t))

	for i, id := range []string{"old", "new", "mid"} {
		if err := repo.Upsert(ctx, newArticle(id, []int64{1, 3, 2}[i])); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "new" || list[2].ID != "old" {
		t.Fatalf("list order = %v", ids(list))
	}

	if err := repo.Delete(ctx, "mid"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "mid"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	if _, err := repo.GetByID(ctx, "mid"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("deleted article still readable: %v", err)
	}

	tomb, err := repo.TombstonedIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tomb) != 1 || tomb[0] != "mid" {
		t.Errorf("tombstones = %v", tomb)
	}
	list, _ = repo.List(ctx)
	if len(list) != 2 {
		t.Errorf("list after delete = %v", ids(list))
	}

	for id, want := range map[string]bool{"mid": true, "new": false, "missing": false} {
		got, err := repo.IsTombstoned(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("IsTombstoned(%s) = %v, want %v", id, got, want)
		}
	}
}

func TestArticleSearchFallback(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewArticleRepository(repotest.NewDB(t))

	a := newArticle("a1", 1)
	a.Title = "Go 并发模型"
	b := newArticle("b1", 2)
	_ = b.SetForest(commenttree.Forest{{ID: "c1", Author: "我", Content: "讨论一下goroutine调度", Time: "刚刚"}})
	c := newArticle("c1", 3)
	for _, art := range []*model.Article{a, b, c} {
		if err := repo.Upsert(ctx, art); err != nil {
			t.Fatal(err)
		}
	}

	got, total, err := repo.Search(ctx, "go", 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].ID != "b1" || got[1].ID != "a1" {
		t.Errorf("search = %v (total %d)", ids(got), total)
	}

	got, total, _ = repo.Search(ctx, "go", 1, 10)
	if total != 2 || len(got) != 1 {
		t.Errorf("paged search = %v (total %d)", ids(got), total)
	}
}

func ids(list []model.Article) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].ID
	}
	return out
}
