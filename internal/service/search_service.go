package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"
	"github.com/huangchenwei1/Puzle-Read/pkg/timeutil"

	"go.uber.org/zap"
)

var ErrSearchKeywordEmpty = errors.New("搜索关键词不能为空")

// 搜索引擎标识
const (
	EngineES = "elasticsearch"
	EngineDB = "database"
)

type SearchService struct {
	store *DocumentStore
	repo  ArticleRepo
	index SearchIndex
}

// NewSearchService index 为空时只使用数据库检索
func NewSearchService(store *DocumentStore, repo ArticleRepo, index SearchIndex) *SearchService {
	return &SearchService{store: store, repo: repo, index: index}
}

// Search 搜索文章（ES 优先，失败则降级到 DB）
func (s *SearchService) Search(ctx context.Context, req *dto.SearchArticleRequest) (*dto.SearchArticleData, error) {
	if strings.TrimSpace(req.Q) == "" {
		return nil, ErrSearchKeywordEmpty
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	if s.index != nil {
		data, err := s.searchFromES(ctx, req)
		if err == nil {
			return data, nil
		}
		logger.Warn("ES search failed, fallback to DB", zap.Error(err))
	}
	return s.searchFromDB(ctx, req)
}

func (s *SearchService) searchFromES(ctx context.Context, req *dto.SearchArticleRequest) (*dto.SearchArticleData, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.index.SearchArticles(ctx, req.Q, (req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	items := make([]dto.SearchArticleInfo, 0, len(result.Hits))
	for _, h := range result.Hits {
		a, err := s.store.Load(ctx, h.ID)
		if err != nil {
			// 索引滞后于删除
			if !errors.Is(err, ErrArticleNotFound) {
				logger.Warn("Search hit unreadable", zap.String("article_id", h.ID), zap.Error(err))
			}
			continue
		}
		info := toSearchInfo(a, now)
		info.Highlight = h.Highlight
		items = append(items, info)
	}
	return buildSearchData(items, result.Total, req, EngineES), nil
}

func (s *SearchService) searchFromDB(ctx context.Context, req *dto.SearchArticleRequest) (*dto.SearchArticleData, error) {
	articles, total, err := s.repo.Search(ctx, req.Q, (req.Page-1)*req.PageSize, req.PageSize)
	if err != nil {
		return nil, err
	}
	now := s.store.Now()
	items := make([]dto.SearchArticleInfo, 0, len(articles))
	for i := range articles {
		items = append(items, toSearchInfo(&articles[i], now))
	}
	return buildSearchData(items, total, req, EngineDB), nil
}

func toSearchInfo(a *model.Article, now time.Time) dto.SearchArticleInfo {
	count := 0
	if f, err := a.Forest(now); err == nil {
		count = commenttree.CountAll(f)
	}
	label := a.Time
	if a.Timestamp > 0 {
		label = timeutil.LabelMillis(a.Timestamp, now)
	}
	return dto.SearchArticleInfo{
		ID:           a.ID,
		Title:        a.Title,
		Source:       a.Source,
		Time:         label,
		Timestamp:    a.Timestamp,
		Type:         a.Type,
		CommentCount: count,
	}
}

func buildSearchData(items []dto.SearchArticleInfo, total int64, req *dto.SearchArticleRequest, engine string) *dto.SearchArticleData {
	return &dto.SearchArticleData{
		Articles:   items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: (total + int64(req.PageSize) - 1) / int64(req.PageSize),
		Engine:     engine,
	}
}

// SyncArticle 同步单篇文章到 ES，文章已不存在时从索引删除
func (s *SearchService) SyncArticle(ctx context.Context, id string) error {
	if s.index == nil {
		return ErrServiceUnavailable
	}
	a, err := s.store.loadFresh(ctx, id)
	if errors.Is(err, ErrArticleNotFound) {
		return s.index.DeleteArticle(ctx, id)
	}
	if err != nil {
		return err
	}
	return s.index.SyncArticle(ctx, a)
}

// Reindex 全量重建索引，包括未落库的内置文章
func (s *SearchService) Reindex(ctx context.Context) (*dto.SyncResultData, error) {
	if s.index == nil {
		return nil, ErrServiceUnavailable
	}
	articles, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return &dto.SyncResultData{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	success, failed, err := s.index.BulkSyncArticles(ctx, articles)
	if err != nil {
		return nil, err
	}
	return &dto.SyncResultData{Success: success, Failed: failed}, nil
}
