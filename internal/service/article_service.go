package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"
	"github.com/huangchenwei1/Puzle-Read/pkg/timeutil"

	"go.uber.org/zap"
)

var (
	ErrArticleInvalid    = errors.New("请填写标题和内容")
	ErrLinkInvalid       = errors.New("请输入链接地址")
	ErrExportUnavailable = errors.New("导出服务未启用")
)

// 文章来源
const (
	SourceManual = "手动创建"
	SourceLink   = "导入链接"
)

type ArticleService struct {
	store    *DocumentStore
	ids      commenttree.IDGenerator
	exporter ExportStore
}

// NewArticleService exporter 可以为空，此时导出不可用
func NewArticleService(store *DocumentStore, ids commenttree.IDGenerator, exporter ExportStore) *ArticleService {
	return &ArticleService{store: store, ids: ids, exporter: exporter}
}

// List 文章列表，按时间分组
func (s *ArticleService) List(ctx context.Context) (*dto.ArticleListData, error) {
	articles, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	grouped := make(map[string][]dto.ArticleInfo)
	for i := range articles {
		info := s.toArticleInfo(&articles[i], now)
		g := timeutil.Group(info.Timestamp, now)
		grouped[g] = append(grouped[g], info)
	}

	data := &dto.ArticleListData{Groups: []dto.ArticleGroup{}, Total: len(articles)}
	for _, name := range timeutil.GroupOrder {
		if len(grouped[name]) == 0 {
			continue
		}
		data.Groups = append(data.Groups, dto.ArticleGroup{Name: name, Articles: grouped[name]})
	}
	return data, nil
}

// Get 文章详情
func (s *ArticleService) Get(ctx context.Context, id string) (*dto.ArticleInfo, error) {
	a, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	info := s.toArticleInfo(a, s.store.Now())
	return &info, nil
}

// Create 新建文章：手动创建或导入链接
func (s *ArticleService) Create(ctx context.Context, req *dto.ArticleCreateRequest) (*dto.ArticleInfo, error) {
	now := s.store.Now()
	a := &model.Article{
		ID:        s.ids.NewID(),
		Time:      timeutil.JustNow,
		Timestamp: now.UnixMilli(),
		Comments:  []byte("[]"),
	}

	switch req.Type {
	case model.ArticleTypeLink:
		link := strings.TrimSpace(req.URL)
		if link == "" {
			return nil, ErrLinkInvalid
		}
		a.Type = model.ArticleTypeLink
		a.Source = SourceLink
		a.OriginalURL = link
		a.Title = linkTitle(link)
		a.Content = strings.TrimSpace(req.Content)
	default:
		title, content := strings.TrimSpace(req.Title), strings.TrimSpace(req.Content)
		if title == "" || content == "" {
			return nil, ErrArticleInvalid
		}
		a.Type = model.ArticleTypeArticle
		a.Source = SourceManual
		a.Title = title
		a.Content = content
	}

	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	logger.Info("Article created", zap.String("article_id", a.ID), zap.String("type", a.Type))

	info := s.toArticleInfo(a, now)
	return &info, nil
}

// linkTitle 以链接的域名作为标题，无法解析时取前 30 个字符
func linkTitle(link string) string {
	if strings.Contains(link, "://") {
		if u, err := url.Parse(link); err == nil && u.Host != "" {
			return u.Host
		}
		rest := strings.SplitN(link, "://", 2)[1]
		return strings.SplitN(rest, "/", 2)[0]
	}
	r := []rune(link)
	if len(r) > 30 {
		r = r[:30]
	}
	return string(r)
}

// Update 修改标题、正文或讨论状态
func (s *ArticleService) Update(ctx context.Context, id string, req *dto.ArticleUpdateRequest) (*dto.ArticleInfo, error) {
	a, err := s.store.Mutate(ctx, id, ReasonArticleUpdated, func(a *model.Article) (string, error) {
		if req.Title != nil {
			t := strings.TrimSpace(*req.Title)
			if t == "" {
				return "", ErrArticleInvalid
			}
			a.Title = t
		}
		if req.Content != nil {
			c := strings.TrimSpace(*req.Content)
			if c == "" {
				return "", ErrArticleInvalid
			}
			a.Content = c
			// 正文变化后段落划分失效
			a.Annotations = nil
		}
		if req.IsDiscussed != nil {
			a.IsDiscussed = *req.IsDiscussed
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	info := s.toArticleInfo(a, s.store.Now())
	return &info, nil
}

// Delete 删除文章
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	logger.Info("Article deleted", zap.String("article_id", id))
	return nil
}

type articleSnapshot struct {
	Article    dto.ArticleInfo    `json:"article"`
	Comments   commenttree.Forest `json:"comments"`
	ExportedAt time.Time          `json:"exported_at"`
}

// Export 导出文章与完整评论森林的 JSON 快照
func (s *ArticleService) Export(ctx context.Context, id string) (*dto.ExportData, error) {
	if s.exporter == nil {
		return nil, ErrExportUnavailable
	}
	a, f, err := s.store.LoadForest(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	data, err := json.MarshalIndent(articleSnapshot{
		Article:    s.toArticleInfo(a, now),
		Comments:   f,
		ExportedAt: now.UTC(),
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	object := fmt.Sprintf("articles/%s/%d.json", id, now.UnixMilli())
	u, expiresAt, err := s.exporter.PutSnapshot(ctx, object, data)
	if err != nil {
		return nil, err
	}
	logger.Info("Article exported", zap.String("article_id", id), zap.String("object", object))

	return &dto.ExportData{ArticleID: id, Object: object, URL: u, ExpiresAt: expiresAt}, nil
}

func (s *ArticleService) toArticleInfo(a *model.Article, now time.Time) dto.ArticleInfo {
	count := 0
	if f, err := a.Forest(now); err != nil {
		logger.Warn("Comment count unavailable", zap.String("article_id", a.ID), zap.Error(err))
	} else {
		count = commenttree.CountAll(f)
	}

	label := a.Time
	if a.Timestamp > 0 {
		label = timeutil.LabelMillis(a.Timestamp, now)
	}
	return dto.ArticleInfo{
		ID:           a.ID,
		Title:        a.Title,
		Content:      a.Content,
		PuzleReply:   a.PuzleReply,
		Source:       a.Source,
		Time:         label,
		Timestamp:    a.Timestamp,
		IsDiscussed:  a.IsDiscussed,
		ImageURL:     a.ImageURL,
		Type:         a.Type,
		MediaType:    a.MediaType,
		OriginalURL:  a.OriginalURL,
		CommentCount: count,
	}
}
