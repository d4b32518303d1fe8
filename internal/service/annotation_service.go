package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/pkg/timeutil"
)

var ErrParagraphNotFound = errors.New("段落不存在")

// AnnotationService 原文视图：段落划分与段落评论
type AnnotationService struct {
	store *DocumentStore
	ids   commenttree.IDGenerator
	cfg   config.CommentsConfig
}

func NewAnnotationService(store *DocumentStore, ids commenttree.IDGenerator, cfg config.CommentsConfig) *AnnotationService {
	if cfg.BotAuthor == "" {
		cfg.BotAuthor = commenttree.BotAuthor
	}
	return &AnnotationService{store: store, ids: ids, cfg: cfg}
}

// List 返回原文段落；未保存过段落评论时按正文现场划分并关联引用评论
func (s *AnnotationService) List(ctx context.Context, articleID string) (*dto.ParagraphListData, error) {
	a, err := s.store.Load(ctx, articleID)
	if err != nil {
		return nil, err
	}
	ps, err := s.paragraphsOf(a)
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	data := &dto.ParagraphListData{ArticleID: a.ID, Paragraphs: make([]dto.ParagraphInfo, 0, len(ps))}
	for _, p := range ps {
		info := dto.ParagraphInfo{ID: p.ID, Text: p.Text, Comments: make([]dto.ParagraphCommentInfo, 0, len(p.Comments))}
		for _, c := range p.Comments {
			info.Comments = append(info.Comments, s.toParagraphCommentInfo(c, now))
		}
		data.Paragraphs = append(data.Paragraphs, info)
	}
	return data, nil
}

// AddComment 给段落添加评论，首次添加时把当前划分结果一并保存
func (s *AnnotationService) AddComment(ctx context.Context, articleID, paragraphID, author string, req *dto.ParagraphCommentRequest) (*dto.ParagraphCommentInfo, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrCommentEmpty
	}
	if s.cfg.MaxLength > 0 && utf8.RuneCountInString(content) > s.cfg.MaxLength {
		return nil, ErrCommentTooLong
	}

	now := s.store.Now()
	pc := model.ParagraphComment{
		ID:        s.ids.NewID(),
		Author:    author,
		Content:   content,
		Time:      timeutil.JustNow,
		CreatedAt: now.UnixMilli(),
	}

	_, err := s.store.Mutate(ctx, articleID, ReasonParagraphNoted, func(a *model.Article) (string, error) {
		ps, err := s.paragraphsOf(a)
		if err != nil {
			return "", err
		}
		idx := -1
		for i := range ps {
			if ps[i].ID == paragraphID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return "", ErrParagraphNotFound
		}
		ps[idx].Comments = append(ps[idx].Comments, pc)
		return pc.ID, a.SetParagraphs(ps)
	})
	if err != nil {
		return nil, err
	}

	info := s.toParagraphCommentInfo(pc, now)
	return &info, nil
}

func (s *AnnotationService) paragraphsOf(a *model.Article) ([]model.Paragraph, error) {
	ps, err := a.Paragraphs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentCorrupted, err)
	}
	if ps != nil {
		return ps, nil
	}
	f, err := s.store.forestOf(a)
	if err != nil {
		return nil, err
	}
	_, quoted := commenttree.SplitQuoted(f)
	return BuildParagraphs(a.Content, quoted), nil
}

// BuildParagraphs 按空行或换行切分正文，段落 ID 为 p-序号；
// 引用评论关联到第一个与引用文本互相包含的段落
func BuildParagraphs(content string, quoted []commenttree.Comment) []model.Paragraph {
	ps := make([]model.Paragraph, 0)
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		ps = append(ps, model.Paragraph{
			ID:       fmt.Sprintf("p-%d", len(ps)),
			Text:     text,
			Comments: []model.ParagraphComment{},
		})
	}

	for _, c := range quoted {
		q := strings.TrimSpace(c.QuotedText)
		if q == "" {
			continue
		}
		for i := range ps {
			if strings.Contains(ps[i].Text, q) || strings.Contains(q, ps[i].Text) {
				ps[i].Comments = append(ps[i].Comments, model.ParagraphComment{
					ID:        c.ID,
					Author:    c.Author,
					Content:   c.Content,
					Time:      c.Time,
					CreatedAt: c.CreatedAt,
				})
				break
			}
		}
	}
	return ps
}

func (s *AnnotationService) toParagraphCommentInfo(c model.ParagraphComment, now time.Time) dto.ParagraphCommentInfo {
	return dto.ParagraphCommentInfo{
		ID:        c.ID,
		Author:    c.Author,
		Content:   c.Content,
		Time:      commentTimeLabel(c.Time, c.CreatedAt, now),
		CreatedAt: c.CreatedAt,
		IsBot:     c.Author == s.cfg.BotAuthor,
	}
}
