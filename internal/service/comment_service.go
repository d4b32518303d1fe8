package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangchenwei1/Puzle-Read/internal/api/dto"
	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"
	"github.com/huangchenwei1/Puzle-Read/pkg/timeutil"

	"go.uber.org/zap"
)

var (
	ErrCommentNotFound = errors.New("评论不存在")
	ErrParentNotFound  = errors.New("父评论不存在")
	ErrCommentEmpty    = errors.New("评论内容不能为空")
	ErrCommentTooLong  = errors.New("评论内容过长")
	ErrInvalidVote     = errors.New("投票方向只能是 up 或 down")
	ErrInvalidSort     = errors.New("排序方式只能是 created、activity 或 none")
)

type CommentService struct {
	store *DocumentStore
	ids   commenttree.IDGenerator
	cfg   config.CommentsConfig
}

func NewCommentService(store *DocumentStore, ids commenttree.IDGenerator, cfg config.CommentsConfig) *CommentService {
	if cfg.BotAuthor == "" {
		cfg.BotAuthor = commenttree.BotAuthor
	}
	if cfg.OrphanPolicy == "" {
		cfg.OrphanPolicy = config.OrphanAttach
	}
	return &CommentService{store: store, ids: ids, cfg: cfg}
}

// List 讨论区评论：排除引用原文的顶层评论，按 sort 排序顶层
func (s *CommentService) List(ctx context.Context, articleID, sort string) (*dto.CommentListData, error) {
	key, ok := commenttree.ParseSortKey(sort)
	if !ok {
		return nil, ErrInvalidSort
	}
	_, f, err := s.store.LoadForest(ctx, articleID)
	if err != nil {
		return nil, err
	}

	discussion, _ := commenttree.SplitQuoted(f)
	discussion = commenttree.SortRoots(discussion, key)
	return &dto.CommentListData{
		Comments: s.toCommentInfos(discussion, s.store.Now()),
		Total:    commenttree.CountAll(discussion),
		AllTotal: commenttree.CountAll(f),
		Sort:     string(key),
	}, nil
}

// Quoted 引用原文的评论（所有层级，先序）
func (s *CommentService) Quoted(ctx context.Context, articleID string) (*dto.QuotedListData, error) {
	_, f, err := s.store.LoadForest(ctx, articleID)
	if err != nil {
		return nil, err
	}
	_, quoted := commenttree.SplitQuoted(f)

	now := s.store.Now()
	items := make([]dto.CommentInfo, 0, len(quoted))
	for i := range quoted {
		info := s.toCommentInfo(&quoted[i], now)
		info.Replies = []dto.CommentInfo{}
		items = append(items, info)
	}
	return &dto.QuotedListData{Comments: items, Total: len(items)}, nil
}

// Create 发表评论：parent_id 为空为顶层评论，否则为回复
func (s *CommentService) Create(ctx context.Context, articleID, author string, req *dto.CommentCreateRequest) (*dto.CommentInfo, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrCommentEmpty
	}
	if s.cfg.MaxLength > 0 && utf8.RuneCountInString(content) > s.cfg.MaxLength {
		return nil, ErrCommentTooLong
	}

	now := s.store.Now()
	c := commenttree.Comment{
		ID:         s.ids.NewID(),
		Author:     author,
		Content:    content,
		Time:       timeutil.JustNow,
		CreatedAt:  now.UnixMilli(),
		QuotedText: strings.TrimSpace(req.QuotedText),
	}
	parentID := strings.TrimSpace(req.ParentID)

	var stored commenttree.Comment
	_, _, err := s.store.MutateTree(ctx, articleID, ReasonCommentCreated, func(t *commenttree.Tree) (string, error) {
		inserted, err := s.insert(t, parentID, c)
		if err != nil {
			return "", err
		}
		stored = inserted
		return inserted.ID, nil
	})
	if err != nil {
		return nil, err
	}

	if stored.Orphaned {
		logger.Warn("Reply attached as root, parent missing",
			zap.String("article_id", articleID),
			zap.String("comment_id", stored.ID),
			zap.String("parent_id", parentID),
		)
	}
	info := s.toCommentInfo(&stored, now)
	return &info, nil
}

// insert 按孤儿策略插入：attach 挂到顶层，reject 报父评论不存在
func (s *CommentService) insert(t *commenttree.Tree, parentID string, c commenttree.Comment) (commenttree.Comment, error) {
	if parentID == "" {
		return t.AddRoot(c)
	}
	if s.cfg.OrphanPolicy == config.OrphanReject {
		stored, err := t.AddReply(parentID, c)
		if errors.Is(err, commenttree.ErrParentNotFound) {
			return commenttree.Comment{}, ErrParentNotFound
		}
		return stored, err
	}
	return t.Attach(parentID, c)
}

// Vote 切换投票，同方向再次投票取消
func (s *CommentService) Vote(ctx context.Context, articleID, commentID, direction string) (*dto.CommentInfo, error) {
	dir, ok := commenttree.ParseVote(direction)
	if !ok {
		return nil, ErrInvalidVote
	}

	_, t, err := s.store.MutateTree(ctx, articleID, ReasonCommentVoted, func(t *commenttree.Tree) (string, error) {
		if _, ok := t.ToggleVote(commentID, dir); !ok {
			return "", ErrCommentNotFound
		}
		return commentID, nil
	})
	if err != nil {
		return nil, err
	}

	c, _ := t.Find(commentID)
	info := s.toCommentInfo(&c, s.store.Now())
	return &info, nil
}

// Delete 删除评论及其全部回复
func (s *CommentService) Delete(ctx context.Context, articleID, commentID string) (*dto.CommentDeleteData, error) {
	removed := 0
	_, t, err := s.store.MutateTree(ctx, articleID, ReasonCommentDeleted, func(t *commenttree.Tree) (string, error) {
		removed = t.Remove(commentID)
		if removed == 0 {
			return "", ErrCommentNotFound
		}
		return commentID, nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.CommentDeleteData{Removed: removed, Total: t.Len()}, nil
}

// toCommentInfos 转换整棵森林，缩进层级封顶
func (s *CommentService) toCommentInfos(f commenttree.Forest, now time.Time) []dto.CommentInfo {
	out := make([]dto.CommentInfo, 0, len(f))
	for i := range f {
		out = append(out, s.toCommentInfo(&f[i], now))
	}
	return out
}

func (s *CommentService) toCommentInfo(c *commenttree.Comment, now time.Time) dto.CommentInfo {
	info := dto.CommentInfo{
		ID:           c.ID,
		Author:       c.Author,
		Content:      c.Content,
		Time:         commentTimeLabel(c.Time, c.CreatedAt, now),
		CreatedAt:    c.CreatedAt,
		Depth:        c.Depth,
		IndentLevel:  indentLevel(c.Depth, s.cfg.MaxIndentDepth),
		Score:        c.Score,
		QuotedText:   c.QuotedText,
		Orphaned:     c.Orphaned,
		IsBot:        c.Author == s.cfg.BotAuthor,
		TotalReplies: commenttree.CountAll(c.Replies),
		Replies:      s.toCommentInfos(c.Replies, now),
	}
	if c.ParentID != "" {
		pid := c.ParentID
		info.ParentID = &pid
	}
	if c.VoteStatus != commenttree.VoteNone {
		v := string(c.VoteStatus)
		info.VoteStatus = &v
	}
	return info
}

// commentTimeLabel 有时间戳时按当前时间重新生成文案
func commentTimeLabel(label string, createdAt int64, now time.Time) string {
	if createdAt > 0 {
		return timeutil.LabelMillis(createdAt, now)
	}
	return label
}

func indentLevel(depth, limit int) int {
	if limit > 0 && depth > limit {
		return limit
	}
	return depth
}
