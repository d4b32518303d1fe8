package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/pkg/logger"

	"go.uber.org/zap"
)

// ESArticleDoc ES 文章文档结构
type ESArticleDoc struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	CommentText    string   `json:"comment_text"`
	CommentAuthors []string `json:"comment_authors"`
	Source         string   `json:"source"`
	Type           string   `json:"type"`
	CommentCount   int      `json:"comment_count"`
	IsDiscussed    bool     `json:"is_discussed"`
	Timestamp      int64    `json:"timestamp"`
	UpdatedAt      string   `json:"updated_at"`
}

// articleToESDoc 展开评论森林，评论正文拼接为一个可检索字段
func articleToESDoc(a *model.Article, now time.Time) (*ESArticleDoc, error) {
	f, err := a.Forest(now)
	if err != nil {
		return nil, err
	}
	flat := commenttree.Flatten(f)

	texts := make([]string, 0, len(flat))
	seen := make(map[string]bool)
	authors := make([]string, 0)
	for _, c := range flat {
		if c.Content != "" {
			texts = append(texts, c.Content)
		}
		if c.QuotedText != "" {
			texts = append(texts, c.QuotedText)
		}
		if c.Author != "" && !seen[c.Author] {
			seen[c.Author] = true
			authors = append(authors, c.Author)
		}
	}

	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = now
	}
	return &ESArticleDoc{
		ID:             a.ID,
		Title:          a.Title,
		Content:        a.Content,
		CommentText:    strings.Join(texts, "\n"),
		CommentAuthors: authors,
		Source:         a.Source,
		Type:           a.Type,
		CommentCount:   len(flat),
		IsDiscussed:    a.IsDiscussed,
		Timestamp:      a.Timestamp,
		UpdatedAt:      updated.UTC().Format(time.RFC3339),
	}, nil
}

// ArticleIndex 绑定索引名的文章索引操作
type ArticleIndex struct {
	index string
}

func NewArticleIndex(index string) *ArticleIndex {
	return &ArticleIndex{index: index}
}

// SyncArticle 同步单篇文章到 ES
func (x *ArticleIndex) SyncArticle(ctx context.Context, a *model.Article) error {
	doc, err := articleToESDoc(a, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	resp, err := Index(ctx, x.index, a.ID, bytes.NewReader(body), false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("index document failed: %s", resp.String())
	}

	logger.Debug("Article synced to ES", zap.String("article_id", a.ID), zap.Int("comments", doc.CommentCount))
	return nil
}

// DeleteArticle 从 ES 删除文章，文档不存在不算错误
func (x *ArticleIndex) DeleteArticle(ctx context.Context, id string) error {
	resp, err := Delete(ctx, x.index, id)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() && resp.StatusCode != 404 {
		return fmt.Errorf("delete document failed: %s", resp.String())
	}
	return nil
}

// bulkBody 生成 bulk NDJSON，无法解析评论的文章跳过并计入 skipped
func bulkBody(index string, articles []model.Article, now time.Time) (string, int) {
	var buf strings.Builder
	skipped := 0
	for i := range articles {
		doc, err := articleToESDoc(&articles[i], now)
		if err != nil {
			logger.Warn("Skip article in bulk sync", zap.String("article_id", articles[i].ID), zap.Error(err))
			skipped++
			continue
		}
		docBody, _ := json.Marshal(doc)
		meta, _ := json.Marshal(map[string]any{"index": map[string]string{"_index": index, "_id": doc.ID}})

		buf.Write(meta)
		buf.WriteString("\n")
		buf.Write(docBody)
		buf.WriteString("\n")
	}
	return buf.String(), skipped
}

// BulkSyncArticles 批量同步文章到 ES
func (x *ArticleIndex) BulkSyncArticles(ctx context.Context, articles []model.Article) (success, failed int, err error) {
	body, skipped := bulkBody(x.index, articles, time.Now())
	if body == "" {
		return 0, skipped, nil
	}

	resp, err := Bulk(ctx, strings.NewReader(body))
	if err != nil {
		return 0, len(articles), err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return 0, len(articles), fmt.Errorf("bulk failed: %s", resp.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				Status int `json:"status"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return len(articles) - skipped, skipped, nil
	}

	failed = skipped
	for _, item := range bulkResp.Items {
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			success++
		} else {
			failed++
		}
	}

	logger.Info("Bulk sync to ES completed", zap.Int("success", success), zap.Int("failed", failed))
	return success, failed, nil
}

// SearchHit 一条命中
type SearchHit struct {
	ID        string
	Score     float64
	Highlight map[string][]string
}

// SearchResult 检索结果，命中按相关度排序
type SearchResult struct {
	Total int64
	Hits  []SearchHit
}

// buildArticleQuery 标题权重最高，其次正文，评论最低
func buildArticleQuery(q string, from, size int) map[string]any {
	q = strings.TrimSpace(q)
	match := map[string]any{
		"multi_match": map[string]any{
			"query":    q,
			"fields":   []string{"title^3", "content^2", "comment_text^1"},
			"type":     "best_fields",
			"operator": "or",
		},
	}
	// 短词不设最小匹配比例
	if len([]rune(q)) > 2 {
		match["multi_match"].(map[string]any)["minimum_should_match"] = "50%"
	}

	return map[string]any{
		"query":   map[string]any{"bool": map[string]any{"must": []any{match}}},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
		"sort": []any{
			map[string]any{"_score": map[string]string{"order": "desc"}},
			map[string]any{"timestamp": map[string]string{"order": "desc"}},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"title":        map[string]any{},
				"content":      map[string]any{"fragment_size": 120, "number_of_fragments": 1},
				"comment_text": map[string]any{"fragment_size": 80, "number_of_fragments": 2},
			},
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
		},
	}
}

// SearchArticles 全文检索文章，只返回命中 id 与高亮
func (x *ArticleIndex) SearchArticles(ctx context.Context, q string, from, size int) (*SearchResult, error) {
	queryJSON, err := json.Marshal(buildArticleQuery(q, from, size))
	if err != nil {
		return nil, err
	}

	resp, err := Search(ctx, x.index, bytes.NewReader(queryJSON))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("ES search error: %s", resp.String())
	}

	var esResp struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&esResp); err != nil {
		return nil, err
	}

	result := &SearchResult{Total: esResp.Hits.Total.Value, Hits: make([]SearchHit, 0, len(esResp.Hits.Hits))}
	for _, h := range esResp.Hits.Hits {
		result.Hits = append(result.Hits, SearchHit{ID: h.Source.ID, Score: h.Score, Highlight: h.Highlight})
	}
	return result, nil
}
