// Package seed 加载内置文章，并与已保存的文章合并成文章列表
package seed

import (
	"fmt"
	"os"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"
	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/pkg/timeutil"

	"gopkg.in/yaml.v3"
)

type seedComment struct {
	ID         string        `yaml:"id"`
	Author     string        `yaml:"author"`
	Content    string        `yaml:"content"`
	Age        time.Duration `yaml:"age"`
	Score      int           `yaml:"score"`
	QuotedText string        `yaml:"quoted_text"`
	Replies    []seedComment `yaml:"replies"`
}

type seedArticle struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Content     string        `yaml:"content"`
	PuzleReply  string        `yaml:"puzle_reply"`
	Source      string        `yaml:"source"`
	Age         time.Duration `yaml:"age"`
	IsDiscussed bool          `yaml:"is_discussed"`
	ImageURL    string        `yaml:"image_url"`
	Type        string        `yaml:"type"`
	MediaType   string        `yaml:"media_type"`
	OriginalURL string        `yaml:"original_url"`
	Comments    []seedComment `yaml:"comments"`
}

type seedFile struct {
	Articles []seedArticle `yaml:"articles"`
}

// Catalog 内置文章目录，只读
type Catalog struct {
	articles []model.Article
	index    map[string]int
}

// Empty 空目录
func Empty() *Catalog {
	return &Catalog{index: map[string]int{}}
}

// Load 从 YAML 文件加载内置文章，时间以 now 为基准换算
func Load(path string, now time.Time) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data, now)
}

// Parse 解析 YAML 内容
func Parse(data []byte, now time.Time) (*Catalog, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	c := Empty()
	for _, sa := range file.Articles {
		if sa.ID == "" {
			return nil, fmt.Errorf("seed article %q has no id", sa.Title)
		}
		if _, dup := c.index[sa.ID]; dup {
			return nil, fmt.Errorf("duplicate seed article id %q", sa.ID)
		}

		a, err := toArticle(sa, now)
		if err != nil {
			return nil, err
		}
		c.index[a.ID] = len(c.articles)
		c.articles = append(c.articles, *a)
	}
	return c, nil
}

func toArticle(sa seedArticle, now time.Time) (*model.Article, error) {
	at := now.Add(-sa.Age)
	a := &model.Article{
		ID:          sa.ID,
		Title:       sa.Title,
		Content:     sa.Content,
		PuzleReply:  sa.PuzleReply,
		Source:      sa.Source,
		Time:        timeutil.RelativeLabel(at, now),
		Timestamp:   at.UnixMilli(),
		IsDiscussed: sa.IsDiscussed,
		ImageURL:    sa.ImageURL,
		Type:        sa.Type,
		MediaType:   sa.MediaType,
		OriginalURL: sa.OriginalURL,
	}
	if a.Type == "" {
		a.Type = model.ArticleTypeArticle
	}

	forest, err := commenttree.Normalize(toForest(sa.Comments, now), now)
	if err != nil {
		return nil, fmt.Errorf("seed article %s: %w", sa.ID, err)
	}
	if err := a.SetForest(forest); err != nil {
		return nil, err
	}
	return a, nil
}

// toForest 内置数据层级很浅，直接递归转换
func toForest(in []seedComment, now time.Time) commenttree.Forest {
	if len(in) == 0 {
		return nil
	}
	out := make(commenttree.Forest, 0, len(in))
	for _, sc := range in {
		at := now.Add(-sc.Age)
		out = append(out, commenttree.Comment{
			ID:         sc.ID,
			Author:     sc.Author,
			Content:    sc.Content,
			Time:       timeutil.RelativeLabel(at, now),
			CreatedAt:  at.UnixMilli(),
			Score:      sc.Score,
			QuotedText: sc.QuotedText,
			Replies:    toForest(sc.Replies, now),
		})
	}
	return out
}

// Has 是否为内置文章
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Get 返回内置文章的副本
func (c *Catalog) Get(id string) (*model.Article, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.articles[i].Clone(), true
}

// Len 内置文章数量
func (c *Catalog) Len() int {
	return len(c.articles)
}

// Merge 合并文章列表：用户文章在前（保持 stored 顺序），
// 然后是保存过的内置文章，最后是未改动的内置文章；tombstones 中的 ID 被排除
func Merge(stored []model.Article, c *Catalog, tombstones []string) []model.Article {
	dropped := make(map[string]bool, len(tombstones))
	for _, id := range tombstones {
		dropped[id] = true
	}

	var user, storedSeeds []model.Article
	seen := make(map[string]bool, len(stored))
	for _, a := range stored {
		if dropped[a.ID] {
			continue
		}
		seen[a.ID] = true
		if c.Has(a.ID) {
			storedSeeds = append(storedSeeds, a)
		} else {
			user = append(user, a)
		}
	}

	out := make([]model.Article, 0, len(stored)+c.Len())
	out = append(out, user...)
	out = append(out, storedSeeds...)
	for _, a := range c.articles {
		if !seen[a.ID] && !dropped[a.ID] {
			out = append(out, *a.Clone())
		}
	}
	return out
}
