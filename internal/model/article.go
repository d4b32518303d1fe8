package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangchenwei1/Puzle-Read/internal/commenttree"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 文章类型
const (
	ArticleTypeLink    = "link"
	ArticleTypeMedia   = "media"
	ArticleTypeArticle = "article"
)

// Article 文章文档：元数据加完整评论森林，每次修改整体写回
type Article struct {
	ID          string         `gorm:"primaryKey;size:64;comment:文章标识" json:"id"`
	Title       string         `gorm:"size:500;not null;comment:标题" json:"title"`
	Content     string         `gorm:"type:text;comment:正文" json:"content"`
	PuzleReply  string         `gorm:"type:text;comment:Puzle的回复" json:"puzleReply,omitempty"`
	Source      string         `gorm:"size:255;comment:来源" json:"source"`
	Time        string         `gorm:"size:64;comment:展示时间" json:"time"`
	Timestamp   int64          `gorm:"not null;index;comment:创建时间(毫秒)" json:"timestamp"`
	IsDiscussed bool           `gorm:"not null;default:false;comment:是否已讨论" json:"isDiscussed"`
	ImageURL    string         `gorm:"size:1000;comment:封面" json:"imageUrl,omitempty"`
	Type        string         `gorm:"size:32;not null;default:'article';comment:文章类型" json:"type"`
	MediaType   string         `gorm:"size:32;comment:媒体类型" json:"mediaType,omitempty"`
	OriginalURL string         `gorm:"size:1000;comment:原文链接" json:"originalUrl,omitempty"`
	Comments    datatypes.JSON `gorm:"comment:评论森林" json:"comments"`
	Annotations datatypes.JSON `gorm:"comment:段落评论" json:"annotations,omitempty"`
	CreatedAt   time.Time      `json:"-"`
	UpdatedAt   time.Time      `json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Article) TableName() string {
	return "articles"
}

// Forest 解析并整理评论森林
func (a *Article) Forest(now time.Time) (commenttree.Forest, error) {
	f, err := commenttree.Decode(a.Comments, now)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", a.ID, err)
	}
	return f, nil
}

// SetForest 写回评论森林
func (a *Article) SetForest(f commenttree.Forest) error {
	data, err := commenttree.Encode(f)
	if err != nil {
		return err
	}
	a.Comments = datatypes.JSON(data)
	return nil
}

// ParagraphComment 段落下的评论
type ParagraphComment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Time      string `json:"time"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Paragraph 原文段落及其评论
type Paragraph struct {
	ID       string             `json:"id"`
	Text     string             `json:"text"`
	Comments []ParagraphComment `json:"comments"`
}

// Paragraphs 解析已保存的段落评论，未保存过时返回 nil
func (a *Article) Paragraphs() ([]Paragraph, error) {
	if len(a.Annotations) == 0 || string(a.Annotations) == "null" {
		return nil, nil
	}
	var ps []Paragraph
	if err := json.Unmarshal(a.Annotations, &ps); err != nil {
		return nil, fmt.Errorf("article %s annotations: %w", a.ID, err)
	}
	return ps, nil
}

// SetParagraphs 写回段落评论
func (a *Article) SetParagraphs(ps []Paragraph) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	a.Annotations = datatypes.JSON(data)
	return nil
}

// Clone 深拷贝文章文档，避免缓存与调用方共享 JSON 字节
func (a *Article) Clone() *Article {
	c := *a
	c.Comments = append(datatypes.JSON(nil), a.Comments...)
	c.Annotations = append(datatypes.JSON(nil), a.Annotations...)
	return &c
}
