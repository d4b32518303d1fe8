package dto

import "time"

// ArticleCreateRequest 新建文章：手动创建需要标题和正文，导入链接只需要 url
type ArticleCreateRequest struct {
	Type    string `json:"type" binding:"omitempty,oneof=article link"`
	Title   string `json:"title" binding:"max=500"`
	Content string `json:"content" binding:"max=100000"`
	URL     string `json:"url" binding:"max=1000"`
}

// ArticleUpdateRequest 更新文章，字段为空表示不修改
type ArticleUpdateRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=500"`
	Content     *string `json:"content" binding:"omitempty,max=100000"`
	IsDiscussed *bool   `json:"is_discussed"`
}

// ArticleInfo 文章信息
type ArticleInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	PuzleReply   string `json:"puzle_reply,omitempty"`
	Source       string `json:"source"`
	Time         string `json:"time"`
	Timestamp    int64  `json:"timestamp"`
	IsDiscussed  bool   `json:"is_discussed"`
	ImageURL     string `json:"image_url,omitempty"`
	Type         string `json:"type"`
	MediaType    string `json:"media_type,omitempty"`
	OriginalURL  string `json:"original_url,omitempty"`
	CommentCount int    `json:"comment_count"`
}

// ArticleGroup 按时间分组的文章
type ArticleGroup struct {
	Name     string        `json:"name"`
	Articles []ArticleInfo `json:"articles"`
}

// ArticleListData 文章列表数据
type ArticleListData struct {
	Groups []ArticleGroup `json:"groups"`
	Total  int            `json:"total"`
}

// ExportData 文章快照导出结果
type ExportData struct {
	ArticleID string    `json:"article_id"`
	Object    string    `json:"object"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
