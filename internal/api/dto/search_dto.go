package dto

// SearchArticleRequest 搜索请求参数
type SearchArticleRequest struct {
	Q        string `form:"q" binding:"required"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// SearchArticleInfo 搜索结果中的文章信息
type SearchArticleInfo struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Source       string              `json:"source"`
	Time         string              `json:"time"`
	Timestamp    int64               `json:"timestamp"`
	Type         string              `json:"type"`
	CommentCount int                 `json:"comment_count"`
	Highlight    map[string][]string `json:"highlight,omitempty"`
}

// SearchArticleData 搜索结果
type SearchArticleData struct {
	Articles   []SearchArticleInfo `json:"articles"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int64               `json:"total_pages"`
	Engine     string              `json:"engine"`
}

// SyncResultData 索引重建结果
type SyncResultData struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}
