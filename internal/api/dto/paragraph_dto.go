package dto

// ParagraphCommentRequest 段落评论请求
type ParagraphCommentRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

// ParagraphCommentInfo 段落评论
type ParagraphCommentInfo struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Time      string `json:"time"`
	CreatedAt int64  `json:"created_at"`
	IsBot     bool   `json:"is_bot"`
}

// ParagraphInfo 原文段落
type ParagraphInfo struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Comments []ParagraphCommentInfo `json:"comments"`
}

// ParagraphListData 原文视图
type ParagraphListData struct {
	ArticleID  string          `json:"article_id"`
	Paragraphs []ParagraphInfo `json:"paragraphs"`
}
