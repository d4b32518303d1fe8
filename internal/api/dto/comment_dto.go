package dto

// CommentCreateRequest 发表评论请求，parent_id 为空时发表顶层评论
type CommentCreateRequest struct {
	Content    string `json:"content" binding:"required,min=1"`
	ParentID   string `json:"parent_id" binding:"max=64"`
	QuotedText string `json:"quoted_text" binding:"max=2000"`
}

// VoteRequest 投票请求，重复同方向投票即取消
type VoteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// CommentInfo 评论信息，replies 为嵌套回复
type CommentInfo struct {
	ID           string        `json:"id"`
	Author       string        `json:"author"`
	Content      string        `json:"content"`
	Time         string        `json:"time"`
	CreatedAt    int64         `json:"created_at"`
	ParentID     *string       `json:"parent_id"`
	Depth        int           `json:"depth"`
	IndentLevel  int           `json:"indent_level"`
	Score        int           `json:"score"`
	VoteStatus   *string       `json:"vote_status"`
	QuotedText   string        `json:"quoted_text,omitempty"`
	Orphaned     bool          `json:"orphaned,omitempty"`
	IsBot        bool          `json:"is_bot"`
	TotalReplies int           `json:"total_replies"`
	Replies      []CommentInfo `json:"replies"`
}

// CommentListData 讨论区评论列表
type CommentListData struct {
	Comments []CommentInfo `json:"comments"`
	Total    int           `json:"total"`
	AllTotal int           `json:"all_total"`
	Sort     string        `json:"sort"`
}

// QuotedListData 引用原文的评论
type QuotedListData struct {
	Comments []CommentInfo `json:"comments"`
	Total    int           `json:"total"`
}

// CommentDeleteData 删除结果
type CommentDeleteData struct {
	Removed int `json:"removed"`
	Total   int `json:"total"`
}
