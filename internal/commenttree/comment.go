package commenttree

import "errors"

var (
	ErrParentNotFound    = errors.New("回复的父评论不存在")
	ErrMalformedDocument = errors.New("评论数据缺少ID")
	ErrInvalidForest     = errors.New("评论树结构非法")
)

// BotAuthor 机器人回复者的保留作者名
const BotAuthor = "Puzle"

// Vote 当前读者的投票状态，空字符串表示未投票
type Vote string

const (
	VoteNone Vote = ""
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// Valid 是否为可投出的方向
func (v Vote) Valid() bool {
	return v == VoteUp || v == VoteDown
}

func (v Vote) weight() int {
	switch v {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	}
	return 0
}

// ParseVote 解析外部传入的投票方向
func ParseVote(s string) (Vote, bool) {
	v := Vote(s)
	return v, v.Valid()
}

// Comment 评论树节点
type Comment struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	Time       string    `json:"time"`
	CreatedAt  int64     `json:"createdAt,omitempty"`
	ParentID   string    `json:"parentId,omitempty"`
	Depth      int       `json:"depth"`
	Score      int       `json:"score"`
	VoteStatus Vote      `json:"voteStatus,omitempty"`
	QuotedText string    `json:"quotedText,omitempty"`
	Orphaned   bool      `json:"orphaned,omitempty"`
	Replies    []Comment `json:"replies,omitempty"`
}

// IsRoot 是否为顶层评论
func (c *Comment) IsRoot() bool {
	return c.ParentID == ""
}

// IsBot 是否为机器人回复
func (c *Comment) IsBot() bool {
	return c.Author == BotAuthor
}

// Forest 一篇文章的全部顶层评论
type Forest []Comment

// IDGenerator 为新评论分配唯一 ID
type IDGenerator interface {
	NewID() string
}
