package commenttree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangchenwei1/Puzle-Read/pkg/timeutil"
)

// UnmarshalJSON 兼容旧数据：id 与 parentId 可能是数字
func (c *Comment) UnmarshalJSON(data []byte) error {
	type plain Comment
	var raw struct {
		plain
		ID       json.RawMessage `json:"id"`
		ParentID json.RawMessage `json:"parentId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := looseString(raw.ID)
	if err != nil {
		return fmt.Errorf("comment id: %w", err)
	}
	parentID, err := looseString(raw.ParentID)
	if err != nil {
		return fmt.Errorf("comment parentId: %w", err)
	}

	*c = Comment(raw.plain)
	c.ID = id
	c.ParentID = parentID
	return nil
}

func looseString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Normalize 整理从存储加载的森林：
// depth 与 parentId 按嵌套结构重新推导，未知的 voteStatus 视为未投票，
// 缺少 createdAt 时从展示文案还原，无法还原则取 now。
// 缺少 id 返回 ErrMalformedDocument，重复 id 返回 ErrInvalidForest。
func Normalize(f Forest, now time.Time) (Forest, error) {
	t, err := build(f, true)
	if err != nil {
		return nil, err
	}
	for _, n := range t.nodes {
		c := &n.comment
		if c.VoteStatus != VoteNone && !c.VoteStatus.Valid() {
			c.VoteStatus = VoteNone
		}
		if c.Depth > 0 {
			c.Orphaned = false
		}
		if c.CreatedAt == 0 {
			at, ok := timeutil.ParseLabel(c.Time, now)
			if !ok {
				at = now
			}
			c.CreatedAt = at.UnixMilli()
		}
		if c.Time == "" {
			c.Time = timeutil.LabelMillis(c.CreatedAt, now)
		}
	}
	return t.Forest(), nil
}

// Decode 解析并整理存储中的评论 JSON，空输入得到空森林
func Decode(data []byte, now time.Time) (Forest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Forest{}, nil
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return Normalize(f, now)
}

// Encode 序列化森林，空森林编码为 []
func Encode(f Forest) ([]byte, error) {
	if f == nil {
		f = Forest{}
	}
	return json.Marshal(f)
}
