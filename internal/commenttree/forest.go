package commenttree

import (
	"cmp"
	"errors"
	"slices"
)

// errUnchanged 修改未命中任何节点
var errUnchanged = errors.New("commenttree: unchanged")

// 以下函数均不修改入参，返回的森林与入参不共享切片

// Clone 深拷贝森林
func Clone(f Forest) Forest {
	if f == nil {
		return nil
	}
	out := slices.Clone(f)

	stack := [][]Comment{out}
	for len(stack) > 0 {
		level := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := range level {
			c := &level[i]
			if c.Replies == nil {
				continue
			}
			c.Replies = slices.Clone(c.Replies)
			stack = append(stack, c.Replies)
		}
	}
	return out
}

// edit 在森林的索引副本上执行修改并物化为新森林，失败时原样返回入参。
// 嵌套结构是层级的唯一依据，parentId 与 depth 会被重新推导。
func edit(f Forest, fn func(t *Tree) error) (Forest, error) {
	t, err := build(f, true)
	if err != nil {
		return f, err
	}
	if err := fn(t); err != nil {
		return f, err
	}
	return t.Forest(), nil
}

// FindNode 在所有层级中查找评论，返回评论及其子树的副本
func FindNode(f Forest, id string) (Comment, bool) {
	var found Comment
	ok := false
	walk(f, func(c *Comment, _ int) bool {
		if c.ID == id {
			found, ok = *c, true
			return false
		}
		return true
	})
	if !ok {
		return Comment{}, false
	}
	return Clone(Forest{found})[0], true
}

// DepthOf 返回评论所在深度，未找到时返回 (0, false)
func DepthOf(f Forest, id string) (int, bool) {
	depth, ok := 0, false
	walk(f, func(c *Comment, d int) bool {
		if c.ID == id {
			depth, ok = d, true
			return false
		}
		return true
	})
	return depth, ok
}

// ReplyDepth 新回复的深度：父评论深度加一，父评论不存在时回退为 0
func ReplyDepth(f Forest, parentID string) int {
	d, ok := DepthOf(f, parentID)
	if !ok {
		return 0
	}
	return d + 1
}

// InsertRoot 在顶层末尾追加评论；ID 为空或已存在时返回错误且不修改
func InsertRoot(f Forest, c Comment) (Forest, error) {
	return edit(f, func(t *Tree) error {
		_, err := t.AddRoot(c)
		return err
	})
}

// InsertReply 在父评论的回复列表末尾追加，父评论不存在时原样返回并报告 ErrParentNotFound
func InsertReply(f Forest, parentID string, c Comment) (Forest, error) {
	return edit(f, func(t *Tree) error {
		_, err := t.AddReply(parentID, c)
		return err
	})
}

// AttachReply 父评论不存在时作为孤儿追加到顶层，depth 为 0。
// 只有 ID 为空或重复时失败。
func AttachReply(f Forest, parentID string, c Comment) (Forest, Comment, error) {
	var stored Comment
	out, err := edit(f, func(t *Tree) error {
		var err error
		stored, err = t.Attach(parentID, c)
		return err
	})
	if err != nil {
		return f, Comment{}, err
	}
	return out, stored, nil
}

// ToggleVote 切换投票状态，评论不存在或方向非法时返回 false 且不修改
func ToggleVote(f Forest, id string, dir Vote) (Forest, bool) {
	ok := false
	out, _ := edit(f, func(t *Tree) error {
		_, ok = t.ToggleVote(id, dir)
		if !ok {
			return errUnchanged
		}
		return nil
	})
	return out, ok
}

// DeleteSubtree 删除评论及全部后代，返回被删除的节点数（未找到为 0）
func DeleteSubtree(f Forest, id string) (Forest, int) {
	removed := 0
	out, _ := edit(f, func(t *Tree) error {
		removed = t.Remove(id)
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	return out, removed
}

// CountAll 统计森林中的全部评论
func CountAll(f Forest) int {
	n := 0
	walk(f, func(*Comment, int) bool {
		n++
		return true
	})
	return n
}

// Flatten 先序展开所有评论，结果不带 Replies
func Flatten(f Forest) []Comment {
	var out []Comment
	walk(f, func(c *Comment, _ int) bool {
		flat := *c
		flat.Replies = nil
		out = append(out, flat)
		return true
	})
	return out
}

// SortKey 顶层评论排序依据
type SortKey string

const (
	SortNone     SortKey = "none"
	SortCreated  SortKey = "created"
	SortActivity SortKey = "activity"
)

// ParseSortKey 解析排序参数，空值按发布时间
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case "":
		return SortCreated, true
	case SortNone, SortCreated, SortActivity:
		return k, true
	}
	return "", false
}

// SortRoots 按时间倒序稳定排序顶层评论，回复保持插入顺序
func SortRoots(f Forest, key SortKey) Forest {
	out := Clone(f)
	var keyOf func(c *Comment) int64
	switch key {
	case SortCreated:
		keyOf = func(c *Comment) int64 { return c.CreatedAt }
	case SortActivity:
		keyOf = LatestActivity
	default:
		return out
	}

	type keyed struct {
		c   Comment
		key int64
	}
	ks := make([]keyed, len(out))
	for i := range out {
		ks[i] = keyed{c: out[i], key: keyOf(&out[i])}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return cmp.Compare(b.key, a.key)
	})
	for i := range ks {
		out[i] = ks[i].c
	}
	return out
}

// LatestActivity 子树中最新的创建时间
func LatestActivity(c *Comment) int64 {
	latest := c.CreatedAt
	walk(c.Replies, func(r *Comment, _ int) bool {
		latest = max(latest, r.CreatedAt)
		return true
	})
	return latest
}

// SplitQuoted 拆分讨论视图与引用评论：
// 讨论视图去掉带 quotedText 的顶层评论，引用评论按先序收集所有层级
func SplitQuoted(f Forest) (Forest, []Comment) {
	discussion := Forest{}
	for _, c := range Clone(f) {
		if c.QuotedText == "" {
			discussion = append(discussion, c)
		}
	}

	var quoted []Comment
	walk(f, func(c *Comment, _ int) bool {
		if c.QuotedText != "" {
			quoted = append(quoted, Clone(Forest{*c})[0])
		}
		return true
	})
	return discussion, quoted
}

// walk 迭代先序遍历嵌套森林，depth 由结构推导
func walk(f Forest, fn func(c *Comment, depth int) bool) {
	type entry struct {
		c     *Comment
		depth int
	}
	stack := make([]entry, 0, len(f))
	for i := len(f) - 1; i >= 0; i-- {
		stack = append(stack, entry{c: &f[i]})
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(e.c, e.depth) {
			return
		}
		for i := len(e.c.Replies) - 1; i >= 0; i-- {
			stack = append(stack, entry{c: &e.c.Replies[i], depth: e.depth + 1})
		}
	}
}
