package commenttree

import (
	"fmt"
	"slices"
)

type node struct {
	comment  Comment // Replies 恒为空，子节点由 children 描述
	children []string
}

// Tree 评论森林的索引表示：ID 到节点的映射加子节点 ID 列表。
// 所有遍历都用显式栈或队列完成，不随嵌套深度递归。
type Tree struct {
	nodes map[string]*node
	roots []string
}

// New 创建空树
func New() *Tree {
	return &Tree{nodes: make(map[string]*node)}
}

// Build 从嵌套森林构建索引树，要求 parentId 与 depth 与嵌套结构一致
func Build(f Forest) (*Tree, error) {
	return build(f, false)
}

type frame struct {
	c      *Comment
	parent string
	depth  int
}

func build(f Forest, repair bool) (*Tree, error) {
	t := New()
	stack := make([]frame, 0, len(f))
	for i := len(f) - 1; i >= 0; i-- {
		stack = append(stack, frame{c: &f[i]})
	}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c := *fr.c
		c.Replies = nil
		if c.ID == "" {
			return nil, ErrMalformedDocument
		}
		if _, dup := t.nodes[c.ID]; dup {
			return nil, fmt.Errorf("%w: 重复的评论ID %s", ErrInvalidForest, c.ID)
		}
		if repair {
			c.ParentID = fr.parent
			c.Depth = fr.depth
		} else if c.ParentID != fr.parent || c.Depth != fr.depth {
			return nil, fmt.Errorf("%w: 评论 %s 的层级与父节点不一致", ErrInvalidForest, c.ID)
		}

		t.nodes[c.ID] = &node{comment: c}
		if fr.parent == "" {
			t.roots = append(t.roots, c.ID)
		} else {
			p := t.nodes[fr.parent]
			p.children = append(p.children, c.ID)
		}

		replies := fr.c.Replies
		for i := len(replies) - 1; i >= 0; i-- {
			stack = append(stack, frame{c: &replies[i], parent: c.ID, depth: fr.depth + 1})
		}
	}
	return t, nil
}

// Len 当前节点总数
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Has 是否存在指定评论
func (t *Tree) Has(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Find 返回评论及其完整子树
func (t *Tree) Find(id string) (Comment, bool) {
	if _, ok := t.nodes[id]; !ok {
		return Comment{}, false
	}
	return t.materialize([]string{id})[0], true
}

// AddRoot 追加一条顶层评论
func (t *Tree) AddRoot(c Comment) (Comment, error) {
	c.ParentID = ""
	c.Depth = 0
	c.Orphaned = false
	c.Replies = nil
	if err := t.insert(c); err != nil {
		return Comment{}, err
	}
	t.roots = append(t.roots, c.ID)
	return c, nil
}

// AddReply 在父评论下追加回复，父评论不存在时返回 ErrParentNotFound 且不修改树
func (t *Tree) AddReply(parentID string, c Comment) (Comment, error) {
	p, ok := t.nodes[parentID]
	if !ok {
		return Comment{}, ErrParentNotFound
	}
	c.ParentID = parentID
	c.Depth = p.comment.Depth + 1
	c.Orphaned = false
	c.Replies = nil
	if err := t.insert(c); err != nil {
		return Comment{}, err
	}
	p.children = append(p.children, c.ID)
	return c, nil
}

// Attach 与 AddReply 相同，但父评论不存在时作为孤儿挂到顶层（depth 为 0）
func (t *Tree) Attach(parentID string, c Comment) (Comment, error) {
	if parentID != "" && t.Has(parentID) {
		return t.AddReply(parentID, c)
	}
	stored, err := t.AddRoot(c)
	if err != nil {
		return Comment{}, err
	}
	if parentID != "" {
		t.nodes[stored.ID].comment.Orphaned = true
		stored.Orphaned = true
	}
	return stored, nil
}

// insert 登记新节点，空 ID 或与已有节点重复时拒绝
func (t *Tree) insert(c Comment) error {
	if c.ID == "" {
		return ErrMalformedDocument
	}
	if _, dup := t.nodes[c.ID]; dup {
		return fmt.Errorf("%w: 重复的评论ID %s", ErrInvalidForest, c.ID)
	}
	t.nodes[c.ID] = &node{comment: c}
	return nil
}

// ToggleVote 切换投票：与当前状态相同则清除，否则设为新方向
func (t *Tree) ToggleVote(id string, dir Vote) (Comment, bool) {
	n, ok := t.nodes[id]
	if !ok || !dir.Valid() {
		return Comment{}, false
	}
	prev := n.comment.VoteStatus
	next := dir
	if prev == dir {
		next = VoteNone
	}
	n.comment.Score += next.weight() - prev.weight()
	n.comment.VoteStatus = next
	return n.comment, true
}

// Remove 删除评论及其全部后代，返回删除的节点数
func (t *Tree) Remove(id string) int {
	n, ok := t.nodes[id]
	if !ok {
		return 0
	}

	if n.comment.ParentID == "" {
		t.roots = slices.DeleteFunc(t.roots, func(s string) bool { return s == id })
	} else if p, ok := t.nodes[n.comment.ParentID]; ok {
		p.children = slices.DeleteFunc(p.children, func(s string) bool { return s == id })
	}

	removed := t.breadthFirst([]string{id})
	for _, rid := range removed {
		delete(t.nodes, rid)
	}
	return len(removed)
}

// Forest 物化为新的嵌套森林，与树本身不共享任何切片
func (t *Tree) Forest() Forest {
	out := t.materialize(t.roots)
	if out == nil {
		return Forest{}
	}
	return out
}

func (t *Tree) breadthFirst(start []string) []string {
	order := slices.Clone(start)
	for i := 0; i < len(order); i++ {
		order = append(order, t.nodes[order[i]].children...)
	}
	return order
}

// materialize 按广度优先序的逆序组装，子节点总是先于父节点完成
func (t *Tree) materialize(start []string) Forest {
	order := t.breadthFirst(start)
	built := make(map[string]Comment, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := t.nodes[order[i]]
		c := n.comment
		if len(n.children) > 0 {
			c.Replies = make([]Comment, len(n.children))
			for j, cid := range n.children {
				c.Replies[j] = built[cid]
				delete(built, cid)
			}
		}
		built[order[i]] = c
	}

	var out Forest
	for _, id := range start {
		out = append(out, built[id])
	}
	return out
}
