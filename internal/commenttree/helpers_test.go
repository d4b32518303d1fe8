package commenttree

import (
	"fmt"
	"math/rand"
	"testing"
)

// randomForest 生成 n 个节点的随机森林，约四分之一为顶层评论
func randomForest(t *testing.T, r *rand.Rand, n int) Forest {
	t.Helper()
	tree := New()
	var ids []string
	for i := 0; i < n; i++ {
		c := Comment{
			ID:        fmt.Sprintf("c%d", i),
			Author:    "我",
			Content:   fmt.Sprintf("comment %d", i),
			Time:      "刚刚",
			CreatedAt: int64(1_700_000_000_000 + r.Intn(1_000_000)),
		}
		var err error
		if len(ids) == 0 || r.Intn(4) == 0 {
			_, err = tree.AddRoot(c)
		} else {
			_, err = tree.AddReply(ids[r.Intn(len(ids))], c)
		}
		if err != nil {
			t.Fatalf("build random forest: %v", err)
		}
		ids = append(ids, c.ID)
	}
	return tree.Forest()
}

// parents 记录每个节点由嵌套结构决定的父节点
func parents(f Forest) map[string]string {
	out := map[string]string{}
	walk(f, func(c *Comment, _ int) bool {
		if _, ok := out[c.ID]; !ok {
			out[c.ID] = ""
		}
		for _, r := range c.Replies {
			out[r.ID] = c.ID
		}
		return true
	})
	return out
}

func allIDs(f Forest) []string {
	var ids []string
	walk(f, func(c *Comment, _ int) bool {
		ids = append(ids, c.ID)
		return true
	})
	return ids
}

func countRecursive(f Forest) int {
	n := 0
	for _, c := range f {
		n += 1 + countRecursive(c.Replies)
	}
	return n
}

func chainLength(parent map[string]string, id string) int {
	d := 0
	for parent[id] != "" {
		id = parent[id]
		d++
	}
	return d
}

func mustEncode(t *testing.T, f Forest) string {
	t.Helper()
	b, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(b)
}

func root(t *testing.T, f Forest, c Comment) Forest {
	t.Helper()
	out, err := InsertRoot(f, c)
	if err != nil {
		t.Fatalf("InsertRoot(%s): %v", c.ID, err)
	}
	return out
}
