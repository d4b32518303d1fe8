package commenttree

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"
)

/* SCENARIOS */

func TestReplyVoteDeleteScenario(t *testing.T) {
	f := root(t, nil, Comment{ID: "1", Author: "我", Content: "A"})

	f, err := InsertReply(f, "1", Comment{ID: "2", Author: "我", Content: "hi"})
	if err != nil {
		t.Fatalf("InsertReply: %v", err)
	}
	if len(f) != 1 || len(f[0].Replies) != 1 {
		t.Fatalf("want one root with one reply, got %+v", f)
	}
	reply := f[0].Replies[0]
	if reply.Depth != 1 || reply.ParentID != "1" {
		t.Fatalf("reply depth=%d parent=%q", reply.Depth, reply.ParentID)
	}

	f, ok := ToggleVote(f, "2", VoteUp)
	if !ok {
		t.Fatal("ToggleVote: reply not found")
	}
	if got := f[0].Replies[0].VoteStatus; got != VoteUp {
		t.Fatalf("voteStatus = %q, want up", got)
	}

	f, _ = ToggleVote(f, "2", VoteUp)
	if got := f[0].Replies[0].VoteStatus; got != VoteNone {
		t.Fatalf("voteStatus = %q, want unset", got)
	}

	f, removed := DeleteSubtree(f, "1")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if len(f) != 0 || CountAll(f) != 0 {
		t.Fatalf("forest should be empty, got %+v", f)
	}
}

func TestDeleteMiddleOfChain(t *testing.T) {
	f := root(t, nil, Comment{ID: "root"})
	f, _ = InsertReply(f, "root", Comment{ID: "reply"})
	f, _ = InsertReply(f, "reply", Comment{ID: "sub"})
	if d, _ := DepthOf(f, "sub"); d != 2 {
		t.Fatalf("sub depth = %d, want 2", d)
	}

	f, removed := DeleteSubtree(f, "reply")
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if CountAll(f) != 1 {
		t.Errorf("CountAll = %d, want 1", CountAll(f))
	}
	if _, ok := FindNode(f, "sub"); ok {
		t.Error("subreply survived deletion of its parent")
	}
	if f[0].Replies != nil {
		t.Errorf("root replies = %+v, want none", f[0].Replies)
	}
}

/* LOOKUPS */

func TestFindNodeMissingIsNotAnError(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	if _, ok := FindNode(f, "zzz"); ok {
		t.Error("FindNode found a missing id")
	}
	if d, ok := DepthOf(f, "zzz"); ok || d != 0 {
		t.Errorf("DepthOf missing = (%d, %v), want (0, false)", d, ok)
	}
	if got := ReplyDepth(f, "zzz"); got != 0 {
		t.Errorf("ReplyDepth for missing parent = %d, want 0", got)
	}
	if got := ReplyDepth(f, "a"); got != 1 {
		t.Errorf("ReplyDepth for root parent = %d, want 1", got)
	}
}

func TestFindNodeReturnsDetachedSubtree(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	f, _ = InsertReply(f, "a", Comment{ID: "b"})

	found, ok := FindNode(f, "a")
	if !ok {
		t.Fatal("FindNode: not found")
	}
	found.Replies[0].Content = "changed"
	if f[0].Replies[0].Content == "changed" {
		t.Error("FindNode result aliases the forest")
	}
}

/* INSERTION */

func TestInsertReplyMissingParent(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	before := mustEncode(t, f)

	out, err := InsertReply(f, "gone", Comment{ID: "b"})
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("err = %v, want ErrParentNotFound", err)
	}
	if mustEncode(t, out) != before {
		t.Error("forest changed after failed insert")
	}
}

func TestAttachReplyOrphanFallback(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})

	out, stored, err := AttachReply(f, "gone", Comment{ID: "b", ParentID: "gone", Depth: 7})
	if err != nil {
		t.Fatalf("AttachReply: %v", err)
	}
	if stored.Depth != 0 || !stored.Orphaned || stored.ParentID != "" {
		t.Fatalf("orphan stored as %+v", stored)
	}
	if len(out) != 2 || out[1].ID != "b" || !out[1].Orphaned {
		t.Fatalf("orphan not appended as last root: %+v", out)
	}
	if _, err := Build(out); err != nil {
		t.Errorf("forest with orphan is invalid: %v", err)
	}

	out, stored, err = AttachReply(out, "a", Comment{ID: "c"})
	if err != nil {
		t.Fatalf("AttachReply: %v", err)
	}
	if stored.Depth != 1 || stored.Orphaned || stored.ParentID != "a" {
		t.Errorf("attached reply stored as %+v", stored)
	}
}

func TestInsertRejectsBadIDs(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	f, _ = InsertReply(f, "a", Comment{ID: "b"})
	before := mustEncode(t, f)

	cases := []struct {
		name   string
		insert func() (Forest, error)
		want   error
	}{
		{"root duplicates root", func() (Forest, error) { return InsertRoot(f, Comment{ID: "a"}) }, ErrInvalidForest},
		{"root duplicates reply", func() (Forest, error) { return InsertRoot(f, Comment{ID: "b"}) }, ErrInvalidForest},
		{"reply duplicates root", func() (Forest, error) { return InsertReply(f, "b", Comment{ID: "a"}) }, ErrInvalidForest},
		{"attach duplicates reply", func() (Forest, error) {
			out, _, err := AttachReply(f, "a", Comment{ID: "b"})
			return out, err
		}, ErrInvalidForest},
		{"orphan duplicates reply", func() (Forest, error) {
			out, _, err := AttachReply(f, "gone", Comment{ID: "b"})
			return out, err
		}, ErrInvalidForest},
		{"empty id", func() (Forest, error) { return InsertRoot(f, Comment{}) }, ErrMalformedDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.insert()
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if mustEncode(t, out) != before {
				t.Error("forest changed after rejected insert")
			}
			if _, err := Normalize(out, time.Now()); err != nil {
				t.Errorf("forest no longer loads: %v", err)
			}
		})
	}
}

func TestAttachReplyReturnsInsertedNode(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	f, _ = InsertReply(f, "a", Comment{ID: "b", Content: "先来的"})

	_, stored, err := AttachReply(f, "b", Comment{ID: "c", Content: "后来的"})
	if err != nil {
		t.Fatalf("AttachReply: %v", err)
	}
	if stored.ID != "c" || stored.Content != "后来的" || stored.Depth != 2 || stored.ParentID != "b" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestInsertRootIgnoresCallerDepth(t *testing.T) {
	f := root(t, nil, Comment{ID: "a", Depth: 5, ParentID: "x"})
	if f[0].Depth != 0 || f[0].ParentID != "" {
		t.Errorf("root stored as %+v", f[0])
	}
}

/* VOTES */

func TestToggleVoteScore(t *testing.T) {
	f := root(t, nil, Comment{ID: "a", Score: 10})

	steps := []struct {
		dir    Vote
		status Vote
		score  int
	}{
		{VoteUp, VoteUp, 11},
		{VoteDown, VoteDown, 9},
		{VoteDown, VoteNone, 10},
		{VoteDown, VoteDown, 9},
		{VoteUp, VoteUp, 11},
		{VoteUp, VoteNone, 10},
	}
	for i, s := range steps {
		var ok bool
		f, ok = ToggleVote(f, "a", s.dir)
		if !ok {
			t.Fatalf("step %d: not found", i)
		}
		if f[0].VoteStatus != s.status || f[0].Score != s.score {
			t.Fatalf("step %d: got (%q, %d), want (%q, %d)", i, f[0].VoteStatus, f[0].Score, s.status, s.score)
		}
	}
}

func TestToggleVoteNoop(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	if _, ok := ToggleVote(f, "missing", VoteUp); ok {
		t.Error("vote on missing comment reported success")
	}
	if _, ok := ToggleVote(f, "a", Vote("sideways")); ok {
		t.Error("invalid direction reported success")
	}
}

/* SORTING */

func TestSortRoots(t *testing.T) {
	f := Forest{
		{ID: "old", CreatedAt: 100},
		{ID: "new", CreatedAt: 300},
		{ID: "tie", CreatedAt: 100},
		{ID: "busy", CreatedAt: 50, Replies: []Comment{
			{ID: "r1", ParentID: "busy", Depth: 1, CreatedAt: 500},
			{ID: "r2", ParentID: "busy", Depth: 1, CreatedAt: 60},
		}},
	}

	ids := func(f Forest) []string {
		var out []string
		for _, c := range f {
			out = append(out, c.ID)
		}
		return out
	}

	if got, want := ids(SortRoots(f, SortCreated)), []string{"new", "old", "tie", "busy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("created order = %v, want %v", got, want)
	}
	if got, want := ids(SortRoots(f, SortActivity)), []string{"busy", "new", "old", "tie"}; !reflect.DeepEqual(got, want) {
		t.Errorf("activity order = %v, want %v", got, want)
	}
	if got, want := ids(SortRoots(f, SortNone)), []string{"old", "new", "tie", "busy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("none order = %v, want %v", got, want)
	}

	sorted := SortRoots(f, SortCreated)
	busy := sorted[3]
	if busy.Replies[0].ID != "r1" || busy.Replies[1].ID != "r2" {
		t.Error("replies were reordered")
	}
	if f[0].ID != "old" {
		t.Error("SortRoots mutated its input")
	}
}

func TestParseSortKey(t *testing.T) {
	if k, ok := ParseSortKey(""); !ok || k != SortCreated {
		t.Errorf("empty sort key = (%q, %v)", k, ok)
	}
	if _, ok := ParseSortKey("random"); ok {
		t.Error("unknown sort key accepted")
	}
}

/* QUOTED */

func TestSplitQuoted(t *testing.T) {
	f := Forest{
		{ID: "plain"},
		{ID: "quote", QuotedText: "第一段", Replies: []Comment{
			{ID: "quote-r", ParentID: "quote", Depth: 1},
		}},
		{ID: "thread", Replies: []Comment{
			{ID: "nested-quote", ParentID: "thread", Depth: 1, QuotedText: "第二段"},
		}},
	}

	discussion, quoted := SplitQuoted(f)
	if len(discussion) != 2 || discussion[0].ID != "plain" || discussion[1].ID != "thread" {
		t.Errorf("discussion = %+v", discussion)
	}
	if len(quoted) != 2 || quoted[0].ID != "quote" || quoted[1].ID != "nested-quote" {
		t.Errorf("quoted = %+v", quoted)
	}
	if len(quoted[0].Replies) != 1 {
		t.Error("quoted comment lost its replies")
	}
}

/* PROPERTIES */

func TestDepthMatchesParentChain(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		f := randomForest(t, r, 1+r.Intn(60))
		parent := parents(f)
		for _, id := range allIDs(f) {
			d, ok := DepthOf(f, id)
			if !ok {
				t.Fatalf("DepthOf(%s) not found", id)
			}
			if want := chainLength(parent, id); d != want {
				t.Fatalf("DepthOf(%s) = %d, chain length %d", id, d, want)
			}
			n, _ := FindNode(f, id)
			if n.Depth != d || n.ParentID != parent[id] {
				t.Fatalf("node %s stores depth=%d parent=%q", id, n.Depth, n.ParentID)
			}
		}
	}
}

func TestInsertReplyDepthProperty(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for round := 0; round < 50; round++ {
		f := randomForest(t, r, 1+r.Intn(40))
		ids := allIDs(f)
		parentID := ids[r.Intn(len(ids))]
		parentDepth, _ := DepthOf(f, parentID)

		out, err := InsertReply(f, parentID, Comment{ID: "new"})
		if err != nil {
			t.Fatalf("InsertReply: %v", err)
		}
		child, ok := FindNode(out, "new")
		if !ok || child.Depth != parentDepth+1 {
			t.Fatalf("child depth = %d, parent depth %d", child.Depth, parentDepth)
		}
		if CountAll(out) != CountAll(f)+1 {
			t.Fatal("count did not grow by one")
		}
	}
}

func TestToggleVoteInvolution(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	dirs := []Vote{VoteUp, VoteDown}
	for round := 0; round < 50; round++ {
		f := randomForest(t, r, 1+r.Intn(30))
		ids := allIDs(f)
		id := ids[r.Intn(len(ids))]

		// 先随机投一次，让起点不总是未投票
		if r.Intn(2) == 0 {
			f, _ = ToggleVote(f, id, dirs[r.Intn(2)])
		}
		start, _ := FindNode(f, id)
		dir := dirs[r.Intn(2)]

		once, _ := ToggleVote(f, id, dir)
		twice, _ := ToggleVote(once, id, dir)
		mid, _ := FindNode(once, id)
		end, _ := FindNode(twice, id)

		if delta := mid.Score - start.Score; delta < -2 || delta > 2 || delta == 0 {
			t.Fatalf("single toggle moved score by %d", delta)
		}
		switch start.VoteStatus {
		case dir:
			if end.VoteStatus != dir || end.Score != start.Score {
				t.Fatalf("toggle from %q twice: got (%q, %d), start score %d", dir, end.VoteStatus, end.Score, start.Score)
			}
		case VoteNone:
			if end.VoteStatus != VoteNone || end.Score != start.Score {
				t.Fatalf("toggle from unset twice: got (%q, %d), start score %d", end.VoteStatus, end.Score, start.Score)
			}
		default:
			if end.VoteStatus != VoteNone {
				t.Fatalf("two toggles of %q left status %q", dir, end.VoteStatus)
			}
		}
	}
}

func TestDeleteSubtreeProperty(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for round := 0; round < 50; round++ {
		f := randomForest(t, r, 1+r.Intn(60))
		ids := allIDs(f)
		target := ids[r.Intn(len(ids))]
		sub, _ := FindNode(f, target)
		size := CountAll(Forest{sub})
		before := CountAll(f)

		out, removed := DeleteSubtree(f, target)
		if removed != size {
			t.Fatalf("removed %d, subtree size %d", removed, size)
		}
		if CountAll(out) != before-size {
			t.Fatalf("count %d, want %d", CountAll(out), before-size)
		}
		for _, id := range allIDs(Forest{sub}) {
			if _, ok := FindNode(out, id); ok {
				t.Fatalf("descendant %s survived", id)
			}
		}
		walk(out, func(c *Comment, _ int) bool {
			if c.ParentID == target {
				t.Fatalf("%s still points at deleted %s", c.ID, target)
			}
			return true
		})
		if CountAll(f) != before {
			t.Fatal("DeleteSubtree mutated its input")
		}
	}
}

func TestDeleteSubtreeMissing(t *testing.T) {
	f := root(t, nil, Comment{ID: "a"})
	out, removed := DeleteSubtree(f, "missing")
	if removed != 0 || CountAll(out) != 1 {
		t.Errorf("missing delete: removed=%d count=%d", removed, CountAll(out))
	}
}

func TestCountAllMatchesRecursiveDefinition(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for round := 0; round < 100; round++ {
		f := randomForest(t, r, r.Intn(80))
		if got, want := CountAll(f), countRecursive(f); got != want {
			t.Fatalf("CountAll = %d, recursive = %d", got, want)
		}
	}
}

func TestFlattenPreOrder(t *testing.T) {
	f := root(t, nil, Comment{ID: "b"})
	f = root(t, f, Comment{ID: "a"})
	f, _ = InsertReply(f, "a", Comment{ID: "a1"})
	f, _ = InsertReply(f, "a1", Comment{ID: "a11"})

	flat := Flatten(f)
	var ids []string
	for _, c := range flat {
		if len(c.Replies) != 0 {
			t.Errorf("%s still has replies", c.ID)
		}
		ids = append(ids, c.ID)
	}
	if !reflect.DeepEqual(ids, []string{"b", "a", "a1", "a11"}) {
		t.Errorf("order = %v", ids)
	}
	if len(f[1].Replies) != 1 {
		t.Error("Flatten mutated input")
	}
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	f := randomForest(t, r, 40)
	before := mustEncode(t, f)
	ids := allIDs(f)

	_, _ = InsertRoot(f, Comment{ID: "x"})
	_, _ = InsertReply(f, ids[10], Comment{ID: "y"})
	_, _, _ = AttachReply(f, "gone", Comment{ID: "z"})
	_, _ = ToggleVote(f, ids[20], VoteDown)
	_, _ = DeleteSubtree(f, ids[5])
	_ = SortRoots(f, SortActivity)
	_, _ = SplitQuoted(f)

	out, _ := ToggleVote(f, ids[30], VoteUp)
	c, _ := FindNode(out, ids[30])
	c.Content = "edited"

	if mustEncode(t, f) != before {
		t.Error("input forest was mutated")
	}
}
