package service

import (
	"sort"

	"collectorhub/internal/models"
)

// MaxCommentDepth bounds reply nesting; a comment's depth is always below it.
const MaxCommentDepth = 3

// CommentNode is a comment placed in its thread.
type CommentNode struct {
	*models.Comment
	Depth       int            `json:"depth"`
	UserVote    *int           `json:"user_vote"`
	ContentHTML string         `json:"content_html,omitempty"`
	Replies     []*CommentNode `json:"replies"`
}

// CommentTree is the threaded view of a post's comments.
type CommentTree struct {
	Comments   []*CommentNode `json:"comments"`
	TotalCount int            `json:"total_count"`
}

// BuildCommentTree threads flat comments oldest first. A comment whose parent
// is missing from flat is promoted to a root, so every input comment appears
// exactly once in the result. The builder never truncates by depth.
func BuildCommentTree(flat []*models.Comment) []*CommentNode {
	ordered := make([]*models.Comment, 0, len(flat))
	for _, c := range flat {
		if c != nil {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	nodes := make([]*CommentNode, len(ordered))
	byID := make(map[uint]*CommentNode, len(ordered))
	for i, c := range ordered {
		nodes[i] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
		byID[c.ID] = nodes[i]
	}

	roots := make([]*CommentNode, 0)
	for _, n := range nodes {
		parent, ok := (*CommentNode)(nil), false
		if n.ParentID != nil && *n.ParentID != n.ID {
			parent, ok = byID[*n.ParentID]
		}
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Replies = append(parent.Replies, n)
	}

	visited := make(map[uint]bool, len(nodes))
	var walk func(n *CommentNode, depth int)
	walk = func(n *CommentNode, depth int) {
		visited[n.ID] = true
		n.Depth = depth
		for _, r := range n.Replies {
			walk(r, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}

	// Parent cycles are unreachable from any root; break them open.
	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		if parent := byID[*n.ParentID]; parent != nil {
			parent.Replies = removeNode(parent.Replies, n)
		}
		roots = append(roots, n)
		walk(n, 0)
	}
	return roots
}

func removeNode(list []*CommentNode, target *CommentNode) []*CommentNode {
	out := list[:0]
	for _, n := range list {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// flatten visits every node depth first.
func flatten(roots []*CommentNode, fn func(*CommentNode)) {
	for _, n := range roots {
		fn(n)
		flatten(n.Replies, fn)
	}
}
