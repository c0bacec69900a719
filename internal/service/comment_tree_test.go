package service

import (
	"testing"
	"time"

	"collectorhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(minute int) time.Time {
	return time.Date(2025, 1, 1, 12, minute, 0, 0, time.UTC)
}

func countNodes(roots []*CommentNode) int {
	n := 0
	flatten(roots, func(*CommentNode) { n++ })
	return n
}

func TestBuildCommentTree_ThreadsOldestFirst(t *testing.T) {
	t.Parallel()

	flat := []*models.Comment{
		{ID: 4, ParentID: uintPtr(1), CreatedAt: at(4)},
		{ID: 2, ParentID: uintPtr(1), CreatedAt: at(2)},
		{ID: 3, ParentID: uintPtr(2), CreatedAt: at(3)},
		{ID: 1, CreatedAt: at(1)},
		{ID: 5, CreatedAt: at(0)},
	}

	roots := BuildCommentTree(flat)
	require.Len(t, roots, 2)
	assert.Equal(t, uint(5), roots[0].ID)
	assert.Equal(t, uint(1), roots[1].ID)

	a := roots[1]
	assert.Equal(t, 0, a.Depth)
	require.Len(t, a.Replies, 2)
	assert.Equal(t, uint(2), a.Replies[0].ID)
	assert.Equal(t, uint(4), a.Replies[1].ID)
	assert.Equal(t, 1, a.Replies[0].Depth)

	require.Len(t, a.Replies[0].Replies, 1)
	c := a.Replies[0].Replies[0]
	assert.Equal(t, uint(3), c.ID)
	assert.Equal(t, 2, c.Depth)
	assert.NotNil(t, c.Replies)
	assert.Empty(t, c.Replies)
}

func TestBuildCommentTree_TieBreaksByID(t *testing.T) {
	t.Parallel()

	roots := BuildCommentTree([]*models.Comment{
		{ID: 9, CreatedAt: at(1)},
		{ID: 3, CreatedAt: at(1)},
	})
	require.Len(t, roots, 2)
	assert.Equal(t, uint(3), roots[0].ID)
	assert.Equal(t, uint(9), roots[1].ID)
}

func TestBuildCommentTree_OrphansBecomeRoots(t *testing.T) {
	t.Parallel()

	roots := BuildCommentTree([]*models.Comment{
		{ID: 1, CreatedAt: at(1)},
		{ID: 7, ParentID: uintPtr(99), CreatedAt: at(2)},
		{ID: 8, ParentID: uintPtr(7), CreatedAt: at(3)},
	})
	require.Len(t, roots, 2)
	assert.Equal(t, uint(7), roots[1].ID)
	assert.Equal(t, 0, roots[1].Depth)
	require.Len(t, roots[1].Replies, 1)
	assert.Equal(t, 1, roots[1].Replies[0].Depth)
	assert.Equal(t, 3, countNodes(roots))
}

func TestBuildCommentTree_ParentCreatedAfterChild(t *testing.T) {
	t.Parallel()

	roots := BuildCommentTree([]*models.Comment{
		{ID: 2, ParentID: uintPtr(1), CreatedAt: at(1)},
		{ID: 1, CreatedAt: at(5)},
	})
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, 1, roots[0].Replies[0].Depth)
}

func TestBuildCommentTree_NeverLosesComments(t *testing.T) {
	t.Parallel()

	roots := BuildCommentTree([]*models.Comment{
		{ID: 1, ParentID: uintPtr(2), CreatedAt: at(1)},
		{ID: 2, ParentID: uintPtr(1), CreatedAt: at(2)},
		{ID: 3, ParentID: uintPtr(3), CreatedAt: at(3)},
		nil,
	})
	assert.Equal(t, 3, countNodes(roots))
}

func TestBuildCommentTree_DoesNotTruncateDeepChains(t *testing.T) {
	t.Parallel()

	flat := []*models.Comment{{ID: 1, CreatedAt: at(0)}}
	for i := uint(2); i <= 6; i++ {
		flat = append(flat, &models.Comment{ID: i, ParentID: uintPtr(i - 1), CreatedAt: at(int(i))})
	}
	roots := BuildCommentTree(flat)
	assert.Equal(t, 6, countNodes(roots))

	deepest := 0
	flatten(roots, func(n *CommentNode) {
		if n.Depth > deepest {
			deepest = n.Depth
		}
	})
	assert.Equal(t, 5, deepest)
}

func TestBuildCommentTree_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, BuildCommentTree(nil))
}
