package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"collectorhub/internal/featureflags"
	"collectorhub/internal/models"
	"collectorhub/internal/ranking"
	"collectorhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type membershipSourceFunc func(ctx context.Context, userID uint) (*models.MembershipSet, error)

func (f membershipSourceFunc) MembershipSet(ctx context.Context, userID uint) (*models.MembershipSet, error) {
	return f(ctx, userID)
}

func fixedMemberships(set models.MembershipSet) MembershipSource {
	return membershipSourceFunc(func(_ context.Context, _ uint) (*models.MembershipSet, error) {
		s := set
		return &s, nil
	})
}

func TestFeedService_InputValidation(t *testing.T) {
	t.Parallel()

	svc := NewFeedService(noopPostRepo(), noopVoteRepo(), fixedMemberships(models.MembershipSet{}), nil, FeedLimits{})
	ctx := context.Background()

	_, err := svc.GetFeed(ctx, FeedInput{Sort: "rising"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.GetFeed(ctx, FeedInput{Sort: "hot", Cursor: "abc"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.GetFeed(ctx, FeedInput{Sort: "new", Cursor: "yesterday"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.GetFeed(ctx, FeedInput{Sort: "top", Cursor: "1.5"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.GetFeed(ctx, FeedInput{PostType: "auction"})
	assertCode(t, err, models.CodeValidation)
}

func TestFeedService_PageSizeAndCursor(t *testing.T) {
	t.Parallel()

	var queries []repository.FeedQuery
	repo := noopPostRepo()
	repo.listFeedFn = func(_ context.Context, q repository.FeedQuery) ([]*models.Post, error) {
		queries = append(queries, q)
		out := make([]*models.Post, 0, q.Limit)
		if q.Cursor == nil {
			out = append(out, &models.Post{ID: 100, IsPinned: true, HotScore: 1})
		}
		for i := len(out); i < q.Limit; i++ {
			out = append(out, &models.Post{ID: uint(i), HotScore: float64(10 - i)})
		}
		return out, nil
	}
	svc := NewFeedService(repo, noopVoteRepo(), fixedMemberships(models.MembershipSet{}), nil, FeedLimits{Default: 3, Max: 5})

	page, err := svc.GetFeed(context.Background(), FeedInput{CategoryID: uintPtr(1), Limit: 50})
	require.NoError(t, err)

	require.Len(t, queries, 1, "pinned and regular posts come from one query")
	assert.Equal(t, 6, queries[0].Limit)
	assert.Nil(t, queries[0].Scope, "explicit category filter ignores memberships")

	require.Len(t, page.Posts, 5, "pinned posts count against the page size")
	assert.Equal(t, uint(100), page.Posts[0].ID)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.Cursor)
	assert.Equal(t, "6", *page.Cursor, "cursor comes from the last returned row")

	queries = nil
	page, err = svc.GetFeed(context.Background(), FeedInput{CategoryID: uintPtr(1), Cursor: *page.Cursor})
	require.NoError(t, err)
	require.Len(t, queries, 1)
	require.NotNil(t, queries[0].Cursor)
	assert.Equal(t, 6.0, queries[0].Cursor.HotScore)
	assert.False(t, queries[0].Cursor.Pinned)
	assert.Equal(t, 4, queries[0].Limit)
	assert.Len(t, page.Posts, 3)
}

func TestFeedService_LastPageHasNoCursor(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.listFeedFn = func(_ context.Context, _ repository.FeedQuery) ([]*models.Post, error) {
		return []*models.Post{{ID: 1}, {ID: 2}}, nil
	}
	svc := NewFeedService(repo, noopVoteRepo(), fixedMemberships(models.MembershipSet{}), nil, FeedLimits{Default: 20, Max: 100})

	page, err := svc.GetFeed(context.Background(), FeedInput{GroupID: uintPtr(3)})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.Cursor)
	assert.Len(t, page.Posts, 2)
}

func TestFeedService_MembershipScope(t *testing.T) {
	t.Parallel()

	t.Run("memberships scope the default feed", func(t *testing.T) {
		t.Parallel()
		var scope *models.MembershipSet
		repo := noopPostRepo()
		repo.listFeedFn = func(_ context.Context, q repository.FeedQuery) ([]*models.Post, error) {
			scope = q.Scope
			return nil, nil
		}
		set := models.MembershipSet{CategoryIDs: []uint{4}, GroupIDs: []uint{8}}
		svc := NewFeedService(repo, noopVoteRepo(), fixedMemberships(set), nil, FeedLimits{})
		_, err := svc.GetFeed(context.Background(), FeedInput{ViewerID: 1})
		require.NoError(t, err)
		require.NotNil(t, scope)
		assert.Equal(t, set, *scope)
	})

	t.Run("empty memberships stay empty by default", func(t *testing.T) {
		t.Parallel()
		var scope *models.MembershipSet
		repo := noopPostRepo()
		repo.listFeedFn = func(_ context.Context, q repository.FeedQuery) ([]*models.Post, error) {
			scope = q.Scope
			return nil, nil
		}
		svc := NewFeedService(repo, noopVoteRepo(), fixedMemberships(models.MembershipSet{}), featureflags.NewManager(""), FeedLimits{})
		page, err := svc.GetFeed(context.Background(), FeedInput{ViewerID: 1})
		require.NoError(t, err)
		require.NotNil(t, scope)
		assert.True(t, scope.Empty())
		assert.Empty(t, page.Posts)
	})

	t.Run("firehose fallback flag drops the scope", func(t *testing.T) {
		t.Parallel()
		scoped := true
		repo := noopPostRepo()
		repo.listFeedFn = func(_ context.Context, q repository.FeedQuery) ([]*models.Post, error) {
			scoped = q.Scope != nil
			return nil, nil
		}
		flags := featureflags.NewManager(featureflags.FeedFirehoseFallback + "=on")
		svc := NewFeedService(repo, noopVoteRepo(), fixedMemberships(models.MembershipSet{}), flags, FeedLimits{})
		_, err := svc.GetFeed(context.Background(), FeedInput{ViewerID: 1})
		require.NoError(t, err)
		assert.False(t, scoped)
	})

	t.Run("membership failure propagates", func(t *testing.T) {
		t.Parallel()
		boom := models.NewUnavailableError(errors.New("redis and db down"))
		src := membershipSourceFunc(func(_ context.Context, _ uint) (*models.MembershipSet, error) { return nil, boom })
		svc := NewFeedService(noopPostRepo(), noopVoteRepo(), src, nil, FeedLimits{})
		_, err := svc.GetFeed(context.Background(), FeedInput{ViewerID: 1})
		assertCode(t, err, models.CodeUnavailable)
	})
}

func TestFeedService_StoreFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.listFeedFn = func(_ context.Context, _ repository.FeedQuery) ([]*models.Post, error) {
		return nil, errors.New("timeout")
	}
	svc := NewFeedService(repo, noopVoteRepo(), fixedMemberships(models.MembershipSet{}), nil, FeedLimits{})
	_, err := svc.GetFeed(context.Background(), FeedInput{CategoryID: uintPtr(1)})
	assertCode(t, err, models.CodeUnavailable)
}

// newFeedCategory gives a test its own category so the world's post does
// not appear in the feed.
func newFeedCategory(t *testing.T, w *world, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug}
	require.NoError(t, w.db.Create(c).Error)
	return c
}

func TestFeedService_Integration(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	posts := repository.NewPostRepository(w.db)
	votes := repository.NewVoteRepository(w.db)
	memberships := repository.NewMembershipRepository(w.db)
	watches := newFeedCategory(t, w, "watches")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var created []*models.Post
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		p := &models.Post{
			UserID:     w.alice.ID,
			CategoryID: watches.ID,
			PostType:   models.PostTypeShowcase,
			Title:      "Shelf",
			Content:    "**look**",
			HotScore:   ranking.HotScore(0, 0, at),
			CreatedAt:  at,
		}
		require.NoError(t, posts.Create(ctx, p))
		created = append(created, p)
	}
	pinned := &models.Post{
		UserID: w.alice.ID, CategoryID: watches.ID, PostType: models.PostTypeEvent,
		Title: "Rules", Content: "Be nice", IsPinned: true, CreatedAt: base.Add(-time.Hour),
	}
	require.NoError(t, posts.Create(ctx, pinned))

	_, err := votes.Apply(ctx, repository.ApplyVoteParams{
		UserID: w.bob.ID, Target: models.VoteTarget{Kind: models.VoteTargetPost, ID: created[0].ID}, Value: 1,
	})
	require.NoError(t, err)
	require.NoError(t, posts.Save(ctx, w.bob.ID, created[4].ID))
	require.NoError(t, memberships.JoinCategory(ctx, w.bob.ID, watches.ID))

	membershipSvc := NewMembershipService(memberships, nil, time.Minute)
	svc := NewFeedService(posts, votes, membershipSvc, featureflags.NewManager(""), FeedLimits{Default: 2, Max: 10})

	var seen []uint
	cursor := ""
	for pageNo := 0; ; pageNo++ {
		page, err := svc.GetFeed(ctx, FeedInput{ViewerID: w.bob.ID, Sort: "new", Cursor: cursor})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Posts), 2)
		for i, p := range page.Posts {
			if pageNo == 0 && i == 0 {
				assert.Equal(t, pinned.ID, p.ID, "pinned first")
				continue
			}
			assert.False(t, p.IsPinned)
			seen = append(seen, p.ID)
			assert.Contains(t, p.ContentHTML, "<strong>look</strong>")
			switch p.ID {
			case created[0].ID:
				require.NotNil(t, p.UserVote)
				assert.Equal(t, 1, *p.UserVote)
			case created[4].ID:
				assert.True(t, p.IsSaved)
				assert.Nil(t, p.UserVote)
			}
		}
		if !page.HasMore {
			break
		}
		cursor = *page.Cursor
	}

	want := []uint{created[4].ID, created[3].ID, created[2].ID, created[1].ID, created[0].ID}
	assert.Equal(t, want, seen)

	page, err := svc.GetFeed(ctx, FeedInput{ViewerID: w.alice.ID})
	require.NoError(t, err)
	assert.Empty(t, page.Posts, "viewer without memberships gets an empty feed")
}

func TestFeedService_PinnedPostsBeyondPageSize(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	posts := repository.NewPostRepository(w.db)
	votes := repository.NewVoteRepository(w.db)
	comics := newFeedCategory(t, w, "comics")

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	var pinnedIDs, bodyIDs []uint
	for i := 0; i < 6; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		p := &models.Post{
			UserID: w.alice.ID, CategoryID: comics.ID, PostType: models.PostTypeDiscussion,
			Title: "Issue", Content: "Key issue", IsPinned: i < 3,
			UpvoteCount: i, HotScore: ranking.HotScore(i, 0, at), CreatedAt: at,
		}
		require.NoError(t, posts.Create(ctx, p))
		if p.IsPinned {
			pinnedIDs = append([]uint{p.ID}, pinnedIDs...)
		} else {
			bodyIDs = append([]uint{p.ID}, bodyIDs...)
		}
	}

	svc := NewFeedService(posts, votes, fixedMemberships(models.MembershipSet{}), nil, FeedLimits{Default: 2, Max: 10})

	for _, sort := range []string{"hot", "new", "top"} {
		t.Run(sort, func(t *testing.T) {
			var seen []uint
			cursor := ""
			for pages := 0; ; pages++ {
				require.Less(t, pages, 6, "paging must terminate")
				page, err := svc.GetFeed(ctx, FeedInput{CategoryID: &comics.ID, Sort: sort, Cursor: cursor})
				require.NoError(t, err)
				assert.LessOrEqual(t, len(page.Posts), 2)
				for _, p := range page.Posts {
					seen = append(seen, p.ID)
				}
				if !page.HasMore {
					assert.Nil(t, page.Cursor)
					break
				}
				cursor = *page.Cursor
			}

			want := append(append([]uint{}, pinnedIDs...), bodyIDs...)
			assert.Equal(t, want, seen, "every pinned and regular post is served once")
		})
	}
}
