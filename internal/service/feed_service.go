package service

import (
	"context"
	"strings"
	"time"

	"collectorhub/internal/featureflags"
	"collectorhub/internal/models"
	"collectorhub/internal/observability"
	"collectorhub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MembershipSource resolves the interests that scope a viewer's feed.
type MembershipSource interface {
	MembershipSet(ctx context.Context, userID uint) (*models.MembershipSet, error)
}

// FeedLimits bounds the page size a caller may request.
type FeedLimits struct {
	Default int
	Max     int
}

// FeedService assembles cursor-paged feeds from persisted hot scores.
type FeedService struct {
	posts       repository.PostRepository
	memberships MembershipSource
	flags       *featureflags.Manager
	limits      FeedLimits
	decorator   postDecorator
}

type FeedInput struct {
	ViewerID   uint
	Sort       string
	CategoryID *uint
	GroupID    *uint
	PostType   string
	Cursor     string
	Limit      int
}

// FeedPage is one page of a feed. Cursor is set only when HasMore is true.
type FeedPage struct {
	Posts   []*models.Post `json:"posts"`
	Cursor  *string        `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

func NewFeedService(
	posts repository.PostRepository,
	votes repository.VoteRepository,
	memberships MembershipSource,
	flags *featureflags.Manager,
	limits FeedLimits,
) *FeedService {
	if limits.Default <= 0 {
		limits.Default = 20
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &FeedService{
		posts:       posts,
		memberships: memberships,
		flags:       flags,
		limits:      limits,
		decorator:   postDecorator{posts: posts, votes: votes, flags: flags},
	}
}

func (s *FeedService) pageSize(requested int) int {
	switch {
	case requested <= 0:
		return s.limits.Default
	case requested > s.limits.Max:
		return s.limits.Max
	default:
		return requested
	}
}

// GetFeed returns one page of posts. Without a category or group filter the
// feed is scoped to the viewer's memberships, and an empty membership set
// yields an empty feed unless the firehose fallback flag is on. Pinned posts
// lead the feed and count against the page size like any other row.
func (s *FeedService) GetFeed(ctx context.Context, in FeedInput) (page *FeedPage, err error) {
	sort, err := models.ParseFeedSort(in.Sort)
	if err != nil {
		return nil, err
	}
	cursor, err := models.ParseFeedCursor(sort, in.Cursor)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartServiceSpan(ctx, "FeedService", "GetFeed",
		attribute.String("feed.sort", string(sort)),
		attribute.Bool("feed.cursor", cursor != nil),
	)
	defer func() { observability.EndSpan(span, err) }()
	start := time.Now()
	defer func() {
		observability.FeedPageLatency.WithLabelValues(string(sort)).Observe(time.Since(start).Seconds())
	}()

	limit := s.pageSize(in.Limit)
	q := repository.FeedQuery{
		Sort:       sort,
		CategoryID: in.CategoryID,
		GroupID:    in.GroupID,
		Cursor:     cursor,
	}
	if raw := strings.TrimSpace(in.PostType); raw != "" {
		postType := models.PostType(strings.ToLower(raw))
		if !postType.Valid() {
			return nil, models.NewValidationError("unknown post_type " + raw)
		}
		q.PostType = &postType
	}

	if in.CategoryID == nil && in.GroupID == nil {
		set, err := s.memberships.MembershipSet(ctx, in.ViewerID)
		if err != nil {
			return nil, err
		}
		if !set.Empty() || !s.flags.Enabled(featureflags.FeedFirehoseFallback, in.ViewerID) {
			q.Scope = set
		}
	}

	q.Limit = limit + 1
	posts, err := s.posts.ListFeed(ctx, q)
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}
	page = &FeedPage{Posts: posts}
	if page.Posts == nil {
		page.Posts = []*models.Post{}
	}
	if len(page.Posts) > limit {
		page.HasMore = true
		page.Posts = page.Posts[:limit]
		next := models.CursorFor(sort, page.Posts[limit-1])
		page.Cursor = &next
	}

	if err := s.decorator.decorate(ctx, in.ViewerID, page.Posts); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("feed.size", len(page.Posts)))
	return page, nil
}
