package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/ranking"
	"collectorhub/internal/repository"
	"collectorhub/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password every generated user can log in with.
const DefaultPassword = "password123"

// Options sizes a development data set.
type Options struct {
	Users           int
	Posts           int
	CommentsPerPost int
	VotesPerPost    int
	// MaxDays spreads post creation times over the last MaxDays days.
	MaxDays    int
	SkipBcrypt bool
	// Seed makes generated content reproducible; 0 picks a random seed.
	Seed int64
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Votes    int
}

// Seeder generates fake users, posts, comments and votes. Content goes
// through the same services the API uses, so counters and hot scores come
// out consistent with the vote ledger.
type Seeder struct {
	db          *gorm.DB
	faker       *gofakeit.Faker
	opts        Options
	users       repository.UserRepository
	memberships repository.MembershipRepository
	posts       *service.PostService
	comments    *service.CommentService
	votes       *service.VoteService
	now         func() time.Time
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	users := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)

	return &Seeder{
		db:          db,
		faker:       gofakeit.New(opts.Seed),
		opts:        opts,
		users:       users,
		memberships: membershipRepo,
		posts:       service.NewPostService(postRepo, voteRepo, membershipRepo, users.IsAdmin, nil),
		comments:    service.NewCommentService(commentRepo, postRepo, voteRepo, users.IsAdmin, nil),
		votes:       service.NewVoteService(voteRepo),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ClearAll removes generated content and users. Categories and groups stay.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{
		"votes", "saved_posts", "comments", "posts",
		"category_memberships", "group_memberships", "users",
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Run applies the built-in catalog and generates a data set on top of it.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	if err := Builtins(ctx, s.memberships); err != nil {
		return nil, err
	}
	categories, err := s.memberships.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories to seed into")
	}

	summary := &Summary{}
	users, err := s.createUsers(ctx, categories)
	if err != nil {
		return summary, err
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	for i := 0; i < s.opts.Posts; i++ {
		post, err := s.createPost(ctx, s.pickUser(users), categories)
		if err != nil {
			return summary, err
		}
		summary.Posts++

		comments, err := s.createThread(ctx, post, users)
		summary.Comments += len(comments)
		if err != nil {
			return summary, err
		}

		votes, err := s.castVotes(ctx, post, comments, users)
		summary.Votes += votes
		if err != nil {
			return summary, err
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("votes", summary.Votes),
	)
	return summary, nil
}

func (s *Seeder) createUsers(ctx context.Context, categories []*models.Category) ([]*models.User, error) {
	password := DefaultPassword
	if !s.opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		password = string(hashed)
	}

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		handle := fmt.Sprintf("%.40s%d", s.faker.Username(), i)
		user := &models.User{
			Username: handle,
			Email:    fmt.Sprintf("%s@collectorhub.test", handle),
			Password: password,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return users, fmt.Errorf("create user %s: %w", handle, err)
		}
		users = append(users, user)

		if err := s.joinRandom(ctx, user.ID, categories); err != nil {
			return users, err
		}
	}
	return users, nil
}

// joinRandom follows one to three categories and sometimes one of their groups.
func (s *Seeder) joinRandom(ctx context.Context, userID uint, categories []*models.Category) error {
	n := s.faker.Number(1, min(3, len(categories)))
	for _, idx := range s.faker.Rand.Perm(len(categories))[:n] {
		category := categories[idx]
		if err := s.memberships.JoinCategory(ctx, userID, category.ID); err != nil {
			return fmt.Errorf("join category %s: %w", category.Slug, err)
		}
		if len(category.Groups) > 0 && s.faker.Bool() {
			group := category.Groups[s.faker.Number(0, len(category.Groups)-1)]
			if err := s.memberships.JoinGroup(ctx, userID, group.ID); err != nil {
				return fmt.Errorf("join group %s: %w", group.Slug, err)
			}
		}
	}
	return nil
}

func (s *Seeder) createPost(ctx context.Context, author *models.User, categories []*models.Category) (*models.Post, error) {
	category := categories[s.faker.Number(0, len(categories)-1)]
	in := service.CreatePostInput{
		UserID:     author.ID,
		CategoryID: category.ID,
		PostType:   string(models.PostTypes[s.faker.Number(0, len(models.PostTypes)-1)]),
		Title:      s.faker.Sentence(s.faker.Number(4, 10)),
		Content:    s.faker.Paragraph(s.faker.Number(1, 3), 3, 12, "\n\n"),
	}
	if len(category.Groups) > 0 && s.faker.Number(0, 2) == 0 {
		groupID := category.Groups[s.faker.Number(0, len(category.Groups)-1)].ID
		in.GroupID = &groupID
	}

	post, err := s.posts.CreatePost(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	// Backdate so the hot and top feeds have something to rank.
	age := time.Duration(s.faker.Number(0, s.opts.MaxDays*24*60)) * time.Minute
	post.CreatedAt = s.now().Add(-age)
	post.HotScore = ranking.HotScore(0, 0, post.CreatedAt)
	err = s.db.WithContext(ctx).Table("posts").Where("id = ?", post.ID).UpdateColumns(map[string]interface{}{
		"created_at": post.CreatedAt,
		"hot_score":  post.HotScore,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("backdate post %d: %w", post.ID, err)
	}
	return post, nil
}

// createThread adds up to CommentsPerPost comments, replying to earlier ones
// while staying inside the reply depth limit.
func (s *Seeder) createThread(ctx context.Context, post *models.Post, users []*models.User) ([]*service.CommentNode, error) {
	if s.opts.CommentsPerPost <= 0 {
		return nil, nil
	}
	n := s.faker.Number(0, s.opts.CommentsPerPost)
	created := make([]*service.CommentNode, 0, n)
	for i := 0; i < n; i++ {
		in := service.CreateCommentInput{
			UserID:  s.pickUser(users).ID,
			PostID:  post.ID,
			Content: s.faker.Sentence(s.faker.Number(5, 20)),
		}
		if len(created) > 0 && s.faker.Bool() {
			parent := created[s.faker.Number(0, len(created)-1)]
			if parent.Depth < service.MaxCommentDepth-2 {
				in.ParentID = &parent.ID
			}
		}
		node, err := s.comments.CreateComment(ctx, in)
		if err != nil {
			return created, fmt.Errorf("create comment on post %d: %w", post.ID, err)
		}
		created = append(created, node)
	}
	return created, nil
}

// castVotes has distinct users vote on the post and some of its comments,
// mostly upward.
func (s *Seeder) castVotes(ctx context.Context, post *models.Post, comments []*service.CommentNode, users []*models.User) (int, error) {
	if s.opts.VotesPerPost <= 0 {
		return 0, nil
	}
	cast := 0
	voters := s.faker.Rand.Perm(len(users))[:min(s.opts.VotesPerPost, len(users))]
	for _, idx := range voters {
		postID := post.ID
		if _, err := s.votes.CastVote(ctx, service.CastVoteInput{
			UserID: users[idx].ID, PostID: &postID, Value: s.voteValue(),
		}); err != nil {
			return cast, fmt.Errorf("vote on post %d: %w", post.ID, err)
		}
		cast++

		if len(comments) > 0 && s.faker.Bool() {
			commentID := comments[s.faker.Number(0, len(comments)-1)].ID
			if _, err := s.votes.CastVote(ctx, service.CastVoteInput{
				UserID: users[idx].ID, CommentID: &commentID, Value: s.voteValue(),
			}); err != nil {
				return cast, fmt.Errorf("vote on comment %d: %w", commentID, err)
			}
			cast++
		}
	}
	return cast, nil
}

func (s *Seeder) voteValue() int {
	if s.faker.Number(1, 4) == 1 {
		return -1
	}
	return 1
}

func (s *Seeder) pickUser(users []*models.User) *models.User {
	return users[s.faker.Number(0, len(users)-1)]
}
