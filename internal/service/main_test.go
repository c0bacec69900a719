package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"collectorhub/internal/database"
	"collectorhub/internal/models"
	"collectorhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn            func(context.Context, *models.Post) error
	getByIDFn           func(context.Context, uint) (*models.Post, error)
	deleteFn            func(context.Context, uint) error
	listFeedFn          func(context.Context, repository.FeedQuery) ([]*models.Post, error)
	savedPostIDsFn      func(context.Context, uint, []uint) (map[uint]bool, error)
	saveFn              func(context.Context, uint, uint) error
	unsaveFn            func(context.Context, uint, uint) error
	listIDsAfterFn      func(context.Context, uint, int) ([]uint, error)
	reconcileCountersFn func(context.Context, uint) (*repository.CounterRepair, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ListFeed(ctx context.Context, q repository.FeedQuery) ([]*models.Post, error) {
	return s.listFeedFn(ctx, q)
}
func (s *postRepoStub) SavedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	return s.savedPostIDsFn(ctx, userID, postIDs)
}
func (s *postRepoStub) Save(ctx context.Context, userID, postID uint) error {
	return s.saveFn(ctx, userID, postID)
}
func (s *postRepoStub) Unsave(ctx context.Context, userID, postID uint) error {
	return s.unsaveFn(ctx, userID, postID)
}
func (s *postRepoStub) ListIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	return s.listIDsAfterFn(ctx, afterID, limit)
}
func (s *postRepoStub) ReconcileCounters(ctx context.Context, postID uint) (*repository.CounterRepair, error) {
	return s.reconcileCountersFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:       func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:      func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		listFeedFn:     func(_ context.Context, _ repository.FeedQuery) ([]*models.Post, error) { return nil, nil },
		savedPostIDsFn: func(_ context.Context, _ uint, _ []uint) (map[uint]bool, error) { return map[uint]bool{}, nil },
		saveFn:         func(_ context.Context, _, _ uint) error { return nil },
		unsaveFn:       func(_ context.Context, _, _ uint) error { return nil },
		listIDsAfterFn: func(_ context.Context, _ uint, _ int) ([]uint, error) { return nil, nil },
		reconcileCountersFn: func(_ context.Context, _ uint) (*repository.CounterRepair, error) {
			return &repository.CounterRepair{}, nil
		},
	}
}

// voteRepoStub is a stub for repository.VoteRepository.
type voteRepoStub struct {
	applyFn       func(context.Context, repository.ApplyVoteParams) (*repository.VoteOutcome, error)
	votesByUserFn func(context.Context, uint, models.VoteTargetKind, []uint) (map[uint]int, error)
}

func (s *voteRepoStub) Apply(ctx context.Context, p repository.ApplyVoteParams) (*repository.VoteOutcome, error) {
	return s.applyFn(ctx, p)
}
func (s *voteRepoStub) VotesByUser(ctx context.Context, userID uint, kind models.VoteTargetKind, ids []uint) (map[uint]int, error) {
	return s.votesByUserFn(ctx, userID, kind, ids)
}

func noopVoteRepo() *voteRepoStub {
	return &voteRepoStub{
		applyFn: func(_ context.Context, _ repository.ApplyVoteParams) (*repository.VoteOutcome, error) {
			return &repository.VoteOutcome{}, nil
		},
		votesByUserFn: func(_ context.Context, _ uint, _ models.VoteTargetKind, _ []uint) (map[uint]int, error) {
			return map[uint]int{}, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByPostFn    func(context.Context, uint) ([]*models.Comment, error)
	updateContentFn func(context.Context, uint, string) error
	deleteSubtreeFn func(context.Context, *models.Comment) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string) error {
	return s.updateContentFn(ctx, id, content)
}
func (s *commentRepoStub) DeleteSubtree(ctx context.Context, comment *models.Comment) (int64, error) {
	return s.deleteSubtreeFn(ctx, comment)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:        func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostFn:    func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		updateContentFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteSubtreeFn: func(_ context.Context, _ *models.Comment) (int64, error) { return 1, nil },
	}
}

// membershipRepoStub is a stub for repository.MembershipRepository.
type membershipRepoStub struct {
	listCategoriesFn   func(context.Context) ([]*models.Category, error)
	getCategoryFn      func(context.Context, uint) (*models.Category, error)
	getGroupFn         func(context.Context, uint) (*models.InterestGroup, error)
	joinCategoryFn     func(context.Context, uint, uint) error
	leaveCategoryFn    func(context.Context, uint, uint) error
	joinGroupFn        func(context.Context, uint, uint) error
	leaveGroupFn       func(context.Context, uint, uint) error
	getMembershipSetFn func(context.Context, uint) (*models.MembershipSet, error)
}

func (s *membershipRepoStub) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.listCategoriesFn(ctx)
}
func (s *membershipRepoStub) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return s.getCategoryFn(ctx, id)
}
func (s *membershipRepoStub) GetGroup(ctx context.Context, id uint) (*models.InterestGroup, error) {
	return s.getGroupFn(ctx, id)
}
func (s *membershipRepoStub) EnsureCategory(_ context.Context, _ *models.Category) error {
	return errors.New("not implemented")
}
func (s *membershipRepoStub) EnsureGroup(_ context.Context, _ *models.InterestGroup) error {
	return errors.New("not implemented")
}
func (s *membershipRepoStub) JoinCategory(ctx context.Context, userID, categoryID uint) error {
	return s.joinCategoryFn(ctx, userID, categoryID)
}
func (s *membershipRepoStub) LeaveCategory(ctx context.Context, userID, categoryID uint) error {
	return s.leaveCategoryFn(ctx, userID, categoryID)
}
func (s *membershipRepoStub) JoinGroup(ctx context.Context, userID, groupID uint) error {
	return s.joinGroupFn(ctx, userID, groupID)
}
func (s *membershipRepoStub) LeaveGroup(ctx context.Context, userID, groupID uint) error {
	return s.leaveGroupFn(ctx, userID, groupID)
}
func (s *membershipRepoStub) GetMembershipSet(ctx context.Context, userID uint) (*models.MembershipSet, error) {
	return s.getMembershipSetFn(ctx, userID)
}

func noopMembershipRepo() *membershipRepoStub {
	return &membershipRepoStub{
		listCategoriesFn: func(_ context.Context) ([]*models.Category, error) { return nil, nil },
		getCategoryFn: func(_ context.Context, id uint) (*models.Category, error) {
			return &models.Category{ID: id}, nil
		},
		getGroupFn: func(_ context.Context, id uint) (*models.InterestGroup, error) {
			return &models.InterestGroup{ID: id}, nil
		},
		joinCategoryFn:  func(_ context.Context, _, _ uint) error { return nil },
		leaveCategoryFn: func(_ context.Context, _, _ uint) error { return nil },
		joinGroupFn:     func(_ context.Context, _, _ uint) error { return nil },
		leaveGroupFn:    func(_ context.Context, _, _ uint) error { return nil },
		getMembershipSetFn: func(_ context.Context, _ uint) (*models.MembershipSet, error) {
			return &models.MembershipSet{}, nil
		},
	}
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func uintPtr(v uint) *uint { return &v }

// newTestDB returns a migrated in-memory SQLite database private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.ApplySchema(context.Background(), db, database.SchemaModeHybrid))
	return db
}

// world seeds users, a category and an unlocked post on a fresh database.
type world struct {
	db       *gorm.DB
	alice    *models.User
	bob      *models.User
	admin    *models.User
	category *models.Category
	post     *models.Post
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db := newTestDB(t)
	w := &world{db: db}
	for i, u := range []**models.User{&w.alice, &w.bob, &w.admin} {
		*u = &models.User{
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@example.com", i),
			Password: "x",
			IsAdmin:  i == 2,
		}
		require.NoError(t, db.Create(*u).Error)
	}
	w.category = &models.Category{Name: "Vinyl", Slug: "vinyl"}
	require.NoError(t, db.Create(w.category).Error)
	w.post = &models.Post{
		UserID:     w.alice.ID,
		CategoryID: w.category.ID,
		PostType:   models.PostTypeDiscussion,
		Title:      "Blue Note first pressings",
		Content:    "Show me yours",
		CreatedAt:  time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(w.post).Error)
	return w
}

func (w *world) reloadPost(t *testing.T) *models.Post {
	t.Helper()
	var p models.Post
	require.NoError(t, w.db.First(&p, w.post.ID).Error)
	return &p
}
