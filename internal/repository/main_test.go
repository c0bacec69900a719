package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"collectorhub/internal/database"
	"collectorhub/internal/models"
	"collectorhub/internal/ranking"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB returns a migrated in-memory SQLite database private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every query on the same :memory: database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.ApplySchema(context.Background(), db, database.SchemaModeHybrid))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

type fixtures struct {
	t  *testing.T
	db *gorm.DB
	n  int
}

func newFixtures(t *testing.T, db *gorm.DB) *fixtures {
	return &fixtures{t: t, db: db}
}

func (f *fixtures) user() *models.User {
	f.t.Helper()
	f.n++
	u := &models.User{
		Username: fmt.Sprintf("collector%d", f.n),
		Email:    fmt.Sprintf("collector%d@example.com", f.n),
		Password: "x",
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixtures) category(slug string) *models.Category {
	f.t.Helper()
	c := &models.Category{Name: slug, Slug: slug}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

func (f *fixtures) group(categoryID uint, slug string) *models.InterestGroup {
	f.t.Helper()
	g := &models.InterestGroup{CategoryID: categoryID, Name: slug, Slug: slug}
	require.NoError(f.t, f.db.Create(g).Error)
	return g
}

type postOpts struct {
	groupID   *uint
	postType  models.PostType
	createdAt time.Time
	up, down  int
	pinned    bool
}

func (f *fixtures) post(authorID, categoryID uint, o postOpts) *models.Post {
	f.t.Helper()
	if o.createdAt.IsZero() {
		o.createdAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if o.postType == "" {
		o.postType = models.PostTypeDiscussion
	}
	p := &models.Post{
		UserID:        authorID,
		CategoryID:    categoryID,
		GroupID:       o.groupID,
		PostType:      o.postType,
		Title:         "Post",
		Content:       "Body",
		UpvoteCount:   o.up,
		DownvoteCount: o.down,
		HotScore:      ranking.HotScore(o.up, o.down, o.createdAt),
		IsPinned:      o.pinned,
		CreatedAt:     o.createdAt,
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

func (f *fixtures) comment(postID, authorID uint, parentID *uint, createdAt time.Time) *models.Comment {
	f.t.Helper()
	c := &models.Comment{PostID: postID, UserID: authorID, ParentID: parentID, Content: "reply", CreatedAt: createdAt}
	require.NoError(f.t, NewCommentRepository(f.db).Create(context.Background(), c))
	return c
}

func (f *fixtures) reloadPost(id uint) *models.Post {
	f.t.Helper()
	var p models.Post
	require.NoError(f.t, f.db.First(&p, id).Error)
	return &p
}

func (f *fixtures) countVotes(where string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&models.Vote{}).Where(where, args...).Count(&n).Error)
	return n
}
