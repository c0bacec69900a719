package seed

import (
	"context"
	"testing"

	"collectorhub/internal/database"
	"collectorhub/internal/models"
	"collectorhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

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

func TestBuiltinCatalog(t *testing.T) {
	catalog, err := BuiltinCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, catalog.Categories)

	slugs := map[string]bool{}
	for _, c := range catalog.Categories {
		slugs[c.Slug] = true
	}
	assert.True(t, slugs["coins"])
	assert.True(t, slugs["vinyl"])
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", "categories: [\n"},
		{"bad slug", "categories:\n  - name: Coins\n    slug: Coins!\n"},
		{"reserved slug", "categories:\n  - name: Admin\n    slug: admin\n"},
		{"missing name", "categories:\n  - slug: coins\n"},
		{"duplicate across levels", "categories:\n  - name: Coins\n    slug: coins\n    groups:\n      - name: Coins again\n        slug: coins\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestBuiltins_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := repository.NewMembershipRepository(db)

	require.NoError(t, Builtins(ctx, repo))

	var categories, groups int64
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	require.NoError(t, db.Model(&models.InterestGroup{}).Count(&groups).Error)

	catalog, err := BuiltinCatalog()
	require.NoError(t, err)
	wantGroups := 0
	for _, c := range catalog.Categories {
		wantGroups += len(c.Groups)
	}
	assert.EqualValues(t, len(catalog.Categories), categories)
	assert.EqualValues(t, wantGroups, groups)

	require.NoError(t, db.Model(&models.Category{}).Where("slug = ?", "coins").Update("name", "Numismatics").Error)
	require.NoError(t, Builtins(ctx, repo))

	var again int64
	require.NoError(t, db.Model(&models.Category{}).Count(&again).Error)
	assert.Equal(t, categories, again)

	var coins models.Category
	require.NoError(t, db.Where("slug = ?", "coins").First(&coins).Error)
	assert.Equal(t, "Numismatics", coins.Name)

	var ancient models.InterestGroup
	require.NoError(t, db.Where("slug = ?", "ancient-coins").First(&ancient).Error)
	assert.Equal(t, coins.ID, ancient.CategoryID)
}

func TestSeeder_RunProducesConsistentData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := NewSeeder(db, Options{
		Users:           5,
		Posts:           8,
		CommentsPerPost: 4,
		VotesPerPost:    3,
		SkipBcrypt:      true,
		Seed:            42,
	})
	summary, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Users)
	assert.Equal(t, 8, summary.Posts)

	var posts, comments, votes int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
	assert.EqualValues(t, summary.Posts, posts)
	assert.EqualValues(t, summary.Comments, comments)
	assert.EqualValues(t, summary.Votes, votes)

	postRepo := repository.NewPostRepository(db)
	ids, err := postRepo.ListIDsAfter(ctx, 0, 100)
	require.NoError(t, err)
	for _, id := range ids {
		repair, err := postRepo.ReconcileCounters(ctx, id)
		require.NoError(t, err)
		assert.False(t, repair.PostRepaired, "post %d drifted", id)
		assert.Zero(t, repair.CommentsRepaired, "comments on post %d drifted", id)
	}

	var members int64
	require.NoError(t, db.Model(&models.CategoryMembership{}).Count(&members).Error)
	assert.GreaterOrEqual(t, members, int64(5))

	require.NoError(t, s.ClearAll(ctx))
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&votes).Error)
	assert.Zero(t, posts)
	assert.Zero(t, votes)

	var categories int64
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	assert.NotZero(t, categories)
}
