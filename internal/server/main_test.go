package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"collectorhub/internal/config"
	"collectorhub/internal/database"
	"collectorhub/internal/models"
	"collectorhub/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:              testSecret,
		JWTIssuer:              "collectorhub-api",
		JWTAudience:            "collectorhub-client",
		Port:                   "0",
		Env:                    "test",
		AllowedOrigins:         "http://localhost:5173",
		FeedDefaultLimit:       20,
		FeedMaxLimit:           100,
		VoteRateLimit:          60,
		VoteRateWindowSeconds:  60,
		CommentRateLimit:       30,
		CommentRateWindowSecs:  60,
		MembershipCacheMinutes: 10,
	}
}

type testEnv struct {
	t     *testing.T
	db    *gorm.DB
	mr    *miniredis.Miniredis
	srv   *Server
	app   *fiber.App
	alice *models.User
	bob   *models.User
	admin *models.User
	coins *models.Category
}

// newTestEnv wires a full server over in-memory SQLite and miniredis.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.ApplySchema(context.Background(), db, database.SchemaModeHybrid))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	env := &testEnv{t: t, db: db, mr: mr, srv: srv, app: srv.NewApp()}
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	for _, u := range []**models.User{&env.alice, &env.bob, &env.admin} {
		*u = &models.User{Password: "x"}
	}
	env.alice.Username, env.alice.Email = "alice", "alice@example.com"
	env.bob.Username, env.bob.Email = "bob", "bob@example.com"
	env.admin.Username, env.admin.Email, env.admin.IsAdmin = "admin", "admin@example.com", true
	for _, u := range []*models.User{env.alice, env.bob, env.admin} {
		require.NoError(t, users.Create(ctx, u))
	}

	env.coins = &models.Category{Name: "Coins", Slug: "coins"}
	require.NoError(t, repository.NewMembershipRepository(db).EnsureCategory(ctx, env.coins))
	return env
}

func (e *testEnv) token(user *models.User) string {
	e.t.Helper()
	tok, err := e.srv.auth.IssueToken(user.ID, time.Hour)
	require.NoError(e.t, err)
	return tok
}

// do sends a JSON request as user (nil for anonymous) and decodes the body
// into out when out is non-nil.
func (e *testEnv) do(method, path string, user *models.User, body any, out any) int {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(user))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// createPost creates a post through the API and returns its id.
func (e *testEnv) createPost(author *models.User, title string) uint {
	e.t.Helper()
	var post models.Post
	status := e.do(http.MethodPost, "/api/posts", author, map[string]any{
		"category_id": e.coins.ID,
		"title":       title,
		"content":     "A **fine** example",
	}, &post)
	require.Equal(e.t, http.StatusCreated, status)
	return post.ID
}
