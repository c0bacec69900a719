package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"collectorhub/internal/models"
	"collectorhub/internal/ranking"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func postTarget(id uint) models.VoteTarget {
	return models.VoteTarget{Kind: models.VoteTargetPost, ID: id}
}

func TestVoteRepository_PostStateMachine(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author, voter := f.user(), f.user()
	cat := f.category("coins")
	created := ranking.Epoch.Add(36 * time.Hour)
	post := f.post(author.ID, cat.ID, postOpts{createdAt: created})

	t.Run("first upvote inserts", func(t *testing.T) {
		out, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: postTarget(post.ID), Value: models.Upvote})
		require.NoError(t, err)
		assert.Equal(t, models.Upvote, out.Value)
		assert.Equal(t, 1, out.UpvoteCount)
		assert.Equal(t, 0, out.DownvoteCount)
		require.NotNil(t, out.HotScore)
		assert.Equal(t, ranking.HotScore(1, 0, created), *out.HotScore)
		assert.Equal(t, *out.HotScore, f.reloadPost(post.ID).HotScore)
	})

	t.Run("flip to downvote updates in place", func(t *testing.T) {
		out, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: postTarget(post.ID), Value: models.Downvote})
		require.NoError(t, err)
		assert.Equal(t, models.VoteActionUpdate, out.Transition.Action)
		assert.Equal(t, 0, out.UpvoteCount)
		assert.Equal(t, 1, out.DownvoteCount)
		assert.Equal(t, ranking.HotScore(0, 1, created), *out.HotScore)
		assert.EqualValues(t, 1, f.countVotes("post_id = ?", post.ID))
	})

	t.Run("repeating the downvote toggles it off", func(t *testing.T) {
		out, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: postTarget(post.ID), Value: models.Downvote})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Value)
		assert.Equal(t, 0, out.UpvoteCount)
		assert.Equal(t, 0, out.DownvoteCount)
		assert.EqualValues(t, 0, f.countVotes("post_id = ?", post.ID))

		stored := f.reloadPost(post.ID)
		assert.Equal(t, 0, stored.UpvoteCount)
		assert.Equal(t, 0, stored.DownvoteCount)
		assert.Equal(t, ranking.HotScore(0, 0, created), stored.HotScore)
	})

	t.Run("remove without a vote is a no-op", func(t *testing.T) {
		out, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: postTarget(post.ID), Remove: true})
		require.NoError(t, err)
		assert.Equal(t, models.VoteActionNone, out.Transition.Action)
		assert.Equal(t, 0, out.UpvoteCount)
	})

	t.Run("remove withdraws an existing vote", func(t *testing.T) {
		_, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: postTarget(post.ID), Value: models.Upvote})
		require.NoError(t, err)

		out, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: postTarget(post.ID), Remove: true})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Value)
		assert.Equal(t, 0, out.UpvoteCount)
		assert.EqualValues(t, 0, f.countVotes("post_id = ?", post.ID))
	})
}

func TestVoteRepository_AtMostOneRowPerUserAndTarget(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author := f.user()
	voters := []*models.User{f.user(), f.user(), f.user()}
	cat := f.category("stamps")
	post := f.post(author.ID, cat.ID, postOpts{})

	sequence := []int{models.Upvote, models.Downvote, models.Downvote, models.Upvote, models.Upvote, models.Downvote}
	for _, v := range voters {
		for _, value := range sequence {
			_, err := repo.Apply(ctx, ApplyVoteParams{UserID: v.ID, Target: postTarget(post.ID), Value: value})
			require.NoError(t, err)
			assert.LessOrEqual(t, f.countVotes("user_id = ? AND post_id = ?", v.ID, post.ID), int64(1))
		}
	}

	// Each voter ends on a downvote.
	stored := f.reloadPost(post.ID)
	assert.Equal(t, 0, stored.UpvoteCount)
	assert.Equal(t, 3, stored.DownvoteCount)
	assert.EqualValues(t, 3, f.countVotes("post_id = ? AND value = ?", post.ID, models.Downvote))
}

func TestVoteRepository_CommentTarget(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	author, voter := f.user(), f.user()
	cat := f.category("vinyl")
	post := f.post(author.ID, cat.ID, postOpts{})
	comment := f.comment(post.ID, author.ID, nil, time.Now().UTC())

	target := models.VoteTarget{Kind: models.VoteTargetComment, ID: comment.ID}
	out, err := repo.Apply(ctx, ApplyVoteParams{UserID: voter.ID, Target: target, Value: models.Upvote})
	require.NoError(t, err)
	assert.Equal(t, 1, out.UpvoteCount)
	assert.Nil(t, out.HotScore)

	// A comment vote leaves the post's counters alone.
	assert.Equal(t, 0, f.reloadPost(post.ID).UpvoteCount)

	votes, err := repo.VotesByUser(ctx, voter.ID, models.VoteTargetComment, []uint{comment.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{comment.ID: models.Upvote}, votes)

	postVotes, err := repo.VotesByUser(ctx, voter.ID, models.VoteTargetPost, []uint{post.ID})
	require.NoError(t, err)
	assert.Empty(t, postVotes)
}

func TestVoteRepository_MissingTarget(t *testing.T) {
	db := newTestDB(t)
	f := newFixtures(t, db)
	repo := NewVoteRepository(db)

	voter := f.user()
	_, err := repo.Apply(context.Background(), ApplyVoteParams{UserID: voter.ID, Target: postTarget(424242), Value: models.Upvote})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.Apply(context.Background(), ApplyVoteParams{
		UserID: voter.ID,
		Target: models.VoteTarget{Kind: models.VoteTargetComment, ID: 424242},
		Value:  models.Downvote,
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVoteRepository_StoreFailurePropagates(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoteRepository(db)

	mock.ExpectBegin().WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.Apply(context.Background(), ApplyVoteParams{UserID: 1, Target: postTarget(1), Value: models.Upvote})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_RollsBackOnCounterFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewVoteRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id","created_at" FROM "posts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "votes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "post_id", "value"}))
	mock.ExpectQuery(`INSERT INTO "votes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`UPDATE "posts"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), ApplyVoteParams{UserID: 1, Target: postTarget(1), Value: models.Upvote})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
