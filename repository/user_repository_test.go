package repository

import (
	"context"
	"testing"

	"roundbets/repository/testutil"
	"roundbets/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create if absent grants once", func(t *testing.T) {
		user, created, err := repo.CreateIfAbsent(ctx, "Alice", "alice@example.com", 100)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, int64(100), user.Credits)

		again, created, err := repo.CreateIfAbsent(ctx, "Alice Again", "alice@example.com", 100)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, user.ID, again.ID)
		assert.Equal(t, "Alice", again.Name)
	})

	t.Run("lookup missing user", func(t *testing.T) {
		user, err := repo.GetByID(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, user)

		user, err = repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("deduct is guarded", func(t *testing.T) {
		user := testutil.InsertUser(t, testDB.DB, "bob", 50)

		require.NoError(t, repo.DeductCredits(ctx, user.ID, 50))

		err := repo.DeductCredits(ctx, user.ID, 1)
		assert.ErrorIs(t, err, service.ErrCreditsTooLow)

		reloaded, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), reloaded.Credits)
	})

	t.Run("add returns new balance", func(t *testing.T) {
		user := testutil.InsertUser(t, testDB.DB, "carol", 10)

		credits, err := repo.AddCredits(ctx, user.ID, 25)
		require.NoError(t, err)
		assert.Equal(t, int64(35), credits)

		_, err = repo.AddCredits(ctx, "missing", 5)
		assert.Error(t, err)
	})

	t.Run("ranked by credits then age", func(t *testing.T) {
		testDB.Truncate(t)
		first := testutil.InsertUser(t, testDB.DB, "first", 40)
		second := testutil.InsertUser(t, testDB.DB, "second", 40)
		rich := testutil.InsertUser(t, testDB.DB, "rich", 500)
		_, err := testDB.DB.Exec(ctx, `UPDATE users SET created_at = created_at + INTERVAL '1 second' WHERE id = $1`, second.ID)
		require.NoError(t, err)

		users, err := repo.GetAllRanked(ctx)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, rich.ID, users[0].ID)
		assert.Equal(t, first.ID, users[1].ID)
		assert.Equal(t, second.ID, users[2].ID)
	})

	t.Run("credits cannot go negative", func(t *testing.T) {
		user := testutil.InsertUser(t, testDB.DB, "dave", 5)
		_, err := testDB.DB.Exec(ctx, `UPDATE users SET credits = credits - 10 WHERE id = $1`, user.ID)
		assert.Error(t, err, "credits check constraint")
	})
}
