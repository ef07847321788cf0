package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phimhub/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateAndLookupUser(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID:           "u-1",
		Username:     "linh",
		Email:        "Linh@Example.com",
		PasswordHash: "x",
	}))

	u, err := repo.GetByUsername(ctx, "linh")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u-1", u.ID)

	// email lookups are case-insensitive
	u, err = repo.GetByEmail(ctx, "linh@example.com")
	require.NoError(t, err)
	assert.NotNil(t, u)

	u, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 0, u.TokenVersion)
}

func TestLookupMissingUserReturnsNil(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	u, err := repo.GetByUsername(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestBumpTokenVersionInvalidatesOldTokens(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{ID: "u-1", Username: "linh", Email: "linh@example.com", PasswordHash: "x"}))

	require.NoError(t, repo.BumpTokenVersion(ctx, "u-1"))
	v, err := repo.GetTokenVersion(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestUpdatePasswordBumpsTokenVersion(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{ID: "u-1", Username: "linh", Email: "linh@example.com", PasswordHash: "old"}))
	require.NoError(t, repo.UpdatePasswordAndBumpTokenVersion(ctx, "u-1", "new"))

	u, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "new", u.PasswordHash)
	assert.Equal(t, 1, u.TokenVersion)
}
