package library

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phimhub/pkg/database"
	"phimhub/pkg/models"
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

func TestFavoritesRoundTrip(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddFavorite(ctx, models.FavoriteItem{UserID: "u1", MovieSlug: "mai", MovieName: "Mai"}))

	ok, err := repo.IsFavorite(ctx, "u1", "mai")
	require.NoError(t, err)
	assert.True(t, ok)

	items, total, err := repo.ListFavorites(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "mai", items[0].MovieSlug)

	require.NoError(t, repo.RemoveFavorite(ctx, "u1", "mai"))
	ok, err = repo.IsFavorite(ctx, "u1", "mai")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddFavoriteTwiceIsIdempotent(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddFavorite(ctx, models.FavoriteItem{UserID: "u1", MovieSlug: "mai"}))
	require.NoError(t, repo.AddFavorite(ctx, models.FavoriteItem{UserID: "u1", MovieSlug: "mai"}))

	_, total, err := repo.ListFavorites(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRemoveMissingFavorite(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	err := repo.RemoveFavorite(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWatchlistIsSeparateFromFavorites(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.AddToWatchlist(ctx, models.WatchlistItem{UserID: "u1", MovieSlug: "mai"}))

	ok, err := repo.IsOnWatchlist(ctx, "u1", "mai")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsFavorite(ctx, "u1", "mai")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlaylistLifecycle(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreatePlaylist(ctx, models.Playlist{ID: "p1", UserID: "u1", Name: "Phim Tết"}))
	require.NoError(t, repo.AddPlaylistItem(ctx, "u1", models.PlaylistItem{PlaylistID: "p1", MovieSlug: "mai", MovieName: "Mai"}))
	require.NoError(t, repo.AddPlaylistItem(ctx, "u1", models.PlaylistItem{PlaylistID: "p1", MovieSlug: "dao-pho-va-piano"}))

	p, err := repo.GetPlaylist(ctx, "u1", "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Phim Tết", p.Name)
	assert.Len(t, p.Items, 2)

	lists, err := repo.ListPlaylists(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lists, 1)

	require.NoError(t, repo.RemovePlaylistItem(ctx, "u1", "p1", "mai"))
	p, err = repo.GetPlaylist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Len(t, p.Items, 1)

	require.NoError(t, repo.DeletePlaylist(ctx, "u1", "p1"))
	p, err = repo.GetPlaylist(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPlaylistOwnershipEnforced(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreatePlaylist(ctx, models.Playlist{ID: "p1", UserID: "u1", Name: "Mine"}))

	// another user cannot add into or read someone else's playlist
	err := repo.AddPlaylistItem(ctx, "u2", models.PlaylistItem{PlaylistID: "p1", MovieSlug: "mai"})
	assert.Error(t, err)

	p, err := repo.GetPlaylist(ctx, "u2", "p1")
	require.NoError(t, err)
	assert.Nil(t, p)
}
