package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phimhub/pkg/database"
	"phimhub/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// in-memory sqlite gives each pool connection its own database
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func entry(userID, movieSlug, episodeSlug string, progress, duration int64, at time.Time) models.WatchHistoryEntry {
	return models.WatchHistoryEntry{
		UserID:          userID,
		MovieSlug:       movieSlug,
		MovieName:       "Movie " + movieSlug,
		EpisodeSlug:     episodeSlug,
		EpisodeName:     "Episode " + episodeSlug,
		ProgressSeconds: progress,
		DurationSeconds: duration,
		UpdatedAt:       at,
	}
}

func TestUpsertReplacesPerMovie(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, entry("u1", "mai", "tap-01", 300, 1400, base)))
	// a later report for a different episode of the same movie replaces
	// the stored row
	require.NoError(t, repo.Upsert(ctx, entry("u1", "mai", "tap-02", 60, 1400, base.Add(time.Minute))))

	_, total, err := repo.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	e, err := repo.Get(ctx, "u1", "mai")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "tap-02", e.EpisodeSlug)
	assert.Equal(t, int64(60), e.ProgressSeconds)
}

func TestGetMissingReturnsNil(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	e, err := repo.Get(context.Background(), "u1", "missing")
	assert.NoError(t, err)
	assert.Nil(t, e)
}

func TestUpsertEvictsBeyondCap(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i <= MaxEntriesPerUser; i++ {
		slug := fmt.Sprintf("movie-%03d", i)
		require.NoError(t, repo.Upsert(ctx, entry("u1", slug, "tap-01", 100, 1400, base.Add(time.Duration(i)*time.Second))))
	}

	_, total, err := repo.List(ctx, "u1", MaxEntriesPerUser, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxEntriesPerUser, total)

	// the least recently updated movie is the one evicted
	oldest, err := repo.Get(ctx, "u1", "movie-000")
	require.NoError(t, err)
	assert.Nil(t, oldest)

	newest, err := repo.Get(ctx, "u1", fmt.Sprintf("movie-%03d", MaxEntriesPerUser))
	require.NoError(t, err)
	assert.NotNil(t, newest)
}

func TestRewatchingOldMovieRefreshesItsSlot(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxEntriesPerUser; i++ {
		slug := fmt.Sprintf("movie-%03d", i)
		require.NoError(t, repo.Upsert(ctx, entry("u1", slug, "tap-01", 100, 1400, base.Add(time.Duration(i)*time.Second))))
	}

	// touching the oldest movie makes movie-001 the eviction candidate
	require.NoError(t, repo.Upsert(ctx, entry("u1", "movie-000", "tap-02", 200, 1400, base.Add(time.Hour))))
	require.NoError(t, repo.Upsert(ctx, entry("u1", "movie-new", "tap-01", 50, 1400, base.Add(2*time.Hour))))

	kept, err := repo.Get(ctx, "u1", "movie-000")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	evicted, err := repo.Get(ctx, "u1", "movie-001")
	require.NoError(t, err)
	assert.Nil(t, evicted)
}

func TestCapIsPerUser(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i <= MaxEntriesPerUser; i++ {
		slug := fmt.Sprintf("movie-%03d", i)
		require.NoError(t, repo.Upsert(ctx, entry("u1", slug, "tap-01", 100, 1400, base.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, repo.Upsert(ctx, entry("u2", "mai", "tap-01", 100, 1400, base)))

	e, err := repo.Get(ctx, "u2", "mai")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestListNewestFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, entry("u1", "older", "tap-01", 100, 1400, base)))
	require.NoError(t, repo.Upsert(ctx, entry("u1", "newer", "tap-01", 100, 1400, base.Add(time.Minute))))

	items, total, err := repo.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].MovieSlug)
	assert.Equal(t, "older", items[1].MovieSlug)
}

func TestContinueWatchingExcludesFinished(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, entry("u1", "halfway", "tap-01", 700, 1400, base)))
	// 96% watched counts as finished
	require.NoError(t, repo.Upsert(ctx, entry("u1", "done", "tap-01", 1345, 1400, base.Add(time.Second))))
	// never actually started
	require.NoError(t, repo.Upsert(ctx, entry("u1", "untouched", "tap-01", 0, 1400, base.Add(2*time.Second))))
	// no duration reported yet, keep it resumable
	require.NoError(t, repo.Upsert(ctx, entry("u1", "no-duration", "tap-01", 80, 0, base.Add(3*time.Second))))

	items, err := repo.ContinueWatching(ctx, "u1", 10)
	require.NoError(t, err)

	slugs := make([]string, 0, len(items))
	for _, e := range items {
		slugs = append(slugs, e.MovieSlug)
	}
	assert.Equal(t, []string{"no-duration", "halfway"}, slugs)
}

func TestResumeMatchesEpisode(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Report(ctx, entry("u1", "mai", "tap-02", 120, 1400, base)))

	e, err := repo.Resume(ctx, "u1", "mai", "tap-02")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(120), e.ProgressSeconds)

	// opening a different episode starts from the beginning
	e, err = repo.Resume(ctx, "u1", "mai", "tap-03")
	require.NoError(t, err)
	assert.Nil(t, e)

	// an empty slug means "whatever was last watched"
	e, err = repo.Resume(ctx, "u1", "mai", "")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestDeleteAndClear(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, entry("u1", "mai", "tap-01", 100, 1400, base)))
	require.NoError(t, repo.Upsert(ctx, entry("u1", "dao", "tap-01", 100, 1400, base)))

	require.NoError(t, repo.Delete(ctx, "u1", "mai"))
	_, total, err := repo.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	require.NoError(t, repo.Clear(ctx, "u1"))
	_, total, err = repo.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
