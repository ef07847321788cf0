package catalog

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

func TestUpsertAndGetBySlug(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []models.Movie{{
		Slug:           "mai",
		Name:           "Mai",
		Type:           "single",
		Year:           2024,
		EpisodeCurrent: "Full",
		Category:       []models.Taxon{{Slug: "tam-ly", Name: "Tâm Lý"}},
		Country:        []models.Taxon{{Slug: "viet-nam", Name: "Việt Nam"}},
		Provider:       "KKPhim",
	}}))

	m, err := repo.GetBySlug(ctx, "mai")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Mai", m.Name)
	assert.Equal(t, "Full", m.EpisodeCurrent)
	require.Len(t, m.Category, 1)
	assert.Equal(t, "tam-ly", m.Category[0].Slug)

	// re-upserting the same slug replaces the row
	require.NoError(t, repo.Upsert(ctx, []models.Movie{{
		Slug:           "mai",
		Name:           "Mai",
		Type:           "single",
		Year:           2024,
		EpisodeCurrent: "Tập 2",
	}}))

	m, err = repo.GetBySlug(ctx, "mai")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Tập 2", m.EpisodeCurrent)
}

func TestGetBySlugMissing(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	m, err := repo.GetBySlug(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestListFilters(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, []models.Movie{
		{Slug: "mai", Name: "Mai", Type: "single", Year: 2024},
		{Slug: "nguoi-nhen", Name: "Người Nhện", OriginName: "Spider-Man", Type: "single", Year: 2021},
		{Slug: "mot-series", Name: "Một Series", Type: "series", Year: 2024},
	}))

	items, err := repo.List(ctx, ListQuery{Type: "single"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = repo.List(ctx, ListQuery{Q: "spider"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "nguoi-nhen", items[0].Slug)

	items, err = repo.List(ctx, ListQuery{Year: 2024})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	n, err := repo.Count(ctx, ListQuery{Type: "series"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
