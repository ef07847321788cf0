// Package library holds the user's saved movies: favorites, the
// watch-later list, and named playlists.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"phimhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Favorites and watchlist share a shape, so the queries are generated
// over the table name. Only the two known tables ever reach listSaved.

func (r *Repo) AddFavorite(ctx context.Context, item models.FavoriteItem) error {
	return r.addSaved(ctx, "favorites", item.UserID, item.MovieSlug, item.MovieName, item.PosterURL)
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID, movieSlug string) error {
	return r.removeSaved(ctx, "favorites", userID, movieSlug)
}

func (r *Repo) ListFavorites(ctx context.Context, userID string, limit, offset int) ([]models.FavoriteItem, int, error) {
	rows, total, err := r.listSaved(ctx, "favorites", userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.FavoriteItem, len(rows))
	for i, row := range rows {
		items[i] = models.FavoriteItem(row)
	}
	return items, total, nil
}

func (r *Repo) IsFavorite(ctx context.Context, userID, movieSlug string) (bool, error) {
	return r.isSaved(ctx, "favorites", userID, movieSlug)
}

func (r *Repo) AddToWatchlist(ctx context.Context, item models.WatchlistItem) error {
	return r.addSaved(ctx, "watchlist", item.UserID, item.MovieSlug, item.MovieName, item.PosterURL)
}

func (r *Repo) RemoveFromWatchlist(ctx context.Context, userID, movieSlug string) error {
	return r.removeSaved(ctx, "watchlist", userID, movieSlug)
}

func (r *Repo) ListWatchlist(ctx context.Context, userID string, limit, offset int) ([]models.WatchlistItem, int, error) {
	rows, total, err := r.listSaved(ctx, "watchlist", userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.WatchlistItem, len(rows))
	for i, row := range rows {
		items[i] = models.WatchlistItem(row)
	}
	return items, total, nil
}

func (r *Repo) IsOnWatchlist(ctx context.Context, userID, movieSlug string) (bool, error) {
	return r.isSaved(ctx, "watchlist", userID, movieSlug)
}

type savedRow struct {
	UserID    string    `json:"user_id"`
	MovieSlug string    `json:"movie_slug"`
	MovieName string    `json:"movie_name,omitempty"`
	PosterURL string    `json:"poster_url,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

func (r *Repo) addSaved(ctx context.Context, table, userID, movieSlug, movieName, posterURL string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO `+table+` (user_id, movie_slug, movie_name, poster_url, added_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, movie_slug) DO UPDATE SET
			movie_name = excluded.movie_name,
			poster_url = excluded.poster_url
	`, userID, movieSlug, movieName, posterURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add to %s: %w", table, err)
	}
	return nil
}

func (r *Repo) removeSaved(ctx context.Context, table, userID, movieSlug string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM `+table+` WHERE user_id = ? AND movie_slug = ?
	`, userID, movieSlug)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove from %s rows: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repo) isSaved(ctx context.Context, table, userID, movieSlug string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM `+table+` WHERE user_id = ? AND movie_slug = ?
	`, userID, movieSlug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return n > 0, nil
}

func (r *Repo) listSaved(ctx context.Context, table, userID string, limit, offset int) ([]savedRow, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM `+table+` WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table, err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, movie_slug, movie_name, poster_url, added_at
		FROM `+table+`
		WHERE user_id = ?
		ORDER BY added_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var items []savedRow
	for rows.Next() {
		var row savedRow
		var name, poster sql.NullString
		if err := rows.Scan(&row.UserID, &row.MovieSlug, &name, &poster, &row.AddedAt); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", table, err)
		}
		row.MovieName = name.String
		row.PosterURL = poster.String
		items = append(items, row)
	}
	return items, total, rows.Err()
}

// Playlists.

func (r *Repo) CreatePlaylist(ctx context.Context, p models.Playlist) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO playlists (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.UserID, p.Name, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	return nil
}

func (r *Repo) GetPlaylist(ctx context.Context, userID, playlistID string) (*models.Playlist, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at
		FROM playlists
		WHERE id = ? AND user_id = ?
	`, playlistID, userID)

	var p models.Playlist
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT playlist_id, movie_slug, movie_name, poster_url, added_at
		FROM playlist_items
		WHERE playlist_id = ?
		ORDER BY added_at ASC
	`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("playlist items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.PlaylistItem
		var name, poster sql.NullString
		if err := rows.Scan(&it.PlaylistID, &it.MovieSlug, &name, &poster, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan playlist item: %w", err)
		}
		it.MovieName = name.String
		it.PosterURL = poster.String
		p.Items = append(p.Items, it)
	}
	return &p, rows.Err()
}

func (r *Repo) ListPlaylists(ctx context.Context, userID string) ([]models.Playlist, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.name, p.created_at, COUNT(pi.movie_slug)
		FROM playlists p
		LEFT JOIN playlist_items pi ON pi.playlist_id = p.id
		WHERE p.user_id = ?
		GROUP BY p.id
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var items []models.Playlist
	for rows.Next() {
		var p models.Playlist
		var count int
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *Repo) DeletePlaylist(ctx context.Context, userID, playlistID string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM playlists WHERE id = ? AND user_id = ?
	`, playlistID, userID)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete playlist rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repo) AddPlaylistItem(ctx context.Context, userID string, item models.PlaylistItem) error {
	// Ownership check rides in the INSERT itself.
	res, err := r.DB.ExecContext(ctx, `
		INSERT OR REPLACE INTO playlist_items (playlist_id, movie_slug, movie_name, poster_url, added_at)
		SELECT p.id, ?, ?, ?, ?
		FROM playlists p
		WHERE p.id = ? AND p.user_id = ?
	`, item.MovieSlug, item.MovieName, item.PosterURL, time.Now().UTC(), item.PlaylistID, userID)
	if err != nil {
		return fmt.Errorf("add playlist item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add playlist item rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repo) RemovePlaylistItem(ctx context.Context, userID, playlistID, movieSlug string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM playlist_items
		WHERE playlist_id = ? AND movie_slug = ?
		  AND playlist_id IN (SELECT id FROM playlists WHERE user_id = ?)
	`, playlistID, movieSlug, userID)
	if err != nil {
		return fmt.Errorf("remove playlist item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove playlist item rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
