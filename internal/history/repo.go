// Package history persists per-user watch history: one row per movie,
// carrying the most recently watched episode and position. It backs both
// the continue-watching rail and resume-on-open.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"phimhub/pkg/models"
)

// MaxEntriesPerUser bounds history per user. Writing entry N+1 evicts the
// least recently updated movie.
const MaxEntriesPerUser = 100

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert records progress for a (user, movie) pair. A report for a
// different episode of the same movie replaces the stored one; history
// tracks where the user is in the movie, not every episode touched.
func (r *Repo) Upsert(ctx context.Context, e models.WatchHistoryEntry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO watch_history (user_id, movie_slug, movie_name, movie_poster, episode_slug, episode_name, progress_seconds, duration_seconds, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, movie_slug) DO UPDATE SET
			movie_name = excluded.movie_name,
			movie_poster = excluded.movie_poster,
			episode_slug = excluded.episode_slug,
			episode_name = excluded.episode_name,
			progress_seconds = excluded.progress_seconds,
			duration_seconds = excluded.duration_seconds,
			updated_at = excluded.updated_at
	`, e.UserID, e.MovieSlug, e.MovieName, e.MoviePoster, e.EpisodeSlug, e.EpisodeName, e.ProgressSeconds, e.DurationSeconds, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}

	// Evict beyond the newest MaxEntriesPerUser movies.
	_, err = r.DB.ExecContext(ctx, `
		DELETE FROM watch_history
		WHERE user_id = ?
		  AND movie_slug NOT IN (
			SELECT movie_slug FROM watch_history
			WHERE user_id = ?
			ORDER BY updated_at DESC
			LIMIT ?
		  )
	`, e.UserID, e.UserID, MaxEntriesPerUser)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID, movieSlug string) (*models.WatchHistoryEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, movie_slug, movie_name, movie_poster, episode_slug, episode_name, progress_seconds, duration_seconds, updated_at
		FROM watch_history
		WHERE user_id = ? AND movie_slug = ?
	`, userID, movieSlug)

	var e models.WatchHistoryEntry
	if err := row.Scan(&e.UserID, &e.MovieSlug, &e.MovieName, &e.MoviePoster, &e.EpisodeSlug, &e.EpisodeName, &e.ProgressSeconds, &e.DurationSeconds, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &e, nil
}

// List returns the user's history newest-first.
func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.WatchHistoryEntry, int, error) {
	if limit <= 0 || limit > MaxEntriesPerUser {
		limit = MaxEntriesPerUser
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM watch_history WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, movie_slug, movie_name, movie_poster, episode_slug, episode_name, progress_seconds, duration_seconds, updated_at
		FROM watch_history
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	items := make([]models.WatchHistoryEntry, 0, limit)
	for rows.Next() {
		var e models.WatchHistoryEntry
		if err := rows.Scan(&e.UserID, &e.MovieSlug, &e.MovieName, &e.MoviePoster, &e.EpisodeSlug, &e.EpisodeName, &e.ProgressSeconds, &e.DurationSeconds, &e.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate history: %w", err)
	}
	return items, total, nil
}

// ContinueWatching is the unfinished slice of history: entries with some
// progress that have not effectively reached the end.
func (r *Repo) ContinueWatching(ctx context.Context, userID string, limit int) ([]models.WatchHistoryEntry, error) {
	if limit <= 0 || limit > MaxEntriesPerUser {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, movie_slug, movie_name, movie_poster, episode_slug, episode_name, progress_seconds, duration_seconds, updated_at
		FROM watch_history
		WHERE user_id = ?
		  AND progress_seconds > 0
		  AND (duration_seconds = 0 OR progress_seconds * 100 < duration_seconds * 95)
		ORDER BY updated_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("continue watching: %w", err)
	}
	defer rows.Close()

	items := make([]models.WatchHistoryEntry, 0, limit)
	for rows.Next() {
		var e models.WatchHistoryEntry
		if err := rows.Scan(&e.UserID, &e.MovieSlug, &e.MovieName, &e.MoviePoster, &e.EpisodeSlug, &e.EpisodeName, &e.ProgressSeconds, &e.DurationSeconds, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan continue watching: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, userID, movieSlug string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM watch_history WHERE user_id = ? AND movie_slug = ?
	`, userID, movieSlug)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM watch_history WHERE user_id = ?
	`, userID)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Report and Resume make the repo usable as an in-process progress store
// for playback sessions running in the same binary as the server.

func (r *Repo) Report(ctx context.Context, entry models.WatchHistoryEntry) error {
	return r.Upsert(ctx, entry)
}

func (r *Repo) Resume(ctx context.Context, userID, movieSlug, episodeSlug string) (*models.WatchHistoryEntry, error) {
	e, err := r.Get(ctx, userID, movieSlug)
	if err != nil || e == nil {
		return nil, err
	}
	// Resume applies only when the user reopens the episode they left.
	if episodeSlug != "" && e.EpisodeSlug != episodeSlug {
		return nil, nil
	}
	return e, nil
}
