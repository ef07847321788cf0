// Package devicesync fans out per-user change events so a user's other
// devices can refresh continue-watching rows and library state without
// polling. Clients connect over WebSocket or a plain TCP line protocol.
package devicesync

import "time"

type HistoryEvent struct {
	Type            string    `json:"type"` // "history.update"
	UserID          string    `json:"user_id"`
	MovieSlug       string    `json:"movie_slug"`
	MovieName       string    `json:"movie_name,omitempty"`
	EpisodeSlug     string    `json:"episode_slug,omitempty"`
	EpisodeName     string    `json:"episode_name,omitempty"`
	ProgressSeconds int64     `json:"progress_seconds"`
	DurationSeconds int64     `json:"duration_seconds,omitempty"`
	At              time.Time `json:"at"`
}

type LibraryEvent struct {
	Type      string    `json:"type"` // "library.update" or "library.delete"
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"` // "favorite", "watchlist" or "playlist"
	MovieSlug string    `json:"movie_slug,omitempty"`
	Playlist  string    `json:"playlist_id,omitempty"`
	At        time.Time `json:"at"`
}
