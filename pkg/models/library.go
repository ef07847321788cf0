package models

import "time"

// FavoriteItem marks a movie a user loves.
type FavoriteItem struct {
	UserID    string    `json:"user_id"`
	MovieSlug string    `json:"movie_slug"`
	MovieName string    `json:"movie_name,omitempty"`
	PosterURL string    `json:"poster_url,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// WatchlistItem marks a movie a user wants to watch later.
type WatchlistItem struct {
	UserID    string    `json:"user_id"`
	MovieSlug string    `json:"movie_slug"`
	MovieName string    `json:"movie_name,omitempty"`
	PosterURL string    `json:"poster_url,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// Playlist is a named, user-owned collection of movies.
type Playlist struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []PlaylistItem `json:"items,omitempty"`
}

// PlaylistItem is one movie inside a playlist.
type PlaylistItem struct {
	PlaylistID string    `json:"playlist_id"`
	MovieSlug  string    `json:"movie_slug"`
	MovieName  string    `json:"movie_name,omitempty"`
	PosterURL  string    `json:"poster_url,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}
