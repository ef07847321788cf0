package models

import "time"

// WatchHistoryEntry is the remote per-user watch record. There is at most
// one logical entry per (user, movie slug); a new report for the same
// movie replaces the prior one regardless of episode, and the collection
// is capped to the most recent 100 distinct movies.
type WatchHistoryEntry struct {
	UserID          string    `json:"user_id"`
	MovieSlug       string    `json:"movie_slug"`
	MovieName       string    `json:"movie_name,omitempty"`
	MoviePoster     string    `json:"movie_poster,omitempty"`
	EpisodeSlug     string    `json:"episode_slug"`
	EpisodeName     string    `json:"episode_name,omitempty"`
	ProgressSeconds int64     `json:"progress_seconds"`
	DurationSeconds int64     `json:"duration_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Percent reports how far through the episode the entry is, 0-100.
func (e WatchHistoryEntry) Percent() int {
	if e.DurationSeconds <= 0 {
		return 0
	}
	p := int(e.ProgressSeconds * 100 / e.DurationSeconds)
	if p > 100 {
		p = 100
	}
	return p
}
