package models

import "time"

// Review is a user rating of a movie with optional text.
type Review struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	MovieSlug string    `json:"movie_slug"`
	Rating    int       `json:"rating"` // 1..5
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
