// Package progress implements the watch-progress sync protocol: periodic
// best-effort reports of the playback position to the remote history
// store, and resume-position resolution when a session starts.
package progress

import (
	"context"
	"log"
	"sync"
	"time"

	"phimhub/pkg/models"
)

// SessionContext identifies the user a playback session belongs to. It is
// handed to the reporter explicitly at construction; an empty UserID means
// no signed-in user and the reporter silently degrades to doing nothing.
type SessionContext struct {
	UserID string
	Token  string
}

// Store is where progress reports land and resume positions come from.
// The sqlite repo implements it in-process, HTTPStore implements it
// against the REST backend the way the mobile clients do.
type Store interface {
	Report(ctx context.Context, entry models.WatchHistoryEntry) error
	Resume(ctx context.Context, userID, movieSlug, episodeSlug string) (*models.WatchHistoryEntry, error)
}

// Reporter throttles and ships progress reports for one playback session.
//
// The throttle is playback-relative: a report fires only when the
// playback position has advanced more than the threshold since the last
// reported position, regardless of how often the media pipeline ticks.
// Reports are fire-and-forget; a slow or failing store never blocks the
// caller. Flush bypasses the throttle for teardown.
type Reporter struct {
	mu sync.Mutex

	store   Store
	session SessionContext

	movieSlug   string
	movieName   string
	moviePoster string
	episodeSlug string
	episodeName string

	thresholdMillis int64
	lastReported    int64

	submit func(models.WatchHistoryEntry)
}

func NewReporter(store Store, session SessionContext, movieSlug, movieName, moviePoster string, thresholdMillis int64) *Reporter {
	if thresholdMillis <= 0 {
		thresholdMillis = 5000
	}
	r := &Reporter{
		store:           store,
		session:         session,
		movieSlug:       movieSlug,
		movieName:       movieName,
		moviePoster:     moviePoster,
		thresholdMillis: thresholdMillis,
	}
	r.submit = r.submitAsync
	return r
}

// SetEpisode switches the episode the reports are attributed to and
// re-arms the throttle gate.
func (r *Reporter) SetEpisode(slug, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodeSlug = slug
	r.episodeName = name
	r.lastReported = 0
}

// Tick is called on every playing status update. It reports at most once
// per thresholdMillis of playback position.
func (r *Reporter) Tick(positionMillis, durationMillis int64) {
	r.mu.Lock()
	if r.session.UserID == "" || r.store == nil {
		r.mu.Unlock()
		return
	}
	if positionMillis-r.lastReported <= r.thresholdMillis {
		r.mu.Unlock()
		return
	}
	r.lastReported = positionMillis
	entry := r.entryLocked(positionMillis, durationMillis)
	submit := r.submit
	r.mu.Unlock()

	submit(entry)
}

// Flush pushes the final position synchronously, ignoring the throttle.
// Called at session teardown; last-position durability beats throttle
// discipline there.
func (r *Reporter) Flush(positionMillis, durationMillis int64) {
	r.mu.Lock()
	if r.session.UserID == "" || r.store == nil || positionMillis <= 0 {
		r.mu.Unlock()
		return
	}
	r.lastReported = positionMillis
	entry := r.entryLocked(positionMillis, durationMillis)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.store.Report(ctx, entry); err != nil {
		log.Printf("[progress] final flush for %s: %v", entry.MovieSlug, err)
	}
}

// ResolveResume returns the position, in milliseconds, the session should
// start at: the stored progress for this (user, movie, episode) when one
// exists, zero otherwise.
func (r *Reporter) ResolveResume(ctx context.Context) int64 {
	r.mu.Lock()
	session := r.session
	movieSlug := r.movieSlug
	episodeSlug := r.episodeSlug
	r.mu.Unlock()

	if session.UserID == "" || r.store == nil {
		return 0
	}

	entry, err := r.store.Resume(ctx, session.UserID, movieSlug, episodeSlug)
	if err != nil {
		log.Printf("[progress] resume lookup for %s: %v", movieSlug, err)
		return 0
	}
	if entry == nil || entry.ProgressSeconds <= 0 {
		return 0
	}
	// The stored position belongs to one episode. Opening a different one
	// starts at zero; the local repo filters this itself, remote stores
	// return the movie's entry regardless, so the check lives here too.
	if episodeSlug != "" && entry.EpisodeSlug != episodeSlug {
		return 0
	}
	return entry.ProgressSeconds * 1000
}

func (r *Reporter) entryLocked(positionMillis, durationMillis int64) models.WatchHistoryEntry {
	return models.WatchHistoryEntry{
		UserID:          r.session.UserID,
		MovieSlug:       r.movieSlug,
		MovieName:       r.movieName,
		MoviePoster:     r.moviePoster,
		EpisodeSlug:     r.episodeSlug,
		EpisodeName:     r.episodeName,
		ProgressSeconds: positionMillis / 1000,
		DurationSeconds: durationMillis / 1000,
		UpdatedAt:       time.Now().UTC(),
	}
}

// submitAsync ships one report without blocking the caller. Errors are
// logged and dropped; the next tick naturally retries with fresher data.
func (r *Reporter) submitAsync(entry models.WatchHistoryEntry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.Report(ctx, entry); err != nil {
			log.Printf("[progress] report for %s: %v", entry.MovieSlug, err)
		}
	}()
}
