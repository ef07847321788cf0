package progress

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phimhub/pkg/models"
)

// fakeStore records reports and serves a canned resume entry.
type fakeStore struct {
	reports     []models.WatchHistoryEntry
	resumeEntry *models.WatchHistoryEntry
	resumeErr   error
	reportErr   error
}

func (f *fakeStore) Report(ctx context.Context, entry models.WatchHistoryEntry) error {
	if f.reportErr != nil {
		return f.reportErr
	}
	f.reports = append(f.reports, entry)
	return nil
}

func (f *fakeStore) Resume(ctx context.Context, userID, movieSlug, episodeSlug string) (*models.WatchHistoryEntry, error) {
	return f.resumeEntry, f.resumeErr
}

// newTestReporter wires the reporter to submit synchronously so the tests
// can observe reports without sleeping.
func newTestReporter(store *fakeStore, userID string, thresholdMillis int64) *Reporter {
	r := NewReporter(store, SessionContext{UserID: userID}, "mai", "Mai", "poster.jpg", thresholdMillis)
	r.submit = func(entry models.WatchHistoryEntry) {
		_ = store.Report(context.Background(), entry)
	}
	return r
}

func TestTickThrottlesByPlaybackDelta(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "u1", 5000)
	r.SetEpisode("tap-01", "Tập 01")

	// pipeline ticks every 500ms of playback across 30 seconds
	for pos := int64(0); pos <= 30000; pos += 500 {
		r.Tick(pos, 60000)
	}

	// a report fires only after more than 5s of playback since the last
	// one, so 30s of ticks produce at most 6 reports
	require.NotEmpty(t, store.reports)
	assert.LessOrEqual(t, len(store.reports), 6)

	// reported positions are second-truncated
	last := int64(0)
	for i, e := range store.reports {
		if i > 0 {
			assert.GreaterOrEqual(t, e.ProgressSeconds*1000, last+5000)
		}
		last = e.ProgressSeconds * 1000
	}
}

func TestTickCarriesEpisodeAttribution(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "u1", 5000)
	r.SetEpisode("tap-02", "Tập 02")

	r.Tick(6000, 60000)

	require.Len(t, store.reports, 1)
	e := store.reports[0]
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "mai", e.MovieSlug)
	assert.Equal(t, "tap-02", e.EpisodeSlug)
	assert.Equal(t, int64(6), e.ProgressSeconds)
	assert.Equal(t, int64(60), e.DurationSeconds)
}

func TestSetEpisodeRearmsThrottle(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "u1", 5000)
	r.SetEpisode("tap-01", "Tập 01")

	r.Tick(20000, 60000)
	require.Len(t, store.reports, 1)

	// a fresh episode starts near zero; without re-arming, the gate would
	// sit at 20000 and swallow the first minutes of the next episode
	r.SetEpisode("tap-02", "Tập 02")
	r.Tick(6000, 60000)

	require.Len(t, store.reports, 2)
	assert.Equal(t, "tap-02", store.reports[1].EpisodeSlug)
}

func TestAnonymousSessionReportsNothing(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "", 5000)
	r.SetEpisode("tap-01", "Tập 01")

	r.Tick(10000, 60000)
	r.Flush(10000, 60000)

	assert.Empty(t, store.reports)
	assert.Equal(t, int64(0), r.ResolveResume(context.Background()))
}

func TestFlushBypassesThrottle(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "u1", 5000)
	r.SetEpisode("tap-01", "Tập 01")

	r.Tick(6000, 60000)
	require.Len(t, store.reports, 1)

	// 2s past the last report, under the threshold; Flush ships anyway
	r.Flush(8000, 60000)

	require.Len(t, store.reports, 2)
	assert.Equal(t, int64(8), store.reports[1].ProgressSeconds)
}

func TestFlushSkipsZeroPosition(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "u1", 5000)

	r.Flush(0, 60000)

	assert.Empty(t, store.reports)
}

func TestResolveResumeConvertsSecondsToMillis(t *testing.T) {
	store := &fakeStore{resumeEntry: &models.WatchHistoryEntry{
		MovieSlug:       "mai",
		EpisodeSlug:     "tap-01",
		ProgressSeconds: 120,
		DurationSeconds: 6300,
	}}
	r := newTestReporter(store, "u1", 5000)
	r.SetEpisode("tap-01", "Tập 01")

	assert.Equal(t, int64(120000), r.ResolveResume(context.Background()))
}

func TestResolveResumeOtherEpisodeStartsAtZero(t *testing.T) {
	// Remote stores return the movie's entry whatever episode it belongs
	// to; the reporter must not carry tap-01's position into tap-02.
	store := &fakeStore{resumeEntry: &models.WatchHistoryEntry{
		MovieSlug:       "mai",
		EpisodeSlug:     "tap-01",
		ProgressSeconds: 120,
		DurationSeconds: 6300,
	}}
	r := newTestReporter(store, "u1", 5000)
	r.SetEpisode("tap-02", "Tập 02")

	assert.Equal(t, int64(0), r.ResolveResume(context.Background()))
}

func TestResolveResumeNoEntry(t *testing.T) {
	store := &fakeStore{}
	r := newTestReporter(store, "u1", 5000)

	assert.Equal(t, int64(0), r.ResolveResume(context.Background()))
}

func TestResolveResumeStoreErrorDegradesToZero(t *testing.T) {
	store := &fakeStore{resumeErr: fmt.Errorf("backend down")}
	r := newTestReporter(store, "u1", 5000)

	assert.Equal(t, int64(0), r.ResolveResume(context.Background()))
}
