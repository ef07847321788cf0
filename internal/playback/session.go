package playback

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"phimhub/internal/selection"
	"phimhub/pkg/models"
	"phimhub/pkg/utils"
)

// State is the transport state of a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ResizeMode is how the video scales into the viewport.
type ResizeMode int

const (
	ResizeFit ResizeMode = iota
	ResizeFill
)

// PiPMode reports whether picture-in-picture is active and in which form.
type PiPMode int

const (
	PiPOff PiPMode = iota
	// PiPNative is the platform picture-in-picture window.
	PiPNative
	// PiPMini is the in-app mini player used when the surface has no
	// native picture-in-picture support.
	PiPMini
)

// Rates a session cycles through, in order.
var Rates = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// Events are optional hooks the embedding layer can observe. They are
// invoked outside the session lock; calling back into the session from
// them is safe.
type Events struct {
	OnEnded         func()
	OnEpisodeChange func(episodeSlug string)
	OnServerChange  func(serverIndex int)
	OnError         func(message string)
}

// Session is the playback state machine for one movie. All methods are
// safe for concurrent use; status ticks and UI inputs may race freely.
type Session struct {
	mu sync.Mutex

	surface  Surface
	cfg      utils.PlayerConfig
	reporter ProgressReporter
	events   Events

	movie   *models.Movie
	servers []models.ServerGroup
	sel     selection.State

	state      State
	lastError  string
	sourceURL  string
	currentURL string
	native     bool

	positionMillis int64
	durationMillis int64
	rate           float64
	resizeMode     ResizeMode

	// load lifecycle: gen stamps each Load so ticks from a replaced
	// source are discarded, and the initial seek runs at most once per
	// load no matter how the pipeline reorders its first ticks.
	loadGen           int
	initialSeekMillis int64
	initialSeekDone   bool
	retries           int

	// scrubber drag: while dragging, pipeline position ticks must not
	// move the thumb under the user's finger.
	dragging   int32
	dragMillis int64

	locked bool
	pip    PiPMode

	controlsVisible bool
	modalOpen       bool
	hideTimer       *time.Timer

	brightness   float64
	gestureStart float64

	closed bool
}

// NewSession builds an idle session. Call Start to load a stream.
func NewSession(surface Surface, cfg utils.PlayerConfig, reporter ProgressReporter, events Events) *Session {
	return &Session{
		surface:         surface,
		cfg:             cfg,
		reporter:        reporter,
		events:          events,
		state:           StateIdle,
		rate:            1.0,
		resizeMode:      ResizeFit,
		brightness:      1.0,
		controlsVisible: true,
	}
}

// Start binds the session to a movie's server groups and loads the
// requested episode, seeking to resumeMillis once the stream is ready.
// An episodeSlug with no match falls back to the server's first episode.
func (s *Session) Start(movie *models.Movie, servers []models.ServerGroup, serverIndex int, episodeSlug string, resumeMillis int64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	s.movie = movie
	s.servers = servers
	s.sel = selection.Resolve(servers, serverIndex, episodeSlug)
	if s.sel.Episode == nil {
		s.state = StateError
		s.lastError = "no playable episode"
		s.mu.Unlock()
		return fmt.Errorf("no playable episode")
	}
	if s.reporter != nil {
		s.reporter.SetEpisode(s.sel.Episode.Slug, s.sel.Episode.Name)
	}
	return s.loadLocked(resumeMillis)
}

// loadLocked resolves the stream URL for the active episode and hands it
// to the surface. Caller holds the lock; loadLocked releases it.
func (s *Session) loadLocked(resumeMillis int64) error {
	url, native := s.sel.Episode.StreamURL()
	if url == "" {
		s.state = StateError
		s.lastError = "episode has no stream source"
		events := s.events
		s.mu.Unlock()
		if events.OnError != nil {
			events.OnError("episode has no stream source")
		}
		return fmt.Errorf("episode %q has no stream source", s.sel.Episode.Slug)
	}
	s.retries = 0
	s.sourceURL = url
	return s.loadURLLocked(url, native, resumeMillis)
}

// loadURLLocked starts a new load generation for the given URL. Caller
// holds the lock; loadURLLocked releases it.
func (s *Session) loadURLLocked(url string, native bool, resumeMillis int64) error {
	s.loadGen++
	gen := s.loadGen
	s.currentURL = url
	s.native = native
	s.state = StateLoading
	s.lastError = ""
	s.positionMillis = resumeMillis
	s.durationMillis = 0
	s.initialSeekMillis = resumeMillis
	s.initialSeekDone = false
	s.controlsVisible = true
	surface := s.surface
	s.mu.Unlock()

	sink := func(st Status) { s.handleStatus(gen, st) }
	if err := surface.Load(url, sink); err != nil {
		s.mu.Lock()
		if gen == s.loadGen {
			s.state = StateError
			s.lastError = err.Error()
		}
		events := s.events
		s.mu.Unlock()
		if events.OnError != nil {
			events.OnError(err.Error())
		}
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

// handleStatus absorbs one pipeline tick. Ticks carrying a stale load
// generation belong to a replaced source and are dropped.
func (s *Session) handleStatus(gen int, st Status) {
	s.mu.Lock()
	if s.closed || gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	if !st.IsLoaded {
		s.mu.Unlock()
		return
	}

	if st.DurationMillis > 0 {
		s.durationMillis = st.DurationMillis
	}

	// The one initial seek per load. Races between the first tick and a
	// user seek resolve in the user's favor because a user seek marks the
	// initial one done.
	var pendingSeek int64 = -1
	if !s.initialSeekDone {
		s.initialSeekDone = true
		if s.initialSeekMillis > 0 {
			pendingSeek = s.initialSeekMillis
		}
	}

	dragging := s.dragging != 0
	if !dragging && pendingSeek < 0 {
		s.positionMillis = st.PositionMillis
	}

	switch {
	case st.DidJustFinish:
		s.state = StateEnded
	case s.state == StateLoading:
		if st.IsPlaying {
			s.state = StatePlaying
		} else {
			s.state = StateReady
		}
	case s.state == StateEnded:
		// stay ended until an explicit transition
	case st.IsPlaying:
		s.state = StatePlaying
	case s.state == StatePlaying:
		s.state = StatePaused
	}

	reporter := s.reporter
	pos, dur := s.positionMillis, s.durationMillis
	playing := s.state == StatePlaying
	ended := s.state == StateEnded && st.DidJustFinish
	surface := s.surface
	events := s.events
	s.mu.Unlock()

	if pendingSeek >= 0 {
		if err := surface.SeekTo(pendingSeek); err != nil {
			log.Printf("[playback] initial seek to %dms: %v", pendingSeek, err)
		}
	}
	if playing && !dragging && reporter != nil {
		reporter.Tick(pos, dur)
	}
	if ended {
		if reporter != nil {
			reporter.Flush(dur, dur)
		}
		if events.OnEnded != nil {
			events.OnEnded()
		}
	}
}

// Play resumes playback. A no-op while locked or before a source is ready.
func (s *Session) Play() {
	s.mu.Lock()
	if s.locked || s.closed || (s.state != StateReady && s.state != StatePaused && s.state != StateEnded) {
		s.mu.Unlock()
		return
	}
	restart := s.state == StateEnded
	if restart {
		s.positionMillis = 0
		s.initialSeekDone = true
	}
	s.state = StatePlaying
	surface := s.surface
	s.mu.Unlock()

	if restart {
		// The pipeline is still parked at the end; without this the next
		// tick snaps the position back to the duration.
		if err := surface.SeekTo(0); err != nil {
			log.Printf("[playback] restart seek: %v", err)
		}
	}
	if err := surface.Play(); err != nil {
		log.Printf("[playback] play: %v", err)
	}
	s.ShowControls()
}

// Pause halts playback. A no-op while locked.
func (s *Session) Pause() {
	s.mu.Lock()
	if s.locked || s.closed || s.state != StatePlaying {
		s.mu.Unlock()
		return
	}
	s.state = StatePaused
	surface := s.surface
	s.mu.Unlock()

	if err := surface.Pause(); err != nil {
		log.Printf("[playback] pause: %v", err)
	}
	s.ShowControls()
}

// TogglePlay flips between playing and paused. A no-op while locked.
func (s *Session) TogglePlay() {
	s.mu.Lock()
	playing := s.state == StatePlaying
	s.mu.Unlock()
	if playing {
		s.Pause()
	} else {
		s.Play()
	}
}

// BeginSeek starts a scrubber drag. Until EndSeek, position ticks from
// the pipeline no longer move the scrubber.
func (s *Session) BeginSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.closed {
		return
	}
	s.dragging = 1
	s.dragMillis = s.positionMillis
	s.cancelHideLocked()
	s.controlsVisible = true
}

// UpdateSeek moves the scrubber thumb during a drag without seeking.
func (s *Session) UpdateSeek(positionMillis int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging == 0 {
		return
	}
	s.dragMillis = clampMillis(positionMillis, s.durationMillis)
}

// EndSeek commits the drag: one seek to the released position.
func (s *Session) EndSeek(positionMillis int64) {
	s.mu.Lock()
	if s.dragging == 0 {
		s.mu.Unlock()
		return
	}
	s.dragging = 0
	target := clampMillis(positionMillis, s.durationMillis)
	s.positionMillis = target
	s.initialSeekDone = true
	surface := s.surface
	s.mu.Unlock()

	if err := surface.SeekTo(target); err != nil {
		log.Printf("[playback] seek to %dms: %v", target, err)
	}
	s.ShowControls()
}

// Skip jumps by deltaMillis relative to the current position, clamped to
// the stream bounds. A no-op while locked.
func (s *Session) Skip(deltaMillis int64) {
	s.mu.Lock()
	if s.locked || s.closed || s.dragging != 0 {
		s.mu.Unlock()
		return
	}
	target := clampMillis(s.positionMillis+deltaMillis, s.durationMillis)
	s.positionMillis = target
	s.initialSeekDone = true
	surface := s.surface
	s.mu.Unlock()

	if err := surface.SeekTo(target); err != nil {
		log.Printf("[playback] skip to %dms: %v", target, err)
	}
	s.ShowControls()
}

// CycleRate advances to the next playback rate, wrapping after the
// fastest. A no-op while locked.
func (s *Session) CycleRate() float64 {
	s.mu.Lock()
	if s.locked || s.closed {
		rate := s.rate
		s.mu.Unlock()
		return rate
	}
	next := Rates[0]
	for i, r := range Rates {
		if r == s.rate {
			next = Rates[(i+1)%len(Rates)]
			break
		}
	}
	s.rate = next
	surface := s.surface
	s.mu.Unlock()

	if err := surface.SetRate(next); err != nil {
		log.Printf("[playback] set rate %.2f: %v", next, err)
	}
	s.ShowControls()
	return next
}

// HandleError records a stream failure reported by the surface. The
// session stays alive so the user can retry or switch servers.
func (s *Session) HandleError(message string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.lastError = message
	s.controlsVisible = true
	s.cancelHideLocked()
	events := s.events
	s.mu.Unlock()

	if events.OnError != nil {
		events.OnError(message)
	}
}

// Retry reloads the failed source with a cache-busting query parameter,
// keeping the position reached before the failure.
func (s *Session) Retry() error {
	s.mu.Lock()
	if s.closed || s.state != StateError || s.sourceURL == "" {
		s.mu.Unlock()
		return nil
	}
	s.retries++
	sep := "?"
	if strings.Contains(s.sourceURL, "?") {
		sep = "&"
	}
	url := fmt.Sprintf("%s%sretry=%d", s.sourceURL, sep, s.retries)
	return s.loadURLLocked(url, s.native, s.positionMillis)
}

// Close tears the session down: the surface is released, timers stop,
// and the final position is flushed to the progress store synchronously.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.loadGen++ // orphan in-flight ticks
	s.cancelHideLocked()
	surface := s.surface
	reporter := s.reporter
	pos, dur := s.positionMillis, s.durationMillis
	s.state = StateIdle
	s.mu.Unlock()

	if err := surface.Release(); err != nil {
		log.Printf("[playback] release surface: %v", err)
	}
	if reporter != nil {
		reporter.Flush(pos, dur)
	}
}

func clampMillis(v, max int64) int64 {
	if v < 0 {
		return 0
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
