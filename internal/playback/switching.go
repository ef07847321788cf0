package playback

import (
	"phimhub/internal/selection"
	"phimhub/pkg/models"
)

// SwitchServer moves playback to another server group, keeping the
// current episode when the target server carries one with the same slug
// and falling back to the target's first episode otherwise. Playback
// restarts from the beginning of the resolved episode. A no-op while
// locked or when the index already matches.
func (s *Session) SwitchServer(serverIndex int) error {
	s.mu.Lock()
	if s.locked || s.closed || len(s.servers) == 0 {
		s.mu.Unlock()
		return nil
	}
	next := selection.Resolve(s.servers, serverIndex, s.episodeSlugLocked())
	if next.Episode == nil || next.ServerIndex == s.sel.ServerIndex {
		s.mu.Unlock()
		return nil
	}
	s.sel = next
	if s.reporter != nil {
		s.reporter.SetEpisode(next.Episode.Slug, next.Episode.Name)
	}
	events := s.events
	err := s.loadLocked(0)

	if events.OnServerChange != nil {
		events.OnServerChange(next.ServerIndex)
	}
	return err
}

// SwitchEpisode moves playback to another episode within the active
// server. A no-op while locked or for an unknown slug.
func (s *Session) SwitchEpisode(episodeSlug string) error {
	s.mu.Lock()
	if s.locked || s.closed || len(s.servers) == 0 {
		s.mu.Unlock()
		return nil
	}
	next := selection.Resolve(s.servers, s.sel.ServerIndex, episodeSlug)
	if next.Episode == nil || next.Episode.Slug == s.episodeSlugLocked() {
		s.mu.Unlock()
		return nil
	}
	s.sel = next
	if s.reporter != nil {
		s.reporter.SetEpisode(next.Episode.Slug, next.Episode.Name)
	}
	events := s.events
	err := s.loadLocked(0)

	if events.OnEpisodeChange != nil {
		events.OnEpisodeChange(next.Episode.Slug)
	}
	return err
}

// NextEpisode advances to the episode after the current one on the active
// server, if there is one.
func (s *Session) NextEpisode() error {
	s.mu.Lock()
	if s.sel.Next == nil {
		s.mu.Unlock()
		return nil
	}
	slug := s.sel.Next.Slug
	s.mu.Unlock()
	return s.SwitchEpisode(slug)
}

// PrevEpisode steps back to the episode before the current one.
func (s *Session) PrevEpisode() error {
	s.mu.Lock()
	if s.sel.Prev == nil {
		s.mu.Unlock()
		return nil
	}
	slug := s.sel.Prev.Slug
	s.mu.Unlock()
	return s.SwitchEpisode(slug)
}

func (s *Session) episodeSlugLocked() string {
	if s.sel.Episode == nil {
		return ""
	}
	return s.sel.Episode.Slug
}

// State reports the current transport state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError is the message of the most recent stream failure, empty when
// the session is healthy.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// CurrentURL is the stream URL most recently handed to the surface.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

// Native reports whether the active source plays on the native pipeline
// rather than through an embed view.
func (s *Session) Native() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.native
}

// PositionMillis is the committed playback position.
func (s *Session) PositionMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionMillis
}

// DurationMillis is the stream duration, zero until the pipeline reports
// one.
func (s *Session) DurationMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationMillis
}

// ScrubberMillis is the position the scrubber thumb should render: the
// drag position while a drag is in flight, the playback position
// otherwise.
func (s *Session) ScrubberMillis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging != 0 {
		return s.dragMillis
	}
	return s.positionMillis
}

// Rate is the active playback rate.
func (s *Session) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// CurrentResizeMode reports how the video scales into the viewport.
func (s *Session) CurrentResizeMode() ResizeMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resizeMode
}

// Locked reports whether the input lock is engaged.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// ControlsVisible reports whether the control overlay is showing.
func (s *Session) ControlsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlsVisible
}

// PictureInPicture reports the active picture-in-picture mode.
func (s *Session) PictureInPicture() PiPMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pip
}

// Selection is a snapshot of the active server and episode.
func (s *Session) Selection() selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Servers returns the server groups the session was started with.
func (s *Session) Servers() []models.ServerGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servers
}
