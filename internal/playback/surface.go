// Package playback holds the player session state machine. It owns every
// decision the player UI acts on: which stream URL plays, transport state,
// seek and gesture handling, controls visibility, server and episode
// switching, and progress reporting. The platform side is reduced to a
// Surface that renders media and feeds status ticks back.
package playback

// Status is one tick from the media pipeline. The surface delivers these
// asynchronously through the sink it was handed at Load time.
type Status struct {
	IsLoaded       bool
	PositionMillis int64
	DurationMillis int64
	IsPlaying      bool
	DidJustFinish  bool
}

// StatusSink receives pipeline ticks for one loaded source. Sinks are
// load-scoped: ticks sent to a sink from a source that has since been
// replaced are discarded by the session.
type StatusSink func(Status)

// Surface is the platform rendering backend: a native video view, an
// embedded web view, or a fake in tests. Load replaces the current source
// and must deliver all subsequent ticks to the given sink.
type Surface interface {
	Load(url string, sink StatusSink) error
	Play() error
	Pause() error
	SeekTo(positionMillis int64) error
	SetRate(rate float64) error
	Release() error
	SupportsPictureInPicture() bool
}

// ProgressReporter is the slice of the progress client the session drives.
type ProgressReporter interface {
	SetEpisode(slug, name string)
	Tick(positionMillis, durationMillis int64)
	Flush(positionMillis, durationMillis int64)
}
