package playback

import "time"

// ShowControls makes the control overlay visible and re-arms the
// auto-hide timer. The timer never runs while the session is locked or a
// modal is open.
func (s *Session) ShowControls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.controlsVisible = true
	s.armHideLocked()
}

// ToggleControls flips overlay visibility on a plain tap. Showing re-arms
// the auto-hide timer; hiding cancels it.
func (s *Session) ToggleControls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.controlsVisible {
		s.controlsVisible = false
		s.cancelHideLocked()
		return
	}
	s.controlsVisible = true
	s.armHideLocked()
}

func (s *Session) armHideLocked() {
	s.cancelHideLocked()
	if s.locked || s.modalOpen {
		return
	}
	delay := s.cfg.ControlsHideDelay
	if delay <= 0 {
		return
	}
	s.hideTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.locked || s.modalOpen || s.dragging != 0 {
			return
		}
		s.controlsVisible = false
	})
}

func (s *Session) cancelHideLocked() {
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
}

// Lock freezes every input except unlock. The controls overlay collapses
// to the lock badge and the auto-hide timer is suspended.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.locked = true
	s.cancelHideLocked()
}

// Unlock restores input handling and re-arms the auto-hide timer.
func (s *Session) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.locked = false
	s.controlsVisible = true
	s.armHideLocked()
}

// SetModalOpen marks a selection sheet (episode list, server list, speed
// picker) as open. Controls stay pinned while a modal is up.
func (s *Session) SetModalOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.modalOpen = open
	if open {
		s.controlsVisible = true
		s.cancelHideLocked()
		return
	}
	s.armHideLocked()
}

// ToggleResizeMode flips between fit and fill scaling. A no-op while
// locked.
func (s *Session) ToggleResizeMode() ResizeMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.closed {
		return s.resizeMode
	}
	if s.resizeMode == ResizeFit {
		s.resizeMode = ResizeFill
	} else {
		s.resizeMode = ResizeFit
	}
	return s.resizeMode
}

// BeginBrightnessGesture anchors a vertical drag at the current level.
func (s *Session) BeginBrightnessGesture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.closed {
		return
	}
	s.gestureStart = s.brightness
}

// UpdateBrightnessGesture maps cumulative drag distance to a brightness
// level. Dragging up (negative translation) raises the level; the scale
// constant comes from the player config.
func (s *Session) UpdateBrightnessGesture(translationY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked || s.closed {
		return
	}
	k := s.cfg.BrightnessDragK
	if k <= 0 {
		k = 3000
	}
	level := s.gestureStart - translationY/k
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	s.brightness = level
}

// Brightness is the current level in [0, 1].
func (s *Session) Brightness() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

// BrightnessOverlayOpacity is the opacity of the dimming overlay drawn
// over the video: fully transparent at level 1, capped at 0.75 at level 0
// so the picture never goes completely black.
func (s *Session) BrightnessOverlayOpacity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (1 - s.brightness) * 0.75
}

// EnterPictureInPicture requests platform picture-in-picture, falling
// back to the in-app mini player when the surface has no native support.
func (s *Session) EnterPictureInPicture() PiPMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return PiPOff
	}
	if s.surface.SupportsPictureInPicture() {
		s.pip = PiPNative
	} else {
		s.pip = PiPMini
	}
	s.controlsVisible = false
	s.cancelHideLocked()
	return s.pip
}

// ExitPictureInPicture returns to the full player.
func (s *Session) ExitPictureInPicture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pip = PiPOff
	s.controlsVisible = true
	s.armHideLocked()
}
