// Package selection derives the active server, active episode and
// neighbouring episodes from an aggregated movie document. Everything here
// is a pure function over the inputs: empty or out-of-range input yields a
// well-defined empty state, never an error.
package selection

import (
	"phimhub/pkg/models"
)

// State is the resolved playback position within the server groups.
type State struct {
	Server      models.ServerGroup
	ServerIndex int
	Episode     *models.Episode
	Next        *models.Episode
	Prev        *models.Episode
}

// Resolve picks the active server by clamped index and the active episode
// by slug, falling back to the first episode when the requested slug is
// absent or empty. Episode slugs are only unique per group, so the lookup
// is always scoped to the active group.
func Resolve(groups []models.ServerGroup, serverIndex int, requestedSlug string) State {
	if len(groups) == 0 {
		return State{ServerIndex: 0}
	}

	idx := clamp(serverIndex, 0, len(groups)-1)
	st := State{Server: groups[idx], ServerIndex: idx}

	eps := st.Server.Episodes
	if len(eps) == 0 {
		return st
	}

	at := 0
	if requestedSlug != "" {
		for i := range eps {
			if eps[i].Slug == requestedSlug {
				at = i
				break
			}
		}
	}
	st.Episode = &eps[at]
	if at+1 < len(eps) {
		st.Next = &eps[at+1]
	}
	if at-1 >= 0 {
		st.Prev = &eps[at-1]
	}
	return st
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
