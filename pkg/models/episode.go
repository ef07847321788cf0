package models

import "strings"

// Episode is one playable entry within a server group.
type Episode struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Filename  string `json:"filename,omitempty"`
	LinkM3U8  string `json:"link_m3u8,omitempty"`
	LinkEmbed string `json:"link_embed,omitempty"`
}

// StreamURL returns the URL the player should load and whether it can be
// played natively. Native playback needs a real HLS link; some providers
// put third-party embeds (youtube trailers) into link_m3u8, those go
// through the embedded web view instead.
func (e Episode) StreamURL() (url string, native bool) {
	if e.LinkM3U8 != "" && !strings.Contains(e.LinkM3U8, "youtube") {
		return e.LinkM3U8, true
	}
	return e.LinkEmbed, false
}

// ServerGroup is one provider server's episode list for a movie.
// After aggregation a movie carries groups from several providers; the
// ServerName is prefixed with a provider tag so identically-named servers
// from different providers stay distinguishable.
type ServerGroup struct {
	Provider   string    `json:"provider"`
	ServerName string    `json:"server_name"`
	Episodes   []Episode `json:"server_data"`
}

// MovieDetail is the unified document the aggregator produces: one base
// movie record plus every server group every provider returned.
type MovieDetail struct {
	Movie   Movie         `json:"movie"`
	Servers []ServerGroup `json:"episodes"`
}
