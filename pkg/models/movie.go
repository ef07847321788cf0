package models

// Movie is the normalized, internal form of a movie entry.
//
// Every upstream provider response is mapped into this structure first;
// the catalog cache and all handlers work from this representation.
// Slug is the stable cross-provider join key. ID is provider-local and
// must not be trusted across providers.
type Movie struct {
	ID             string   `json:"id,omitempty"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	OriginName     string   `json:"origin_name,omitempty"`
	Content        string   `json:"content,omitempty"`
	Type           string   `json:"type,omitempty"`   // "single", "series", "hoathinh", "tvshows"
	Status         string   `json:"status,omitempty"` // "completed", "ongoing"
	ThumbURL       string   `json:"thumb_url,omitempty"`
	PosterURL      string   `json:"poster_url,omitempty"`
	TrailerURL     string   `json:"trailer_url,omitempty"`
	Time           string   `json:"time,omitempty"` // duration text, e.g. "117 phút"
	EpisodeCurrent string   `json:"episode_current,omitempty"`
	EpisodeTotal   string   `json:"episode_total,omitempty"`
	Quality        string   `json:"quality,omitempty"`
	Lang           string   `json:"lang,omitempty"`
	Year           int      `json:"year,omitempty"`
	Actor          []string `json:"actor,omitempty"`
	Director       []string `json:"director,omitempty"`
	Category       []Taxon  `json:"category"`
	Country        []Taxon  `json:"country"`
	VoteAverage    float64  `json:"vote_average,omitempty"` // TMDB decoration, best effort
	BackdropURL    string   `json:"backdrop_url,omitempty"` // TMDB decoration, best effort
	Provider       string   `json:"provider,omitempty"`     // which upstream supplied this record
}

// Taxon is a category or country reference.
type Taxon struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}
