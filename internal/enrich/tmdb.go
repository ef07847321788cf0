package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const tmdbBase = "https://api.themoviedb.org/3"

// Client looks up rating and backdrop imagery on TMDB by title and year.
// Every lookup is best effort: callers fall back to the primary provider's
// own poster and no rating when it fails.
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: tmdbBase,
		HTTP:    &http.Client{Timeout: 6 * time.Second},
	}
}

// Enabled reports whether lookups can be attempted at all.
func (c *Client) Enabled() bool { return c != nil && c.APIKey != "" }

// Decoration is display-only metadata; never used for matching decisions.
type Decoration struct {
	VoteAverage float64
	BackdropURL string
	PosterURL   string
}

type searchResponse struct {
	Results []struct {
		VoteAverage  float64 `json:"vote_average"`
		BackdropPath string  `json:"backdrop_path"`
		PosterPath   string  `json:"poster_path"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
	} `json:"results"`
}

// Lookup searches TMDB for title in the given year. mediaType is "movie"
// or "tv". A miss returns (nil, nil); only transport failures are errors,
// and callers treat those as misses too.
func (c *Client) Lookup(ctx context.Context, title string, year int, mediaType string) (*Decoration, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if mediaType != "movie" && mediaType != "tv" {
		mediaType = "movie"
	}

	q := url.Values{}
	q.Set("api_key", c.APIKey)
	q.Set("query", title)
	q.Set("language", "vi-VN")
	if year > 0 {
		if mediaType == "movie" {
			q.Set("year", fmt.Sprintf("%d", year))
		} else {
			q.Set("first_air_date_year", fmt.Sprintf("%d", year))
		}
	}

	u := fmt.Sprintf("%s/search/%s?%s", c.BaseURL, mediaType, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("tmdb: build request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb: status %d", resp.StatusCode)
	}

	var raw searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("tmdb: decode: %w", err)
	}
	if len(raw.Results) == 0 {
		return nil, nil
	}

	hit := raw.Results[0]
	d := &Decoration{VoteAverage: hit.VoteAverage}
	if hit.BackdropPath != "" {
		d.BackdropURL = "https://image.tmdb.org/t/p/original" + hit.BackdropPath
	}
	if hit.PosterPath != "" {
		d.PosterURL = "https://image.tmdb.org/t/p/w500" + hit.PosterPath
	}
	return d, nil
}
