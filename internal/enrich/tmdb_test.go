package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupDecoratesFromFirstHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Mai", r.URL.Query().Get("query"))
		assert.Equal(t, "2024", r.URL.Query().Get("year"))
		_, _ = w.Write([]byte(`{"results":[
			{"vote_average":7.1,"backdrop_path":"/abc.jpg","poster_path":"/def.jpg","release_date":"2024-02-10"},
			{"vote_average":2.0}
		]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key")
	c.BaseURL = srv.URL

	d, err := c.Lookup(context.Background(), "Mai", 2024, "movie")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.InDelta(t, 7.1, d.VoteAverage, 1e-9)
	assert.Equal(t, "https://image.tmdb.org/t/p/original/abc.jpg", d.BackdropURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/def.jpg", d.PosterURL)
}

func TestLookupTVUsesFirstAirDateYear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/tv", r.URL.Path)
		assert.Equal(t, "2026", r.URL.Query().Get("first_air_date_year"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key")
	c.BaseURL = srv.URL

	d, err := c.Lookup(context.Background(), "Một Series", 2026, "tv")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLookupDisabledClient(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled())

	d, err := c.Lookup(context.Background(), "Mai", 2024, "movie")
	assert.NoError(t, err)
	assert.Nil(t, d)

	c = NewClient("")
	d, err = c.Lookup(context.Background(), "Mai", 2024, "movie")
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestLookupUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key")
	c.BaseURL = srv.URL

	_, err := c.Lookup(context.Background(), "Mai", 2024, "movie")
	assert.Error(t, err)
}
