package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phimhub/pkg/models"
)

func TestHTTPStoreReport(t *testing.T) {
	var got models.WatchHistoryEntry
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/users/history", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "tok-123")
	err := store.Report(context.Background(), models.WatchHistoryEntry{
		MovieSlug:       "mai",
		EpisodeSlug:     "tap-01",
		ProgressSeconds: 120,
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", auth)
	assert.Equal(t, "mai", got.MovieSlug)
	assert.Equal(t, int64(120), got.ProgressSeconds)
}

func TestHTTPStoreReportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "tok-123")
	err := store.Report(context.Background(), models.WatchHistoryEntry{MovieSlug: "mai"})
	assert.Error(t, err)
}

func TestHTTPStoreResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/history/mai", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.WatchHistoryEntry{
			MovieSlug:       "mai",
			EpisodeSlug:     "tap-01",
			ProgressSeconds: 300,
		})
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "tok-123")
	entry, err := store.Resume(context.Background(), "u1", "mai", "tap-01")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(300), entry.ProgressSeconds)
}

func TestHTTPStoreResumeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL, "tok-123")
	entry, err := store.Resume(context.Background(), "u1", "mai", "tap-01")

	assert.NoError(t, err)
	assert.Nil(t, entry)
}
