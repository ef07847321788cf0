package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKKPhimServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const kkListBody = `{
	"status": "success",
	"data": {
		"items": [
			{
				"_id": "abc123",
				"name": "Mai",
				"slug": "mai",
				"origin_name": "Mai",
				"type": "single",
				"thumb_url": "upload/mai-thumb.jpg",
				"poster_url": "https://phimimg.com/upload/mai-poster.jpg",
				"year": 2024,
				"category": [{"name": "Tâm Lý", "slug": "tam-ly"}]
			},
			{
				"_id": "def456",
				"name": "Đào, Phở và Piano",
				"slug": "dao-pho-va-piano",
				"type": "single",
				"year": 2024
			}
		],
		"params": {
			"pagination": {"currentPage": 1, "totalPages": 12}
		}
	}
}`

const kkDetailBody = `{
	"status": true,
	"msg": "",
	"movie": {
		"_id": "abc123",
		"name": "Mai",
		"slug": "mai",
		"type": "single",
		"year": 2024
	},
	"episodes": [
		{
			"server_name": "Vietsub #1",
			"server_data": [
				{
					"name": "Full",
					"slug": "full",
					"filename": "Mai.2024.1080p",
					"link_embed": "https://player.phimapi.com/player/?url=https://cdn.example.com/mai/master.m3u8",
					"link_m3u8": "https://cdn.example.com/mai/master.m3u8"
				},
				{"name": "", "slug": "", "link_m3u8": ""}
			]
		}
	]
}`

func TestKKPhimList(t *testing.T) {
	srv := newKKPhimServer(t, map[string]string{
		"/v1/api/danh-sach/phim-le": kkListBody,
	})
	p := NewKKPhim(srv.URL)

	res, err := p.List(context.Background(), ListPhimLe, 1, 24)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 12, res.TotalPages)

	m := res.Items[0]
	assert.Equal(t, "mai", m.Slug)
	assert.Equal(t, "KKPhim", m.Provider)
	// relative image paths are joined on the CDN base, absolute ones kept
	assert.Equal(t, "https://phimimg.com/upload/mai-thumb.jpg", m.ThumbURL)
	assert.Equal(t, "https://phimimg.com/upload/mai-poster.jpg", m.PosterURL)
	require.Len(t, m.Category, 1)
	assert.Equal(t, "tam-ly", m.Category[0].Slug)

	// single movies with no reported quality default to FHD
	assert.Equal(t, "FHD", res.Items[1].Quality)
	assert.NotNil(t, res.Items[1].Category)
}

func TestKKPhimDetail(t *testing.T) {
	srv := newKKPhimServer(t, map[string]string{
		"/phim/mai": kkDetailBody,
	})
	p := NewKKPhim(srv.URL)

	d, err := p.Detail(context.Background(), "mai")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "mai", d.Movie.Slug)

	require.Len(t, d.Servers, 1)
	g := d.Servers[0]
	assert.Equal(t, "KKPhim", g.Provider)
	assert.Equal(t, "Vietsub #1", g.ServerName)
	// the slugless filler row is dropped
	require.Len(t, g.Episodes, 1)
	assert.Equal(t, "full", g.Episodes[0].Slug)
	assert.Equal(t, "https://cdn.example.com/mai/master.m3u8", g.Episodes[0].LinkM3U8)
}

func TestKKPhimDetailMissingMovie(t *testing.T) {
	srv := newKKPhimServer(t, map[string]string{
		"/phim/unknown": `{"status": false, "msg": "not found", "movie": null}`,
	})
	p := NewKKPhim(srv.URL)

	_, err := p.Detail(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestKKPhimUpstreamError(t *testing.T) {
	srv := newKKPhimServer(t, map[string]string{})
	p := NewKKPhim(srv.URL)

	_, err := p.List(context.Background(), ListPhimBo, 1, 24)
	assert.Error(t, err)
}

func TestKKPhimSearch(t *testing.T) {
	srv := newKKPhimServer(t, map[string]string{
		"/v1/api/tim-kiem": kkListBody,
	})
	p := NewKKPhim(srv.URL)

	items, err := p.Search(context.Background(), "mai", 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
