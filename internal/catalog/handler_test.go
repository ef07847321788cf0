package catalog

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phimhub/pkg/models"
)

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) BroadcastNewEpisode(movieSlug, movieName, episodeCurrent string) {
	f.calls = append(f.calls, movieSlug+"|"+episodeCurrent)
}

func seriesDetail(episodeCurrent string) *models.MovieDetail {
	return &models.MovieDetail{
		Movie: models.Movie{
			Slug:           "mot-series",
			Name:           "Một Series",
			Type:           "series",
			Year:           2026,
			EpisodeCurrent: episodeCurrent,
		},
		Servers: []models.ServerGroup{{
			ServerName: "Vietsub #1",
			Episodes:   []models.Episode{{Slug: "tap-01", Name: "Tập 01", LinkM3U8: "https://cdn.example.com/tap-01.m3u8"}},
		}},
	}
}

func newDetailRouter(t *testing.T, stub *stubProvider) (*gin.Engine, *fakeNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(NewAggregator(0, stub), NewRepo(openTestDB(t)))
	notifier := &fakeNotifier{}
	h.Notifier = notifier

	router := gin.New()
	h.RegisterRoutes(router)
	return router, notifier
}

func getDetail(router *gin.Engine, slug string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/movies/"+slug, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestDetailAnnouncesEpisodeAdvance(t *testing.T) {
	stub := &stubProvider{name: "KKPhim", detail: seriesDetail("Tập 12")}
	router, notifier := newDetailRouter(t, stub)

	// first fetch only seeds the cache
	w := getDetail(router, "mot-series")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, notifier.calls)

	// same episode again, nothing to announce
	w = getDetail(router, "mot-series")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, notifier.calls)

	// upstream moved forward
	stub.detail = seriesDetail("Tập 13")
	w = getDetail(router, "mot-series")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mot-series|Tập 13"}, notifier.calls)
}

func TestDetailNotFound(t *testing.T) {
	stub := &stubProvider{name: "KKPhim", err: fmt.Errorf("upstream down")}
	router, _ := newDetailRouter(t, stub)

	w := getDetail(router, "mot-series")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
