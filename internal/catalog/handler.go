package catalog

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"phimhub/pkg/models"
)

// Notifier is told when a series gained an episode since we last saw it.
type Notifier interface {
	BroadcastNewEpisode(movieSlug, movieName, episodeCurrent string)
}

type Handler struct {
	Agg      *Aggregator
	Repo     *Repo
	Notifier Notifier
}

func NewHandler(agg *Aggregator, repo *Repo) *Handler {
	return &Handler{Agg: agg, Repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	movies := r.Group("/movies")
	movies.GET("", h.list)
	movies.GET("/:slug", h.detail)

	r.GET("/search", h.search)
	r.GET("/the-loai/:slug", h.byCategory)
	r.GET("/quoc-gia/:slug", h.byCountry)
}

func (h *Handler) list(c *gin.Context) {
	listType := c.DefaultQuery("type", "phim-le")
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 24)

	items := h.Agg.List(c.Request.Context(), listType, page, limit)
	if len(items) == 0 && h.Repo != nil {
		// all providers down; serve the cache instead of an empty page
		cached, err := h.Repo.List(c.Request.Context(), ListQuery{Type: typeForList(listType), Limit: limit, Offset: (page - 1) * limit})
		if err == nil {
			items = cached
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"page":  page,
		"limit": limit,
		"items": items,
	})
}

func (h *Handler) detail(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug required"})
		return
	}

	detail, err := h.Agg.Detail(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "detail failed"})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.refreshCache(c, detail)
	c.JSON(http.StatusOK, detail)
}

// refreshCache folds a fresh detail fetch back into the catalog cache and
// announces episode advances seen along the way.
func (h *Handler) refreshCache(c *gin.Context, detail *models.MovieDetail) {
	if h.Repo == nil {
		return
	}

	ctx := c.Request.Context()
	cached, err := h.Repo.GetBySlug(ctx, detail.Movie.Slug)
	if err == nil && cached != nil &&
		detail.Movie.EpisodeCurrent != "" &&
		cached.EpisodeCurrent != "" &&
		cached.EpisodeCurrent != detail.Movie.EpisodeCurrent &&
		h.Notifier != nil {
		h.Notifier.BroadcastNewEpisode(detail.Movie.Slug, detail.Movie.Name, detail.Movie.EpisodeCurrent)
	}

	if err := h.Repo.Upsert(ctx, []models.Movie{detail.Movie}); err != nil {
		log.Printf("[catalog] cache refresh %s: %v", detail.Movie.Slug, err)
	}
}

func (h *Handler) search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword required"})
		return
	}
	limit := parseInt(c.Query("limit"), 20)

	items := h.Agg.Search(c.Request.Context(), keyword, limit)
	c.JSON(http.StatusOK, gin.H{"keyword": keyword, "items": items})
}

func (h *Handler) byCategory(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 24)

	items := h.Agg.ByCategory(c.Request.Context(), slug, page, limit)
	c.JSON(http.StatusOK, gin.H{"page": page, "limit": limit, "items": items})
}

func (h *Handler) byCountry(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), 24)

	items := h.Agg.ByCountry(c.Request.Context(), slug, page, limit)
	c.JSON(http.StatusOK, gin.H{"page": page, "limit": limit, "items": items})
}

func typeForList(listType string) string {
	switch listType {
	case "phim-le":
		return "single"
	case "phim-bo":
		return "series"
	case "hoat-hinh":
		return "hoathinh"
	case "tv-shows":
		return "tvshows"
	default:
		return ""
	}
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
