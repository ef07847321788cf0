package history

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"phimhub/internal/auth"
	"phimhub/internal/devicesync"
	"phimhub/pkg/models"
)

type Handler struct {
	Repo *Repo
	Hub  *devicesync.Hub
}

func NewHandler(repo *Repo, hub *devicesync.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.list)
	rg.POST("/history", h.report)
	rg.GET("/history/:slug", h.get)
	rg.DELETE("/history/:slug", h.remove)
	rg.DELETE("/history", h.clear)
	rg.GET("/continue-watching", h.continueWatching)
}

type reportReq struct {
	MovieSlug       string `json:"movie_slug"`
	MovieName       string `json:"movie_name"`
	MoviePoster     string `json:"movie_poster"`
	EpisodeSlug     string `json:"episode_slug"`
	EpisodeName     string `json:"episode_name"`
	ProgressSeconds int64  `json:"progress_seconds"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func (h *Handler) report(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req reportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	slug := strings.TrimSpace(req.MovieSlug)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movie_slug required"})
		return
	}
	if req.ProgressSeconds < 0 || req.DurationSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress must be >= 0"})
		return
	}

	entry := models.WatchHistoryEntry{
		UserID:          claims.UserID,
		MovieSlug:       slug,
		MovieName:       strings.TrimSpace(req.MovieName),
		MoviePoster:     strings.TrimSpace(req.MoviePoster),
		EpisodeSlug:     strings.TrimSpace(req.EpisodeSlug),
		EpisodeName:     strings.TrimSpace(req.EpisodeName),
		ProgressSeconds: req.ProgressSeconds,
		DurationSeconds: req.DurationSeconds,
		UpdatedAt:       time.Now().UTC(),
	}

	if err := h.Repo.Upsert(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	if h.Hub != nil {
		ev := devicesync.HistoryEvent{
			Type:            "history.update",
			UserID:          claims.UserID,
			MovieSlug:       entry.MovieSlug,
			MovieName:       entry.MovieName,
			EpisodeSlug:     entry.EpisodeSlug,
			EpisodeName:     entry.EpisodeName,
			ProgressSeconds: entry.ProgressSeconds,
			DurationSeconds: entry.DurationSeconds,
			At:              entry.UpdatedAt,
		}
		go h.Hub.BroadcastUser(claims.UserID, ev)
	}

	c.JSON(http.StatusOK, entry)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), MaxEntriesPerUser)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) get(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entry, err := h.Repo.Get(c.Request.Context(), claims.UserID, c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no history for movie"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) continueWatching(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 20)
	items, err := h.Repo.ContinueWatching(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Repo.Delete(c.Request.Context(), claims.UserID, c.Param("slug")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) clear(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Repo.Clear(c.Request.Context(), claims.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
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
