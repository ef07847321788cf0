package library

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

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
	rg.GET("/favorites", h.listFavorites)
	rg.POST("/favorites", h.addFavorite)
	rg.DELETE("/favorites/:slug", h.removeFavorite)

	rg.GET("/watchlist", h.listWatchlist)
	rg.POST("/watchlist", h.addToWatchlist)
	rg.DELETE("/watchlist/:slug", h.removeFromWatchlist)

	rg.GET("/playlists", h.listPlaylists)
	rg.POST("/playlists", h.createPlaylist)
	rg.GET("/playlists/:id", h.getPlaylist)
	rg.DELETE("/playlists/:id", h.deletePlaylist)
	rg.POST("/playlists/:id/items", h.addPlaylistItem)
	rg.DELETE("/playlists/:id/items/:slug", h.removePlaylistItem)
}

type saveReq struct {
	MovieSlug string `json:"movie_slug"`
	MovieName string `json:"movie_name"`
	PosterURL string `json:"poster_url"`
}

func (h *Handler) addFavorite(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	slug := strings.TrimSpace(req.MovieSlug)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movie_slug required"})
		return
	}

	item := models.FavoriteItem{
		UserID:    claims.UserID,
		MovieSlug: slug,
		MovieName: strings.TrimSpace(req.MovieName),
		PosterURL: strings.TrimSpace(req.PosterURL),
		AddedAt:   time.Now().UTC(),
	}
	if err := h.Repo.AddFavorite(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(claims.UserID, "library.update", "favorite", slug, "")
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeFavorite(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	slug := c.Param("slug")
	if err := h.Repo.RemoveFavorite(c.Request.Context(), claims.UserID, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not in favorites"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.broadcast(claims.UserID, "library.delete", "favorite", slug, "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) listFavorites(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.ListFavorites(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

func (h *Handler) addToWatchlist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	slug := strings.TrimSpace(req.MovieSlug)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movie_slug required"})
		return
	}

	item := models.WatchlistItem{
		UserID:    claims.UserID,
		MovieSlug: slug,
		MovieName: strings.TrimSpace(req.MovieName),
		PosterURL: strings.TrimSpace(req.PosterURL),
		AddedAt:   time.Now().UTC(),
	}
	if err := h.Repo.AddToWatchlist(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(claims.UserID, "library.update", "watchlist", slug, "")
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removeFromWatchlist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	slug := c.Param("slug")
	if err := h.Repo.RemoveFromWatchlist(c.Request.Context(), claims.UserID, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not on watchlist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.broadcast(claims.UserID, "library.delete", "watchlist", slug, "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) listWatchlist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.ListWatchlist(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

type createPlaylistReq struct {
	Name string `json:"name"`
}

func (h *Handler) createPlaylist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createPlaylistReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-100 chars"})
		return
	}

	p := models.Playlist{
		ID:        uuid.NewString(),
		UserID:    claims.UserID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Repo.CreatePlaylist(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	h.broadcast(claims.UserID, "library.update", "playlist", "", p.ID)
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) listPlaylists(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	items, err := h.Repo.ListPlaylists(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) getPlaylist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.Repo.GetPlaylist(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deletePlaylist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Param("id")
	if err := h.Repo.DeletePlaylist(c.Request.Context(), claims.UserID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.broadcast(claims.UserID, "library.delete", "playlist", "", id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) addPlaylistItem(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	slug := strings.TrimSpace(req.MovieSlug)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "movie_slug required"})
		return
	}

	item := models.PlaylistItem{
		PlaylistID: c.Param("id"),
		MovieSlug:  slug,
		MovieName:  strings.TrimSpace(req.MovieName),
		PosterURL:  strings.TrimSpace(req.PosterURL),
	}
	if err := h.Repo.AddPlaylistItem(c.Request.Context(), claims.UserID, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "playlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.broadcast(claims.UserID, "library.update", "playlist", slug, item.PlaylistID)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) removePlaylistItem(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id := c.Param("id")
	slug := c.Param("slug")
	if err := h.Repo.RemovePlaylistItem(c.Request.Context(), claims.UserID, id, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.broadcast(claims.UserID, "library.delete", "playlist", slug, id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) broadcast(userID, eventType, kind, movieSlug, playlistID string) {
	if h.Hub == nil {
		return
	}
	ev := devicesync.LibraryEvent{
		Type:      eventType,
		UserID:    userID,
		Kind:      kind,
		MovieSlug: movieSlug,
		Playlist:  playlistID,
		At:        time.Now().UTC(),
	}
	go h.Hub.BroadcastUser(userID, ev)
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
