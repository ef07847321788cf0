package provider

import (
	"context"

	"phimhub/pkg/models"
)

// List types shared by all providers, mirroring the upstream path names.
const (
	ListPhimLe   = "phim-le"
	ListPhimBo   = "phim-bo"
	ListHoatHinh = "hoat-hinh"
	ListTVShows  = "tv-shows"
)

// ListResult is one page from a provider list or category endpoint.
type ListResult struct {
	Items      []models.Movie `json:"items"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// Provider is implemented by each upstream content API. Each provider is
// responsible for fetching its own wire format and mapping it into the
// normalized models; nothing outside this package sees a raw payload.
type Provider interface {
	Name() string
	List(ctx context.Context, listType string, page, limit int) (*ListResult, error)
	ByCategory(ctx context.Context, slug string, page, limit int) (*ListResult, error)
	ByCountry(ctx context.Context, slug string, page, limit int) (*ListResult, error)
	Search(ctx context.Context, keyword string, limit int) ([]models.Movie, error)
	Detail(ctx context.Context, slug string) (*models.MovieDetail, error)
}
