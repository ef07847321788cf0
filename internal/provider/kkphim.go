package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"phimhub/pkg/models"
)

// KKPhim fetches from phimapi.com. Most image URLs come back absolute;
// the odd relative path is joined on the phimimg CDN.
type KKPhim struct {
	BaseURL   string
	ImageBase string
	Client    *http.Client
}

func NewKKPhim(baseURL string) *KKPhim {
	return &KKPhim{
		BaseURL:   baseURL,
		ImageBase: "https://phimimg.com",
		Client:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (p *KKPhim) Name() string { return "KKPhim" }

type kkMovie struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	OriginName     string     `json:"origin_name"`
	Content        string     `json:"content"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	ThumbURL       string     `json:"thumb_url"`
	PosterURL      string     `json:"poster_url"`
	TrailerURL     string     `json:"trailer_url"`
	Time           string     `json:"time"`
	EpisodeCurrent string     `json:"episode_current"`
	EpisodeTotal   string     `json:"episode_total"`
	Quality        string     `json:"quality"`
	Lang           string     `json:"lang"`
	Year           int        `json:"year"`
	Actor          []string   `json:"actor"`
	Director       []string   `json:"director"`
	Category       []rawTaxon `json:"category"`
	Country        []rawTaxon `json:"country"`
}

type kkPagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// kkListResponse covers both framings phimapi uses: the legacy endpoints
// put items at the top level, the v1 endpoints nest them under data.
type kkListResponse struct {
	Status     any           `json:"status"`
	Items      []kkMovie     `json:"items"`
	PathImage  string        `json:"pathImage"`
	Pagination *kkPagination `json:"pagination"`
	Data       *struct {
		Items  []kkMovie `json:"items"`
		Params *struct {
			Pagination kkPagination `json:"pagination"`
		} `json:"params"`
	} `json:"data"`
}

func (r *kkListResponse) items() []kkMovie {
	if len(r.Items) > 0 {
		return r.Items
	}
	if r.Data != nil {
		return r.Data.Items
	}
	return nil
}

func (r *kkListResponse) pagination() kkPagination {
	if r.Pagination != nil {
		return *r.Pagination
	}
	if r.Data != nil && r.Data.Params != nil {
		return r.Data.Params.Pagination
	}
	return kkPagination{CurrentPage: 1, TotalPages: 1}
}

type kkEpisodeGroup struct {
	ServerName string `json:"server_name"`
	ServerData []struct {
		Name      string `json:"name"`
		Slug      string `json:"slug"`
		Filename  string `json:"filename"`
		LinkEmbed string `json:"link_embed"`
		LinkM3U8  string `json:"link_m3u8"`
	} `json:"server_data"`
}

type kkDetailResponse struct {
	Status   bool             `json:"status"`
	Msg      string           `json:"msg"`
	Movie    *kkMovie         `json:"movie"`
	Episodes []kkEpisodeGroup `json:"episodes"`
}

func (p *KKPhim) List(ctx context.Context, listType string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/v1/api/danh-sach/%s?page=%d&limit=%d", p.BaseURL, listType, page, limit)
	return p.list(ctx, u)
}

func (p *KKPhim) ByCategory(ctx context.Context, slug string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/v1/api/the-loai/%s?page=%d&limit=%d", p.BaseURL, slug, page, limit)
	return p.list(ctx, u)
}

func (p *KKPhim) ByCountry(ctx context.Context, slug string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/v1/api/quoc-gia/%s?page=%d&limit=%d", p.BaseURL, slug, page, limit)
	return p.list(ctx, u)
}

func (p *KKPhim) Search(ctx context.Context, keyword string, limit int) ([]models.Movie, error) {
	u := fmt.Sprintf("%s/v1/api/tim-kiem?keyword=%s&limit=%d", p.BaseURL, url.QueryEscape(keyword), limit)
	res, err := p.list(ctx, u)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (p *KKPhim) list(ctx context.Context, u string) (*ListResult, error) {
	var raw kkListResponse
	if err := getJSON(ctx, p.Client, u, &raw); err != nil {
		return nil, fmt.Errorf("kkphim: %w", err)
	}

	imageBase := raw.PathImage
	if imageBase == "" {
		imageBase = p.ImageBase
	}

	items := raw.items()
	out := make([]models.Movie, 0, len(items))
	for _, m := range items {
		out = append(out, p.normalize(m, imageBase))
	}

	pg := raw.pagination()
	return &ListResult{Items: out, Page: pg.CurrentPage, TotalPages: pg.TotalPages}, nil
}

func (p *KKPhim) Detail(ctx context.Context, slug string) (*models.MovieDetail, error) {
	var raw kkDetailResponse
	if err := getJSON(ctx, p.Client, fmt.Sprintf("%s/phim/%s", p.BaseURL, slug), &raw); err != nil {
		return nil, fmt.Errorf("kkphim: %w", err)
	}
	if raw.Movie == nil || raw.Movie.Slug == "" {
		return nil, fmt.Errorf("kkphim: no movie in response for %q", slug)
	}

	detail := &models.MovieDetail{
		Movie:   p.normalize(*raw.Movie, p.ImageBase),
		Servers: make([]models.ServerGroup, 0, len(raw.Episodes)),
	}
	for _, g := range raw.Episodes {
		group := models.ServerGroup{
			Provider:   p.Name(),
			ServerName: g.ServerName,
			Episodes:   make([]models.Episode, 0, len(g.ServerData)),
		}
		for _, e := range g.ServerData {
			if e.Slug == "" {
				continue
			}
			group.Episodes = append(group.Episodes, models.Episode{
				Slug:      e.Slug,
				Name:      e.Name,
				Filename:  e.Filename,
				LinkEmbed: e.LinkEmbed,
				LinkM3U8:  e.LinkM3U8,
			})
		}
		detail.Servers = append(detail.Servers, group)
	}
	return detail, nil
}

func (p *KKPhim) normalize(m kkMovie, imageBase string) models.Movie {
	out := models.Movie{
		ID:             m.ID,
		Slug:           m.Slug,
		Name:           m.Name,
		OriginName:     m.OriginName,
		Content:        m.Content,
		Type:           m.Type,
		Status:         m.Status,
		ThumbURL:       absoluteURL(imageBase, m.ThumbURL),
		PosterURL:      absoluteURL(imageBase, m.PosterURL),
		TrailerURL:     m.TrailerURL,
		Time:           m.Time,
		EpisodeCurrent: m.EpisodeCurrent,
		EpisodeTotal:   m.EpisodeTotal,
		Quality:        m.Quality,
		Lang:           m.Lang,
		Year:           m.Year,
		Actor:          m.Actor,
		Director:       m.Director,
		Category:       taxons(m.Category),
		Country:        taxons(m.Country),
		Provider:       p.Name(),
	}
	fillDefaults(&out)
	return out
}
