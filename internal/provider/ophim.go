package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"phimhub/pkg/models"
)

// OPhim fetches from ophim1.com. The list framing matches KKPhim's v1
// endpoints but every image path is relative and the detail document nests
// the movie under data.item with the episode groups inside it.
type OPhim struct {
	BaseURL   string
	ImageBase string
	Client    *http.Client
}

func NewOPhim(baseURL string) *OPhim {
	return &OPhim{
		BaseURL:   baseURL,
		ImageBase: "https://img.ophim.live/uploads/movies/",
		Client:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (p *OPhim) Name() string { return "OPhim" }

type opMovie struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	OriginName     string     `json:"origin_name"`
	Content        string     `json:"content"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	ThumbURL       string     `json:"thumb_url"`
	PosterURL      string     `json:"poster_url"`
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

	Episodes []opEpisodeGroup `json:"episodes"` // detail only
}

type opEpisodeGroup struct {
	ServerName string `json:"server_name"`
	ServerData []struct {
		Name      string `json:"name"`
		Slug      string `json:"slug"`
		Filename  string `json:"filename"`
		LinkEmbed string `json:"link_embed"`
		LinkM3U8  string `json:"link_m3u8"`
	} `json:"server_data"`
}

type opListResponse struct {
	Status string `json:"status"`
	Data   *struct {
		Items     []opMovie `json:"items"`
		PathImage string    `json:"APP_DOMAIN_CDN_IMAGE"`
		Params    *struct {
			Pagination struct {
				CurrentPage int `json:"currentPage"`
				TotalPages  int `json:"totalPages"`
			} `json:"pagination"`
		} `json:"params"`
	} `json:"data"`
}

type opDetailResponse struct {
	Status string `json:"status"`
	Data   *struct {
		Item *opMovie `json:"item"`
	} `json:"data"`
}

func (p *OPhim) List(ctx context.Context, listType string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/v1/api/danh-sach/%s?page=%d&limit=%d", p.BaseURL, listType, page, limit)
	return p.list(ctx, u)
}

func (p *OPhim) ByCategory(ctx context.Context, slug string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/v1/api/the-loai/%s?page=%d&limit=%d", p.BaseURL, slug, page, limit)
	return p.list(ctx, u)
}

func (p *OPhim) ByCountry(ctx context.Context, slug string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/v1/api/quoc-gia/%s?page=%d&limit=%d", p.BaseURL, slug, page, limit)
	return p.list(ctx, u)
}

func (p *OPhim) Search(ctx context.Context, keyword string, limit int) ([]models.Movie, error) {
	u := fmt.Sprintf("%s/v1/api/tim-kiem?keyword=%s&limit=%d", p.BaseURL, url.QueryEscape(keyword), limit)
	res, err := p.list(ctx, u)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (p *OPhim) list(ctx context.Context, u string) (*ListResult, error) {
	var raw opListResponse
	if err := getJSON(ctx, p.Client, u, &raw); err != nil {
		return nil, fmt.Errorf("ophim: %w", err)
	}
	if raw.Data == nil {
		return &ListResult{Items: []models.Movie{}, Page: 1, TotalPages: 1}, nil
	}

	imageBase := raw.Data.PathImage
	if imageBase == "" {
		imageBase = p.ImageBase
	}

	out := make([]models.Movie, 0, len(raw.Data.Items))
	for _, m := range raw.Data.Items {
		out = append(out, p.normalize(m, imageBase))
	}

	res := &ListResult{Items: out, Page: 1, TotalPages: 1}
	if raw.Data.Params != nil {
		res.Page = raw.Data.Params.Pagination.CurrentPage
		res.TotalPages = raw.Data.Params.Pagination.TotalPages
	}
	return res, nil
}

func (p *OPhim) Detail(ctx context.Context, slug string) (*models.MovieDetail, error) {
	var raw opDetailResponse
	if err := getJSON(ctx, p.Client, fmt.Sprintf("%s/v1/api/phim/%s", p.BaseURL, slug), &raw); err != nil {
		return nil, fmt.Errorf("ophim: %w", err)
	}
	if raw.Data == nil || raw.Data.Item == nil || raw.Data.Item.Slug == "" {
		return nil, fmt.Errorf("ophim: no movie in response for %q", slug)
	}

	item := raw.Data.Item
	detail := &models.MovieDetail{
		Movie:   p.normalize(*item, p.ImageBase),
		Servers: make([]models.ServerGroup, 0, len(item.Episodes)),
	}
	for _, g := range item.Episodes {
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

func (p *OPhim) normalize(m opMovie, imageBase string) models.Movie {
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
