package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"phimhub/pkg/models"
)

// NguonC fetches from phim.nguonc.com, the odd one out: episodes nest
// under "items" with "embed"/"m3u8" link keys, taxonomy comes as keyed
// group maps without slugs, and cast/director are comma-joined strings.
type NguonC struct {
	BaseURL string
	Client  *http.Client
}

func NewNguonC(baseURL string) *NguonC {
	return &NguonC{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (p *NguonC) Name() string { return "NguonC" }

type ncMovie struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	OriginalName   string `json:"original_name"`
	Description    string `json:"description"`
	ThumbURL       string `json:"thumb_url"`
	PosterURL      string `json:"poster_url"`
	Time           string `json:"time"`
	CurrentEpisode string `json:"current_episode"`
	TotalEpisodes  any    `json:"total_episodes"` // number or string depending on endpoint
	Quality        string `json:"quality"`
	Language       string `json:"language"`
	Casts          string `json:"casts"`
	Director       string `json:"director"`

	// category comes as {"1": {group: {name: "Năm"}, list: [{name: "2024"}]}, ...}
	Category map[string]ncCategoryGroup `json:"category"`

	Episodes []ncEpisodeGroup `json:"episodes"` // detail only
}

type ncCategoryGroup struct {
	Group struct {
		Name string `json:"name"`
	} `json:"group"`
	List []struct {
		Name string `json:"name"`
	} `json:"list"`
}

type ncEpisodeGroup struct {
	ServerName string `json:"server_name"`
	Items      []struct {
		Name  string `json:"name"`
		Slug  string `json:"slug"`
		Embed string `json:"embed"`
		M3U8  string `json:"m3u8"`
	} `json:"items"`
}

type ncListResponse struct {
	Status   string    `json:"status"`
	Items    []ncMovie `json:"items"`
	Paginate *struct {
		CurrentPage int `json:"current_page"`
		TotalPage   int `json:"total_page"`
	} `json:"paginate"`
}

type ncDetailResponse struct {
	Status string   `json:"status"`
	Movie  *ncMovie `json:"movie"`
}

func (p *NguonC) List(ctx context.Context, listType string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/api/films/danh-sach/%s?page=%d", p.BaseURL, listType, page)
	return p.list(ctx, u, limit)
}

func (p *NguonC) ByCategory(ctx context.Context, slug string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/api/films/the-loai/%s?page=%d", p.BaseURL, slug, page)
	return p.list(ctx, u, limit)
}

func (p *NguonC) ByCountry(ctx context.Context, slug string, page, limit int) (*ListResult, error) {
	u := fmt.Sprintf("%s/api/films/quoc-gia/%s?page=%d", p.BaseURL, slug, page)
	return p.list(ctx, u, limit)
}

func (p *NguonC) Search(ctx context.Context, keyword string, limit int) ([]models.Movie, error) {
	u := fmt.Sprintf("%s/api/films/search?keyword=%s", p.BaseURL, url.QueryEscape(keyword))
	res, err := p.list(ctx, u, limit)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (p *NguonC) list(ctx context.Context, u string, limit int) (*ListResult, error) {
	var raw ncListResponse
	if err := getJSON(ctx, p.Client, u, &raw); err != nil {
		return nil, fmt.Errorf("nguonc: %w", err)
	}

	items := raw.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]models.Movie, 0, len(items))
	for _, m := range items {
		out = append(out, p.normalize(m))
	}

	res := &ListResult{Items: out, Page: 1, TotalPages: 1}
	if raw.Paginate != nil {
		res.Page = raw.Paginate.CurrentPage
		res.TotalPages = raw.Paginate.TotalPage
	}
	return res, nil
}

func (p *NguonC) Detail(ctx context.Context, slug string) (*models.MovieDetail, error) {
	var raw ncDetailResponse
	if err := getJSON(ctx, p.Client, fmt.Sprintf("%s/api/film/%s", p.BaseURL, slug), &raw); err != nil {
		return nil, fmt.Errorf("nguonc: %w", err)
	}
	if raw.Movie == nil || raw.Movie.Slug == "" {
		return nil, fmt.Errorf("nguonc: no movie in response for %q", slug)
	}

	detail := &models.MovieDetail{
		Movie:   p.normalize(*raw.Movie),
		Servers: make([]models.ServerGroup, 0, len(raw.Movie.Episodes)),
	}
	for _, g := range raw.Movie.Episodes {
		group := models.ServerGroup{
			Provider:   p.Name(),
			ServerName: g.ServerName,
			Episodes:   make([]models.Episode, 0, len(g.Items)),
		}
		for _, e := range g.Items {
			if e.Slug == "" {
				continue
			}
			group.Episodes = append(group.Episodes, models.Episode{
				Slug:      e.Slug,
				Name:      e.Name,
				LinkEmbed: e.Embed,
				LinkM3U8:  e.M3U8,
			})
		}
		detail.Servers = append(detail.Servers, group)
	}
	return detail, nil
}

func (p *NguonC) normalize(m ncMovie) models.Movie {
	out := models.Movie{
		ID:             m.ID,
		Slug:           m.Slug,
		Name:           m.Name,
		OriginName:     m.OriginalName,
		Content:        m.Description,
		ThumbURL:       m.ThumbURL, // nguonc serves absolute URLs
		PosterURL:      m.PosterURL,
		Time:           m.Time,
		EpisodeCurrent: m.CurrentEpisode,
		EpisodeTotal:   anyToString(m.TotalEpisodes),
		Quality:        m.Quality,
		Lang:           m.Language,
		Actor:          splitNames(m.Casts),
		Director:       splitNames(m.Director),
		Provider:       p.Name(),
	}

	for _, group := range m.Category {
		switch group.Group.Name {
		case "Năm":
			if len(group.List) > 0 {
				if y, err := strconv.Atoi(strings.TrimSpace(group.List[0].Name)); err == nil {
					out.Year = y
				}
			}
		case "Quốc gia":
			for _, c := range group.List {
				out.Country = append(out.Country, models.Taxon{Slug: slugify(c.Name), Name: c.Name})
			}
		case "Thể loại":
			for _, c := range group.List {
				out.Category = append(out.Category, models.Taxon{Slug: slugify(c.Name), Name: c.Name})
			}
		case "Định dạng":
			if len(group.List) > 0 {
				out.Type = formatToType(group.List[0].Name)
			}
		}
	}

	fillDefaults(&out)
	return out
}

func formatToType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phim lẻ":
		return "single"
	case "phim bộ":
		return "series"
	case "hoạt hình":
		return "hoathinh"
	case "tv shows":
		return "tvshows"
	default:
		return ""
	}
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func anyToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.Itoa(int(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}
