package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"phimhub/pkg/models"
)

// Repo is the sqlite catalog cache. cmd/sync-catalog fills it from the
// providers; handlers fall back to it when live aggregation comes up
// empty.
type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q      string // keyword in name/origin_name
	Type   string
	Year   int
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert writes the given movies into the cache, replacing existing rows
// by slug.
func (r *Repo) Upsert(ctx context.Context, movies []models.Movie) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movies (slug, name, origin_name, type, status, thumb_url, poster_url,
		                    quality, lang, year, episode_current, content, category, country, provider, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(slug) DO UPDATE SET
		  name = excluded.name,
		  origin_name = excluded.origin_name,
		  type = excluded.type,
		  status = excluded.status,
		  thumb_url = excluded.thumb_url,
		  poster_url = excluded.poster_url,
		  quality = excluded.quality,
		  lang = excluded.lang,
		  year = excluded.year,
		  episode_current = excluded.episode_current,
		  content = excluded.content,
		  category = excluded.category,
		  country = excluded.country,
		  provider = excluded.provider,
		  updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, m := range movies {
		if m.Slug == "" {
			continue
		}
		categoryJSON, err := json.Marshal(m.Category)
		if err != nil {
			return fmt.Errorf("marshal category for %s: %w", m.Slug, err)
		}
		countryJSON, err := json.Marshal(m.Country)
		if err != nil {
			return fmt.Errorf("marshal country for %s: %w", m.Slug, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			m.Slug, m.Name, m.OriginName, m.Type, m.Status, m.ThumbURL, m.PosterURL,
			m.Quality, m.Lang, m.Year, m.EpisodeCurrent, m.Content, string(categoryJSON), string(countryJSON), m.Provider,
		); err != nil {
			return fmt.Errorf("exec upsert for %s: %w", m.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Movie, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT slug, name, origin_name, type, status, thumb_url, poster_url,
		       quality, lang, year, episode_current, content, category, country, provider
		FROM movies
		WHERE slug = ?
	`, slug)

	m, err := scanMovie(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Movie, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	out := make([]models.Movie, 0, q.Limit)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*models.Movie, error) {
	var (
		m            models.Movie
		originName   sql.NullString
		mtype        sql.NullString
		status       sql.NullString
		thumbURL     sql.NullString
		posterURL    sql.NullString
		quality      sql.NullString
		lang         sql.NullString
		year         sql.NullInt64
		episodeCur   sql.NullString
		content      sql.NullString
		categoryJSON sql.NullString
		countryJSON  sql.NullString
		prov         sql.NullString
	)

	if err := row.Scan(
		&m.Slug, &m.Name, &originName, &mtype, &status, &thumbURL, &posterURL,
		&quality, &lang, &year, &episodeCur, &content, &categoryJSON, &countryJSON, &prov,
	); err != nil {
		return nil, err
	}

	m.OriginName = originName.String
	m.Type = mtype.String
	m.Status = status.String
	m.ThumbURL = thumbURL.String
	m.PosterURL = posterURL.String
	m.Quality = quality.String
	m.Lang = lang.String
	m.Year = int(year.Int64)
	m.EpisodeCurrent = episodeCur.String
	m.Content = content.String
	m.Provider = prov.String

	_ = json.Unmarshal([]byte(categoryJSON.String), &m.Category)
	_ = json.Unmarshal([]byte(countryJSON.String), &m.Country)
	if m.Category == nil {
		m.Category = []models.Taxon{}
	}
	if m.Country == nil {
		m.Country = []models.Taxon{}
	}
	return &m, nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT slug, name, origin_name, type, status, thumb_url, poster_url,
		       quality, lang, year, episode_current, content, category, country, provider
		FROM movies
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM movies`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(origin_name) LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}
	if strings.TrimSpace(q.Type) != "" {
		where = append(where, "type = ?")
		args = append(args, strings.TrimSpace(q.Type))
	}
	if q.Year > 0 {
		where = append(where, "year = ?")
		args = append(args, q.Year)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY updated_at DESC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 24
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
