package provider

import (
	"strings"
	"time"
	"unicode"

	"phimhub/pkg/models"
)

// absoluteURL makes a provider image path absolute. Providers mix absolute
// and relative paths even within one response, so this is applied per field.
func absoluteURL(base, p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http") {
		return p
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

// fillDefaults default-fills the optional fields no provider reliably
// sends. Single movies default to FHD, everything else to HD; a missing
// year becomes the current year; absent collections become empty slices so
// callers never see nil.
func fillDefaults(m *models.Movie) {
	if m.Quality == "" {
		if m.Type == "single" {
			m.Quality = "FHD"
		} else {
			m.Quality = "HD"
		}
	}
	if m.Year == 0 {
		m.Year = time.Now().Year()
	}
	if m.Category == nil {
		m.Category = []models.Taxon{}
	}
	if m.Country == nil {
		m.Country = []models.Taxon{}
	}
}

// slugify turns a display name into a URL-safe slug for providers that
// return taxonomy names without slugs.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	prevDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash && b.Len() > 0 {
			b.WriteRune('-')
			prevDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

type rawTaxon struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func taxons(raw []rawTaxon) []models.Taxon {
	out := make([]models.Taxon, 0, len(raw))
	for _, t := range raw {
		slug := t.Slug
		if slug == "" {
			slug = slugify(t.Name)
		}
		if t.Name == "" && slug == "" {
			continue
		}
		out = append(out, models.Taxon{Slug: slug, Name: t.Name})
	}
	return out
}
