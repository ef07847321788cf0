package catalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"phimhub/internal/enrich"
	"phimhub/internal/provider"
	"phimhub/pkg/models"
)

// Aggregator coordinates calls to the configured providers and merges
// their responses into one canonical view.
//
// Two merge rules apply, and they are deliberately different:
//   - movie metadata: first-wins by provider priority (slice order), so a
//     record never mixes one provider's synopsis with another's cast;
//   - episode/server groups: additive, every successful provider
//     contributes, because providers have non-overlapping server coverage
//     and total recall matters more than a single authoritative source.
type Aggregator struct {
	Providers []provider.Provider // priority order, earlier wins ties
	Timeout   time.Duration       // per-provider budget, bounds the whole merge
	Enricher  *enrich.Client      // optional TMDB decoration, best effort
}

func NewAggregator(timeout time.Duration, providers ...provider.Provider) *Aggregator {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Aggregator{Providers: providers, Timeout: timeout}
}

// Detail fetches the movie document from every provider concurrently and
// merges the settled results. One provider failing never aborts the
// others; only when all of them fail does Detail return (nil, nil) and the
// caller renders "not found".
func (a *Aggregator) Detail(ctx context.Context, slug string) (*models.MovieDetail, error) {
	results := make([]*models.MovieDetail, len(a.Providers))

	var wg sync.WaitGroup
	for i, p := range a.Providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.Timeout)
			defer cancel()

			d, err := p.Detail(pctx, slug)
			if err != nil {
				log.Printf("[catalog] provider %s detail %q: %v", p.Name(), slug, err)
				return
			}
			results[i] = d
		}(i, p)
	}
	wg.Wait()

	var merged *models.MovieDetail
	for i, d := range results {
		if d == nil {
			continue
		}
		if merged == nil {
			// first successful provider in priority order supplies the
			// base movie record
			merged = &models.MovieDetail{Movie: d.Movie}
		}
		merged.Servers = append(merged.Servers, tagGroups(a.Providers[i].Name(), d.Servers)...)
	}
	if merged == nil {
		return nil, nil
	}

	a.decorate(ctx, &merged.Movie)
	return merged, nil
}

// tagGroups prefixes every server name with a provider tag ("KKPhim #1")
// so identically-named servers from different providers stay apart after
// the additive merge.
func tagGroups(providerName string, groups []models.ServerGroup) []models.ServerGroup {
	out := make([]models.ServerGroup, 0, len(groups))
	for i, g := range groups {
		tag := fmt.Sprintf("%s #%d", providerName, i+1)
		name := tag
		if g.ServerName != "" {
			name = tag + ": " + g.ServerName
		}
		out = append(out, models.ServerGroup{
			Provider:   tag,
			ServerName: name,
			Episodes:   g.Episodes,
		})
	}
	return out
}

func (a *Aggregator) decorate(ctx context.Context, m *models.Movie) {
	if !a.Enricher.Enabled() {
		return
	}
	mediaType := "movie"
	if m.Type == "series" || m.Type == "tvshows" {
		mediaType = "tv"
	}
	title := m.OriginName
	if title == "" {
		title = m.Name
	}
	d, err := a.Enricher.Lookup(ctx, title, m.Year, mediaType)
	if err != nil || d == nil {
		// enrichment is display-only, a miss falls back to provider art
		return
	}
	m.VoteAverage = d.VoteAverage
	m.BackdropURL = d.BackdropURL
}

// fetchFunc is one provider list-shaped call.
type fetchFunc func(ctx context.Context, p provider.Provider) ([]models.Movie, error)

// fetchMerged is the shared concurrent-fetch-then-merge combinator behind
// every list operation: dispatch to all providers, wait for all to settle,
// concatenate in priority order, dedupe by slug keeping the first
// occurrence.
func (a *Aggregator) fetchMerged(ctx context.Context, what string, fn fetchFunc) []models.Movie {
	results := make([][]models.Movie, len(a.Providers))

	var wg sync.WaitGroup
	for i, p := range a.Providers {
		wg.Add(1)
		go func(i int, p provider.Provider) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, a.Timeout)
			defer cancel()

			items, err := fn(pctx, p)
			if err != nil {
				log.Printf("[catalog] provider %s %s: %v", p.Name(), what, err)
				return
			}
			results[i] = items
		}(i, p)
	}
	wg.Wait()

	var all []models.Movie
	for _, items := range results {
		all = append(all, items...)
	}
	return DedupeBySlug(all)
}

// DedupeBySlug removes duplicate movies keeping the first occurrence, so
// provider priority order decides ties.
func DedupeBySlug(items []models.Movie) []models.Movie {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Movie, 0, len(items))
	for _, m := range items {
		if m.Slug == "" {
			continue
		}
		if _, ok := seen[m.Slug]; ok {
			continue
		}
		seen[m.Slug] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (a *Aggregator) List(ctx context.Context, listType string, page, limit int) []models.Movie {
	return a.fetchMerged(ctx, "list "+listType, func(ctx context.Context, p provider.Provider) ([]models.Movie, error) {
		res, err := p.List(ctx, listType, page, limit)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

func (a *Aggregator) ByCategory(ctx context.Context, slug string, page, limit int) []models.Movie {
	return a.fetchMerged(ctx, "category "+slug, func(ctx context.Context, p provider.Provider) ([]models.Movie, error) {
		res, err := p.ByCategory(ctx, slug, page, limit)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

func (a *Aggregator) ByCountry(ctx context.Context, slug string, page, limit int) []models.Movie {
	return a.fetchMerged(ctx, "country "+slug, func(ctx context.Context, p provider.Provider) ([]models.Movie, error) {
		res, err := p.ByCountry(ctx, slug, page, limit)
		if err != nil {
			return nil, err
		}
		return res.Items, nil
	})
}

func (a *Aggregator) Search(ctx context.Context, keyword string, limit int) []models.Movie {
	return a.fetchMerged(ctx, "search", func(ctx context.Context, p provider.Provider) ([]models.Movie, error) {
		return p.Search(ctx, keyword, limit)
	})
}
