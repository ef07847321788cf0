// Command sync-catalog pulls the latest list pages from every provider,
// merges and dedupes them, and refreshes the local catalog cache. Run it
// from cron; the API server falls back to the cache when providers are
// unreachable.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"phimhub/internal/catalog"
	"phimhub/internal/provider"
	"phimhub/pkg/database"
	"phimhub/pkg/utils"
)

func main() {
	listType := flag.String("type", provider.ListPhimLe, "list to sync (phim-le, phim-bo, hoat-hinh, tv-shows)")
	pages := flag.Int("pages", 3, "pages to pull per provider")
	limit := flag.Int("limit", 24, "movies per page")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	// Ensure schema exists
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	cfg := utils.LoadProviderConfig()
	agg := catalog.NewAggregator(cfg.FetchTimeout,
		provider.NewKKPhim(cfg.KKPhimBaseURL),
		provider.NewOPhim(cfg.OPhimBaseURL),
		provider.NewNguonC(cfg.NguonCBaseURL),
	)
	repo := catalog.NewRepo(db)

	total := 0
	for page := 1; page <= *pages; page++ {
		items := agg.List(ctx, *listType, page, *limit)
		if len(items) == 0 {
			break
		}
		if err := repo.Upsert(ctx, items); err != nil {
			log.Fatalf("save page %d: %v", page, err)
		}
		total += len(items)
		log.Printf("[sync-catalog] %s page %d: %d movies", *listType, page, len(items))
	}

	log.Printf("[sync-catalog] done, %d movies cached", total)
}
