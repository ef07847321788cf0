// Command mock-provider serves fixture JSON in the KKPhim wire shape so
// the API server and sync-catalog can run fully offline. Point
// PHIMHUB_KKPHIM_URL at it during development.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	dataDir := "data/mock-provider"
	if d := os.Getenv("PHIMHUB_MOCK_DATA_DIR"); d != "" {
		dataDir = d
	}

	serveFile := func(w http.ResponseWriter, name string) {
		b, err := os.ReadFile(filepath.Join(dataDir, name))
		if err != nil {
			http.Error(w, "cannot read "+name+": "+err.Error(), http.StatusInternalServerError)
			return
		}
		// validate JSON so a bad fixture doesn't silently break
		var tmp any
		if err := json.Unmarshal(b, &tmp); err != nil {
			http.Error(w, name+" invalid JSON: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}

	// list pages: /v1/api/danh-sach/phim-le -> list_phim-le.json
	http.HandleFunc("/v1/api/danh-sach/", func(w http.ResponseWriter, r *http.Request) {
		listType := strings.TrimPrefix(r.URL.Path, "/v1/api/danh-sach/")
		serveFile(w, "list_"+listType+".json")
	})

	// movie detail: /phim/{slug} -> detail_{slug}.json
	http.HandleFunc("/phim/", func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimPrefix(r.URL.Path, "/phim/")
		serveFile(w, "detail_"+slug+".json")
	})

	http.HandleFunc("/v1/api/tim-kiem", func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, "search.json")
	})

	log.Println("mock-provider listening on http://localhost:9000")
	log.Fatal(http.ListenAndServe(":9000", nil))
}
