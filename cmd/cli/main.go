// Command cli is the terminal client for a phimhub API server: account
// management, catalog browsing, a terminal player driving the playback
// session, watch history, library edits, and a listener for the
// device-sync event stream.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"phimhub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type movieListResponse struct {
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Items  []models.Movie `json:"items"`
}

func main() {
	global := flag.NewFlagSet("phimhub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "movies":
		handleMovies(ctx, client, *baseURL, sub, args[2:])
	case "history":
		handleHistory(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "play":
		handlePlay(ctx, client, *baseURL, *tokenPath, args[1:])
	case "favorites":
		handleSaved(ctx, client, *baseURL, *tokenPath, "favorites", sub, args[2:])
	case "watchlist":
		handleSaved(ctx, client, *baseURL, *tokenPath, "watchlist", sub, args[2:])
	case "sync":
		handleSync(sub, args[2:])
	case "notify":
		handleNotify(*baseURL, *tokenPath, sub, args[2:])
	case "party":
		handleParty(*baseURL, sub, args[2:])
	case "export":
		handleExport(ctx, client, *baseURL, sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: phimhub auth <login|register|logout>")
	}
}

func handleMovies(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("movies search", flag.ExitOnError)
		keyword := fs.String("q", "", "search keyword")
		limit := fs.Int("limit", 24, "page size")
		_ = fs.Parse(args)
		if *keyword == "" {
			log.Fatal("search keyword is required")
		}

		u, err := url.Parse(baseURL + "/search")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("keyword", *keyword)
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		u.RawQuery = qv.Encode()

		var resp movieListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet("movies list", flag.ExitOnError)
		listType := fs.String("type", "phim-le", "list type (phim-le, phim-bo, hoat-hinh, tv-shows)")
		page := fs.Int("page", 1, "page number")
		limit := fs.Int("limit", 24, "page size")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/movies")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("type", *listType)
		qv.Set("page", fmt.Sprintf("%d", *page))
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		u.RawQuery = qv.Encode()

		var resp movieListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("movies show", flag.ExitOnError)
		slug := fs.String("slug", "", "movie slug")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("movie slug is required")
		}

		var resp models.MovieDetail
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/movies/"+url.PathEscape(*slug), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: phimhub movies <search|list|show>")
	}
}

func handleHistory(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		fs := flag.NewFlagSet("history list", flag.ExitOnError)
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/users/history")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "continue":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/continue-watching", token, nil, &resp); err != nil {
			log.Fatalf("continue failed: %v", err)
		}
		printJSON(resp)
	case "report":
		fs := flag.NewFlagSet("history report", flag.ExitOnError)
		slug := fs.String("slug", "", "movie slug")
		episode := fs.String("episode", "", "episode slug")
		progress := fs.Int64("progress", 0, "progress in seconds")
		duration := fs.Int64("duration", 0, "duration in seconds")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("movie slug is required")
		}

		payload := map[string]any{
			"movie_slug":       *slug,
			"episode_slug":     *episode,
			"progress_seconds": *progress,
			"duration_seconds": *duration,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/history", token, payload, &resp); err != nil {
			log.Fatalf("report failed: %v", err)
		}
		printJSON(resp)
	case "clear":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, baseURL+"/users/history", token, nil, &resp); err != nil {
			log.Fatalf("clear failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: phimhub history <list|continue|report|clear>")
	}
}

func handleSaved(ctx context.Context, client *http.Client, baseURL, tokenPath, kind, sub string, args []string) {
	token := mustToken(tokenPath)
	endpoint := baseURL + "/users/" + kind
	switch sub {
	case "add":
		fs := flag.NewFlagSet(kind+" add", flag.ExitOnError)
		slug := fs.String("slug", "", "movie slug")
		name := fs.String("name", "", "movie name")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("movie slug is required")
		}

		payload := map[string]string{"movie_slug": *slug, "movie_name": *name}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, endpoint, token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "remove":
		fs := flag.NewFlagSet(kind+" remove", flag.ExitOnError)
		slug := fs.String("slug", "", "movie slug")
		_ = fs.Parse(args)
		if *slug == "" {
			log.Fatal("movie slug is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, endpoint+"/"+url.PathEscape(*slug), token, nil, &resp); err != nil {
			log.Fatalf("remove failed: %v", err)
		}
		printJSON(resp)
	case "list":
		fs := flag.NewFlagSet(kind+" list", flag.ExitOnError)
		limit := fs.Int("limit", 50, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(endpoint)
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, u.String(), token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatalf("usage: phimhub %s <add|remove|list>", kind)
	}
}

func handleSync(sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("sync listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP sync server address")
		userID := fs.String("user", "", "subscribe to one user's events")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runSyncTCP(*addr, *userID, *pretty); err != nil {
				log.Printf("[sync] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	default:
		log.Fatal("usage: phimhub sync listen")
	}
}

func handleNotify(baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "subscribe":
		fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		// Scope the stream to our user when a token is on disk.
		if token, err := loadToken(tokenPath); err == nil && token != "" {
			sep := "?"
			if strings.Contains(endpoint, "?") {
				sep = "&"
			}
			endpoint += sep + "token=" + url.QueryEscape(token)
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("subscribe failed: %v", err)
		}
	case "udp":
		fs := flag.NewFlagSet("notify udp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9091", "UDP notify server address")
		userID := fs.String("user", "", "user id to register as")
		_ = fs.Parse(args)
		if *userID == "" {
			log.Fatal("user id is required")
		}
		if err := runNotifyUDP(*addr, *userID); err != nil {
			log.Fatalf("notify udp failed: %v", err)
		}
	default:
		log.Fatal("usage: phimhub notify <subscribe|udp>")
	}
}

func handleParty(baseURL, sub string, args []string) {
	switch sub {
	case "join":
		fs := flag.NewFlagSet("party join", flag.ExitOnError)
		room := fs.String("room", "", "movie slug of the room")
		name := fs.String("name", "guest", "display name")
		_ = fs.Parse(args)
		if *room == "" {
			log.Fatal("room is required")
		}

		endpoint, err := websocketURL(baseURL, "/party")
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
		endpoint += "?room=" + url.QueryEscape(*room) + "&user=" + url.QueryEscape(*name)
		if err := runParty(endpoint, *name); err != nil {
			log.Fatalf("party join failed: %v", err)
		}
	default:
		log.Fatal("usage: phimhub party join")
	}
}

func handleExport(ctx context.Context, client *http.Client, baseURL, sub string, args []string) {
	switch sub {
	case "json":
		fs := flag.NewFlagSet("export json", flag.ExitOnError)
		out := fs.String("out", "data/movies.json", "output JSON path")
		limit := fs.Int("limit", 200, "max movies to export")
		_ = fs.Parse(args)

		items, err := fetchMovies(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export json failed: %v", err)
		}
		if err := writeJSON(*out, items); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d movies to %s", len(items), *out)
	case "csv":
		fs := flag.NewFlagSet("export csv", flag.ExitOnError)
		out := fs.String("out", "data/movies.csv", "output CSV path")
		limit := fs.Int("limit", 200, "max movies to export")
		_ = fs.Parse(args)

		items, err := fetchMovies(ctx, client, baseURL, *limit)
		if err != nil {
			log.Fatalf("export csv failed: %v", err)
		}
		if err := writeCSV(*out, items); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d movies to %s", len(items), *out)
	default:
		log.Fatal("usage: phimhub export <json|csv>")
	}
}

func runSyncTCP(addr, userID string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync] connected to %s", addr)
	if userID != "" {
		sub := fmt.Sprintf("{\"type\":\"subscribe\",\"user_id\":%q}\n", userID)
		if _, err := conn.Write([]byte(sub)); err != nil {
			return err
		}
	}

	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[notify] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func runNotifyUDP(addr, userID string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg := fmt.Sprintf("{\"type\":\"register\",\"user_id\":%q}", userID)
	if _, err := conn.Write([]byte(reg)); err != nil {
		return err
	}
	log.Printf("[notify] registered with %s as %s", addr, userID)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
}

func runParty(wsURL, name string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[party] joined as %s", name)

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Println(string(msg))
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		payload, _ := json.Marshal(map[string]string{"text": text, "user": name})
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func fetchMovies(ctx context.Context, client *http.Client, baseURL string, limit int) ([]models.Movie, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	var out []models.Movie
	offset := 0
	for len(out) < limit {
		pageSize := 50
		if remaining := limit - len(out); remaining < pageSize {
			pageSize = remaining
		}
		u, err := url.Parse(baseURL + "/movies")
		if err != nil {
			return nil, err
		}
		qv := u.Query()
		qv.Set("limit", fmt.Sprintf("%d", pageSize))
		qv.Set("offset", fmt.Sprintf("%d", offset))
		u.RawQuery = qv.Encode()

		var resp movieListResponse
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			break
		}
		out = append(out, resp.Items...)
		offset += len(resp.Items)
		if resp.Total > 0 && offset >= resp.Total {
			break
		}
	}

	return out, nil
}

func writeJSON(path string, items []models.Movie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Movie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"slug", "name", "origin_name", "type", "year", "quality", "lang", "provider",
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := writer.Write([]string{
			item.Slug,
			item.Name,
			item.OriginName,
			item.Type,
			fmt.Sprintf("%d", item.Year),
			item.Quality,
			item.Lang,
			item.Provider,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	return u.String(), nil
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.phimhub-token.json"
	}
	return filepath.Join(home, ".phimhub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token in response")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(tokenData{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func loadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(b, &td); err != nil {
		return "", err
	}
	return td.Token, nil
}

func mustToken(path string) string {
	token, err := loadToken(path)
	if err != nil || token == "" {
		log.Fatal("not logged in; run: phimhub auth login")
	}
	return token
}

func clearToken(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func printUsage() {
	fmt.Println(`phimhub CLI

usage:
  phimhub [-api URL] [-token PATH] <command> <subcommand> [flags]

commands:
  auth       login | register | logout
  movies     search | list | show
  play       -slug <movie> [-episode SLUG] [-server N]
  history    list | continue | report | clear
  favorites  add | remove | list
  watchlist  add | remove | list
  sync       listen
  notify     subscribe | udp
  party      join
  export     json | csv`)
}
